package analysis

import (
	"time"

	"github.com/rohithpranav45/storeiq/internal/domain/catalog"
	"github.com/rohithpranav45/storeiq/internal/domain/dashboard"
)

// RunID identifier type
type RunID string

// Scores value object (-1..1 range, service-computed)
type Scores struct {
	CostImpactScore float64 `json:"costImpactScore"`
	DemandScore     float64 `json:"demandScore"`
	UrgencyScore    float64 `json:"urgencyScore"`
}

// Inputs are the raw factors the remote service fed into its scoring.
type Inputs struct {
	DaysOfStock    float64 `json:"daysOfStock"`
	InventoryLevel int     `json:"inventoryLevel"`
	SalesVelocity  float64 `json:"salesVelocity"`
	TariffRate     float64 `json:"tariffRate"`
	DemandSignal   float64 `json:"demandSignal"`
	WeatherFactor  float64 `json:"weatherFactor"`
}

// Substitute is a similar product ranked by the remote service.
type Substitute struct {
	ID         catalog.ProductID `json:"id"`
	Name       string            `json:"name"`
	SKU        string            `json:"sku"`
	Similarity float64           `json:"similarity"`
}

// Article is one piece of demand intel backing the demand signal.
type Article struct {
	Source string `json:"source,omitempty"`
	Title  string `json:"title"`
	URL    string `json:"url"`
}

// MapPoint is one node of the supply chain visualization.
type MapPoint struct {
	Name    string  `json:"name"`
	Country string  `json:"country,omitempty"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Role    string  `json:"role,omitempty"`
}

// Detail is the diagnostic payload of an analysis.
type Detail struct {
	Scores            Scores       `json:"scores"`
	Inputs            Inputs       `json:"inputs"`
	RulesTriggered    []string     `json:"rulesTriggered,omitempty"`
	DecisionNarrative string       `json:"decisionNarrative,omitempty"`
	Substitutes       []Substitute `json:"substitutes,omitempty"`
	NewsArticles      []Article    `json:"news_articles,omitempty"`
	SupplyChainMap    []MapPoint   `json:"supplyChainMapData,omitempty"`
	Error             bool         `json:"error,omitempty"`
}

// Result is one analysis of one product. Held only for the currently open
// product; discarded on navigation.
type Result struct {
	Recommendation dashboard.Status `json:"recommendation"`
	Analysis       Detail           `json:"analysis"`
}

// FallbackResult builds the synthetic Error result used whenever the remote
// call fails, so the detail view always has something renderable.
func FallbackResult(message string) *Result {
	if message == "" {
		message = "Could not retrieve analysis from server."
	}
	return &Result{
		Recommendation: dashboard.StatusError,
		Analysis: Detail{
			DecisionNarrative: message,
			RulesTriggered:    []string{message},
			Error:             true,
		},
	}
}

// Overrides are operator-supplied what-if values passed through to the
// remote service in place of its computed defaults.
type Overrides struct {
	CustomTariff *float64 `json:"customTariff,omitempty"`
	CustomDemand *float64 `json:"customDemand,omitempty"`
}

// Simulation holds the what-if slider state for the open product. Seeded
// from the first successful result's inputs, mutated only by the operator,
// reset on product change.
type Simulation struct {
	TariffOverride *float64 `json:"tariffOverride"`
	DemandOverride *float64 `json:"demandOverride"`
}

// SeedFrom initializes untouched fields from service-computed inputs.
// Fields the operator already set are left alone.
func (s *Simulation) SeedFrom(in Inputs) {
	if s.TariffOverride == nil {
		v := in.TariffRate
		s.TariffOverride = &v
	}
	if s.DemandOverride == nil {
		v := in.DemandSignal
		s.DemandOverride = &v
	}
}

// Run is the audit record of one analysis request, persisted best-effort.
type Run struct {
	ID             RunID             `json:"id"`
	Operator       string            `json:"operator"`
	ProductID      catalog.ProductID `json:"product_id"`
	StoreID        catalog.StoreID   `json:"store_id"`
	Seq            uint64            `json:"seq"`
	RequestedAt    time.Time         `json:"requested_at"`
	Status         string            `json:"status"` // success | failed | superseded
	Recommendation dashboard.Status  `json:"recommendation,omitempty"`
	Scores         Scores            `json:"scores"`
	CustomTariff   *float64          `json:"custom_tariff,omitempty"`
	CustomDemand   *float64          `json:"custom_demand,omitempty"`
	ArtifactURL    string            `json:"artifact_url,omitempty"`
	DurationMS     int64             `json:"duration_ms"`
}

// Run status values
const (
	RunSuccess    = "success"
	RunFailed     = "failed"
	RunSuperseded = "superseded"
)
