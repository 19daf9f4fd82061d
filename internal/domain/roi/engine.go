// Package roi compares the landed cost of a product's current sourcing
// country against a candidate substitute's sourcing country.
package roi

import "github.com/rohithpranav45/storeiq/internal/domain/catalog"

// Result of a sourcing-switch comparison.
type Result struct {
	PrimaryCountry       string  `json:"primaryCountry"`
	SubstituteCountry    string  `json:"substituteCountry"`
	PrimaryTariff        float64 `json:"primaryTariff"`
	SubstituteTariff     float64 `json:"substituteTariff"`
	ProfitPerUnitPrimary float64 `json:"profitPerUnitPrimary"`
	ProfitPerUnitSub     float64 `json:"profitPerUnitSub"`
	SavingsPerUnit       float64 `json:"savingsPerUnit"`
	TotalSavings         float64 `json:"totalSavings"`
}

// Compute decides whether switching primary's sourcing to substitute's
// country is profitable. Returns nil when there is no advantage to present:
// a substitute tariff at or above the primary's, or a non-positive profit
// delta once landed costs are compared. Both guards apply — a lower tariff
// alone does not prove profitability when base costs differ.
//
// Missing tariff table entries count as 0%. Price is store-facing and
// assumed identical across both options; cost is sourcing-dependent.
func Compute(primary, substitute catalog.Product, tariffs catalog.TariffTable) *Result {
	primaryTariff := tariffs.Rate(primary.CountryOfOrigin, primary.Category)
	substituteTariff := tariffs.Rate(substitute.CountryOfOrigin, substitute.Category)

	if substituteTariff >= primaryTariff {
		return nil
	}

	costPrimary := primary.BaseCost + primary.BaseCost*primaryTariff
	costSub := primary.BaseCost + primary.BaseCost*substituteTariff

	profitPrimary := primary.Price - costPrimary
	profitSub := primary.Price - costSub

	savingsPerUnit := profitSub - profitPrimary
	if savingsPerUnit <= 0 {
		return nil
	}

	totalSavings := savingsPerUnit * float64(primary.Inventory.Stock)
	if totalSavings <= 0 {
		// Zero stock: nothing to save on. Suppressed, not shown as $0.00.
		return nil
	}

	return &Result{
		PrimaryCountry:       primary.CountryOfOrigin,
		SubstituteCountry:    substitute.CountryOfOrigin,
		PrimaryTariff:        primaryTariff,
		SubstituteTariff:     substituteTariff,
		ProfitPerUnitPrimary: profitPrimary,
		ProfitPerUnitSub:     profitSub,
		SavingsPerUnit:       savingsPerUnit,
		TotalSavings:         totalSavings,
	}
}
