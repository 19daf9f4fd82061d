package catalog

// StoreID tipe for Store
type StoreID string

// ProductID tipe for Product
type ProductID string

// Store reference data; immutable once fetched
type Store struct {
	ID    StoreID `json:"id"`
	Name  string  `json:"name"`
	City  string  `json:"city"`
	State string  `json:"state"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
}

// Inventory value object
type Inventory struct {
	Stock         int     `json:"stock"`
	SalesVelocity float64 `json:"salesVelocity"`
}

// Product reference data; the full set is refreshed per store change
type Product struct {
	ID              ProductID `json:"id"`
	Name            string    `json:"name"`
	SKU             string    `json:"sku"`
	Category        string    `json:"category"`
	Price           float64   `json:"price"`
	BaseCost        float64   `json:"baseCost"`
	CountryOfOrigin string    `json:"countryOfOrigin"`
	ImageURL        string    `json:"imageUrl,omitempty"`
	Inventory       Inventory `json:"inventory"`
}

// TariffTable maps country -> category -> tariff rate (fraction, 0-1)
type TariffTable map[string]map[string]float64

// Rate looks up a tariff. Missing entries are 0%, not "unknown" — the ROI
// engine depends on that behavior.
func (t TariffTable) Rate(country, category string) float64 {
	byCategory, ok := t[country]
	if !ok {
		return 0
	}
	return byCategory[category]
}

// Categories returns the distinct product categories in first-seen order.
func Categories(products []Product) []string {
	seen := make(map[string]bool, len(products))
	var out []string
	for _, p := range products {
		if p.Category == "" || seen[p.Category] {
			continue
		}
		seen[p.Category] = true
		out = append(out, p.Category)
	}
	return out
}

// FilterByCategory returns the products in the given category, order preserved.
func FilterByCategory(products []Product, category string) []Product {
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out
}
