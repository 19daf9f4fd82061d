package roi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohithpranav45/storeiq/internal/domain/catalog"
)

func product(country string, price, baseCost float64, stock int) catalog.Product {
	return catalog.Product{
		ID:              "prod-1",
		Category:        "Electronics",
		Price:           price,
		BaseCost:        baseCost,
		CountryOfOrigin: country,
		Inventory:       catalog.Inventory{Stock: stock},
	}
}

func TestComputeSavings(t *testing.T) {
	tariffs := catalog.TariffTable{
		"China":  {"Electronics": 0.25},
		"Mexico": {"Electronics": 0.05},
	}
	primary := product("China", 20, 10, 100)
	substitute := product("Mexico", 18, 9, 40)

	r := Compute(primary, substitute, tariffs)
	require.NotNil(t, r)

	// Landed cost on the primary's own base cost for both options: only the
	// tariff rate changes with the sourcing country.
	assert.InDelta(t, 0.25, r.PrimaryTariff, 1e-9)
	assert.InDelta(t, 0.05, r.SubstituteTariff, 1e-9)
	assert.InDelta(t, 7.5, r.ProfitPerUnitPrimary, 1e-9) // 20 - 12.50
	assert.InDelta(t, 9.5, r.ProfitPerUnitSub, 1e-9)     // 20 - 10.50
	assert.InDelta(t, 2.0, r.SavingsPerUnit, 1e-9)
	assert.InDelta(t, 200.0, r.TotalSavings, 1e-9)
	assert.Equal(t, "China", r.PrimaryCountry)
	assert.Equal(t, "Mexico", r.SubstituteCountry)
}

func TestComputeTariffGuard(t *testing.T) {
	tariffs := catalog.TariffTable{
		"China":  {"Electronics": 0.10},
		"Mexico": {"Electronics": 0.10},
	}
	// Equal tariffs: no advantage, even before costs are compared.
	r := Compute(product("China", 20, 10, 100), product("Mexico", 20, 10, 100), tariffs)
	assert.Nil(t, r)

	tariffs["Mexico"]["Electronics"] = 0.30
	r = Compute(product("China", 20, 10, 100), product("Mexico", 20, 10, 100), tariffs)
	assert.Nil(t, r)
}

func TestComputeZeroStockSuppressed(t *testing.T) {
	tariffs := catalog.TariffTable{
		"China":  {"Electronics": 0.25},
		"Mexico": {"Electronics": 0.05},
	}
	r := Compute(product("China", 20, 10, 0), product("Mexico", 20, 10, 50), tariffs)
	assert.Nil(t, r)
}

func TestComputeMissingTariffEntriesCountAsZero(t *testing.T) {
	tariffs := catalog.TariffTable{
		"China": {"Electronics": 0.25},
	}
	// Substitute country absent from the table: rate 0, below primary's 0.25.
	r := Compute(product("China", 20, 10, 10), product("Vietnam", 20, 10, 10), tariffs)
	require.NotNil(t, r)
	assert.InDelta(t, 0.0, r.SubstituteTariff, 1e-9)
	assert.InDelta(t, 2.5, r.SavingsPerUnit, 1e-9)

	// Primary absent too: both 0, guard fires.
	r = Compute(product("Brazil", 20, 10, 10), product("Vietnam", 20, 10, 10), tariffs)
	assert.Nil(t, r)
}
