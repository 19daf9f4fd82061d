package dashboard

import (
	"fmt"

	"github.com/rohithpranav45/storeiq/internal/domain/catalog"
)

// Status enum: the procurement recommendation label attached to a product.
// The same vocabulary is used by the store-wide dashboard and by single
// product analyses.
type Status string

const (
	StatusBulkOrder     Status = "Bulk Order"
	StatusStandardOrder Status = "Standard Order"
	StatusUseSubstitute Status = "Use Substitute"
	StatusHold          Status = "Hold"
	StatusMonitor       Status = "Monitor"
	StatusDeprioritize  Status = "Deprioritize"
	StatusError         Status = "Error"
)

// FilterAll selects every product regardless of status.
const FilterAll = "All"

// DisplayOrder is the fixed priority order for rendering status filters.
var DisplayOrder = []Status{
	StatusBulkOrder,
	StatusStandardOrder,
	StatusUseSubstitute,
	StatusHold,
	StatusMonitor,
	StatusDeprioritize,
	StatusError,
}

// Valid reports whether s is one of the known labels.
func (s Status) Valid() bool {
	switch s {
	case StatusBulkOrder, StatusStandardOrder, StatusUseSubstitute,
		StatusHold, StatusMonitor, StatusDeprioritize, StatusError:
		return true
	}
	return false
}

// ParseStatus validates a raw label coming off the wire.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown recommendation label: %q", raw)
	}
	return s, nil
}

// StatusMap maps product id -> recommendation label. It is a read-only
// snapshot rebuilt per bulk load; a single product's re-run never mutates it.
type StatusMap map[catalog.ProductID]Status
