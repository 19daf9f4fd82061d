package briefing

import (
	"context"
	"encoding/json"
	"fmt"

	domain "github.com/rohithpranav45/storeiq/internal/domain/analysis"
	"github.com/rohithpranav45/storeiq/internal/domain/briefing"
	"github.com/rohithpranav45/storeiq/internal/domain/catalog"
)

type Service struct {
	client briefing.Client
}

func NewService(client briefing.Client) *Service {
	return &Service{client: client}
}

// Brief turns the open product's analysis into an operator-facing
// procurement briefing.
func (s *Service) Brief(ctx context.Context, product *catalog.Product, result *domain.Result) (string, error) {
	if product == nil || result == nil {
		return "", fmt.Errorf("%w: product and analysis are required", domain.ErrInvalidInput)
	}
	report, err := json.Marshal(map[string]any{
		"product":        product,
		"recommendation": result.Recommendation,
		"analysis":       result.Analysis,
	})
	if err != nil {
		return "", err
	}
	return s.client.Brief(ctx, string(report))
}
