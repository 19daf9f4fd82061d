// Package upstream is the HTTP/JSON adapter to the remote analysis service.
// Raw responses are parsed and validated here; the rest of the system only
// ever sees the typed entities or an error from the analysis taxonomy.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	domain "github.com/rohithpranav45/storeiq/internal/domain/analysis"
	"github.com/rohithpranav45/storeiq/internal/domain/catalog"
	"github.com/rohithpranav45/storeiq/internal/domain/dashboard"
)

type Client struct {
	http    *http.Client
	baseURL string
}

// New builds a client for the analysis service at baseURL. The timeout is
// the transport deadline for every call; exceeding it classifies as
// ErrTimeout upstream of here.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// Health pings the upstream health endpoint.
func (c *Client) Health(ctx context.Context) error {
	var body struct {
		Status string `json:"status"`
	}
	return c.get(ctx, "/api/health", &body)
}

func (c *Client) ListStores(ctx context.Context) ([]catalog.Store, error) {
	var stores []catalog.Store
	if err := c.get(ctx, "/api/stores", &stores); err != nil {
		return nil, err
	}
	for _, s := range stores {
		if s.ID == "" {
			return nil, fmt.Errorf("%w: store without id", domain.ErrProtocol)
		}
	}
	return stores, nil
}

func (c *Client) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	var products []catalog.Product
	if err := c.get(ctx, "/api/products", &products); err != nil {
		return nil, err
	}
	for _, p := range products {
		if p.ID == "" {
			return nil, fmt.Errorf("%w: product without id", domain.ErrProtocol)
		}
	}
	return products, nil
}

func (c *Client) DashboardStatuses(ctx context.Context) (dashboard.StatusMap, error) {
	var raw map[string]string
	if err := c.get(ctx, "/api/dashboard", &raw); err != nil {
		return nil, err
	}
	statuses := make(dashboard.StatusMap, len(raw))
	for id, label := range raw {
		st, err := dashboard.ParseStatus(label)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrProtocol, err)
		}
		statuses[catalog.ProductID(id)] = st
	}
	return statuses, nil
}

func (c *Client) TariffTable(ctx context.Context) (catalog.TariffTable, error) {
	var table catalog.TariffTable
	if err := c.get(ctx, "/api/tariffs", &table); err != nil {
		return nil, err
	}
	return table, nil
}

// Analyze runs the remote scoring call. The second return is the raw
// response body, kept for the snapshot archive.
func (c *Client) Analyze(ctx context.Context, req domain.AnalyzeRequest) (*domain.Result, []byte, error) {
	if req.ProductID == "" || req.StoreID == "" {
		return nil, nil, fmt.Errorf("%w: product and store ids are required", domain.ErrInvalidInput)
	}
	payload := map[string]any{
		"productId": req.ProductID,
		"storeId":   req.StoreID,
	}
	if req.CustomTariff != nil {
		payload["customTariff"] = *req.CustomTariff
	}
	if req.CustomDemand != nil {
		payload["customDemand"] = *req.CustomDemand
	}

	raw, err := c.post(ctx, "/api/analyze", payload)
	if err != nil {
		return nil, nil, err
	}
	result, err := normalizeAnalyzeResponse(raw)
	if err != nil {
		return nil, nil, err
	}
	return result, raw, nil
}

// normalizeAnalyzeResponse is the single adapter for the analyze payload.
// The service historically answered in two shapes: the canonical
// {recommendation, analysis:{...}} and a flat one with scores/inputs at the
// top level. Both collapse to one Result here; nothing downstream sniffs
// shapes again.
func normalizeAnalyzeResponse(raw []byte) (*domain.Result, error) {
	var wire struct {
		Recommendation string              `json:"recommendation"`
		Analysis       *domain.Detail      `json:"analysis"`
		Scores         *domain.Scores      `json:"scores"`
		Inputs         *domain.Inputs      `json:"inputs"`
		RulesTriggered []string            `json:"rulesTriggered"`
		Narrative      string              `json:"decisionNarrative"`
		Substitutes    []domain.Substitute `json:"substitutes"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProtocol, err)
	}
	rec, err := dashboard.ParseStatus(wire.Recommendation)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProtocol, err)
	}

	result := &domain.Result{Recommendation: rec}
	if wire.Analysis != nil {
		result.Analysis = *wire.Analysis
	} else {
		// Flat legacy shape.
		if wire.Scores != nil {
			result.Analysis.Scores = *wire.Scores
		}
		if wire.Inputs != nil {
			result.Analysis.Inputs = *wire.Inputs
		}
		result.Analysis.RulesTriggered = wire.RulesTriggered
		result.Analysis.DecisionNarrative = wire.Narrative
		result.Analysis.Substitutes = wire.Substitutes
	}
	return result, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	body, err := c.do(req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decoding %s: %v", domain.ErrProtocol, path, err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classify(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s returned %d", domain.ErrTransport, req.URL.Path, resp.StatusCode)
	}
	return body, nil
}

// classify maps a transport failure to the analysis error taxonomy.
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrTimeout, err)
	}
	var ue *url.Error
	if errors.As(err, &ue) && ue.Timeout() {
		return fmt.Errorf("%w: %v", domain.ErrTimeout, err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: %v", domain.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", domain.ErrTransport, err)
}
