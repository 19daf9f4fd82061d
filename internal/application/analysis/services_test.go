package analysis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohithpranav45/storeiq/internal/application"
	domain "github.com/rohithpranav45/storeiq/internal/domain/analysis"
	"github.com/rohithpranav45/storeiq/internal/domain/catalog"
	"github.com/rohithpranav45/storeiq/internal/domain/dashboard"
)

type analyzeReply struct {
	res *domain.Result
	raw []byte
	err error
}

type analyzeCall struct {
	req   domain.AnalyzeRequest
	reply chan analyzeReply
}

// gateClient hands each in-flight Analyze to the test, which releases them in
// whatever order the scenario needs.
type gateClient struct {
	calls chan analyzeCall
}

func newGateClient() *gateClient {
	return &gateClient{calls: make(chan analyzeCall, 16)}
}

func (c *gateClient) Analyze(ctx context.Context, req domain.AnalyzeRequest) (*domain.Result, []byte, error) {
	call := analyzeCall{req: req, reply: make(chan analyzeReply)}
	c.calls <- call
	r := <-call.reply
	return r.res, r.raw, r.err
}

func (c *gateClient) ListStores(ctx context.Context) ([]catalog.Store, error) { return nil, nil }
func (c *gateClient) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	return nil, nil
}
func (c *gateClient) DashboardStatuses(ctx context.Context) (dashboard.StatusMap, error) {
	return nil, nil
}
func (c *gateClient) TariffTable(ctx context.Context) (catalog.TariffTable, error) {
	return nil, nil
}

func (c *gateClient) next(t *testing.T) analyzeCall {
	t.Helper()
	select {
	case call := <-c.calls:
		return call
	case <-time.After(2 * time.Second):
		t.Fatal("no analyze call issued")
		return analyzeCall{}
	}
}

type memHistory struct {
	mu   sync.Mutex
	runs []*domain.Run
}

func (h *memHistory) Save(ctx context.Context, run *domain.Run) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.runs = append(h.runs, run)
	return nil
}

func (h *memHistory) Paginate(ctx context.Context, operator string, page, pageSize int) ([]*domain.Run, error) {
	return nil, nil
}

func (h *memHistory) Count(ctx context.Context, operator string) (int64, error) { return 0, nil }

func (h *memHistory) statuses() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.runs))
	for i, r := range h.runs {
		out[i] = r.Status
	}
	return out
}

func resultWith(rec dashboard.Status, tariffRate, demandSignal float64) *domain.Result {
	return &domain.Result{
		Recommendation: rec,
		Analysis: domain.Detail{
			Inputs: domain.Inputs{TariffRate: tariffRate, DemandSignal: demandSignal},
		},
	}
}

func TestStartRequiresIDs(t *testing.T) {
	o := NewOrchestrator(newGateClient(), nil, nil, application.SystemClock{}, "op")
	err := o.Start(context.Background(), "", "store-1")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	err = o.Start(context.Background(), "prod-1", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRerunRequiresOpenProduct(t *testing.T) {
	o := NewOrchestrator(newGateClient(), nil, nil, application.SystemClock{}, "op")
	err := o.Rerun(context.Background(), domain.Overrides{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestStartAppliesResultAndSeedsSimulation(t *testing.T) {
	client := newGateClient()
	o := NewOrchestrator(client, nil, nil, application.SystemClock{}, "op")

	require.NoError(t, o.Start(context.Background(), "prod-1", "store-1"))
	assert.True(t, o.State().Loading)

	call := client.next(t)
	assert.Equal(t, catalog.ProductID("prod-1"), call.req.ProductID)
	assert.Nil(t, call.req.CustomTariff)
	call.reply <- analyzeReply{res: resultWith(dashboard.StatusBulkOrder, 0.25, 0.4)}

	require.Eventually(t, func() bool { return !o.State().Loading }, 2*time.Second, 5*time.Millisecond)

	snap := o.State()
	require.NotNil(t, snap.Result)
	assert.Equal(t, dashboard.StatusBulkOrder, snap.Result.Recommendation)
	require.NotNil(t, snap.Simulation)
	require.NotNil(t, snap.Simulation.TariffOverride)
	assert.InDelta(t, 0.25, *snap.Simulation.TariffOverride, 1e-9)
	require.NotNil(t, snap.Simulation.DemandOverride)
	assert.InDelta(t, 0.4, *snap.Simulation.DemandOverride, 1e-9)
}

func TestSupersededRerunDiscardedOnArrival(t *testing.T) {
	client := newGateClient()
	history := &memHistory{}
	o := NewOrchestrator(client, history, nil, application.SystemClock{}, "op")

	require.NoError(t, o.Start(context.Background(), "prod-1", "store-1"))
	first := client.next(t)
	first.reply <- analyzeReply{res: resultWith(dashboard.StatusMonitor, 0.1, 0)}
	require.Eventually(t, func() bool { return !o.State().Loading }, 2*time.Second, 5*time.Millisecond)

	// Two reruns back to back: only the second may land. The goroutines
	// reach the gate in either order, so tell them apart by their override.
	tariff1, tariff2 := 0.10, 0.30
	require.NoError(t, o.Rerun(context.Background(), domain.Overrides{CustomTariff: &tariff1}))
	require.NoError(t, o.Rerun(context.Background(), domain.Overrides{CustomTariff: &tariff2}))
	a, b := client.next(t), client.next(t)
	stale, fresh := a, b
	if *a.req.CustomTariff != tariff1 {
		stale, fresh = b, a
	}
	require.InDelta(t, tariff1, *stale.req.CustomTariff, 1e-9)
	require.InDelta(t, tariff2, *fresh.req.CustomTariff, 1e-9)

	// The newer request completes first; the stale one arrives afterwards.
	fresh.reply <- analyzeReply{res: resultWith(dashboard.StatusHold, 0.30, 0)}
	require.Eventually(t, func() bool { return !o.State().Loading }, 2*time.Second, 5*time.Millisecond)
	stale.reply <- analyzeReply{res: resultWith(dashboard.StatusBulkOrder, 0.10, 0)}

	require.Eventually(t, func() bool {
		for _, st := range history.statuses() {
			if st == domain.RunSuperseded {
				return true
			}
		}
		return false
	}, 2*time.Second, 5*time.Millisecond)

	snap := o.State()
	require.NotNil(t, snap.Result)
	assert.Equal(t, dashboard.StatusHold, snap.Result.Recommendation)
	// The operator-set tariff survives; it is never overwritten by seeding.
	require.NotNil(t, snap.Simulation)
	assert.InDelta(t, 0.30, *snap.Simulation.TariffOverride, 1e-9)
}

func TestResponseForClosedProductDiscarded(t *testing.T) {
	client := newGateClient()
	o := NewOrchestrator(client, nil, nil, application.SystemClock{}, "op")

	require.NoError(t, o.Start(context.Background(), "prod-1", "store-1"))
	oldCall := client.next(t)

	// Operator moves to a different product while prod-1 is still in flight.
	require.NoError(t, o.Start(context.Background(), "prod-2", "store-1"))
	newCall := client.next(t)

	oldCall.reply <- analyzeReply{res: resultWith(dashboard.StatusBulkOrder, 0.2, 0)}

	// prod-1's late response must not surface under prod-2.
	assert.Never(t, func() bool {
		snap := o.State()
		return snap.Result != nil
	}, 200*time.Millisecond, 10*time.Millisecond)

	newCall.reply <- analyzeReply{res: resultWith(dashboard.StatusUseSubstitute, 0.05, 0)}
	require.Eventually(t, func() bool { return !o.State().Loading }, 2*time.Second, 5*time.Millisecond)

	snap := o.State()
	assert.Equal(t, catalog.ProductID("prod-2"), snap.ProductID)
	assert.Equal(t, dashboard.StatusUseSubstitute, snap.Result.Recommendation)
}

func TestFailureProducesFallback(t *testing.T) {
	client := newGateClient()
	o := NewOrchestrator(client, nil, nil, application.SystemClock{}, "op")

	require.NoError(t, o.Start(context.Background(), "prod-1", "store-1"))
	call := client.next(t)
	call.reply <- analyzeReply{err: domain.ErrTimeout}

	require.Eventually(t, func() bool { return !o.State().Loading }, 2*time.Second, 5*time.Millisecond)

	snap := o.State()
	require.NotNil(t, snap.Result)
	assert.Equal(t, dashboard.StatusError, snap.Result.Recommendation)
	assert.True(t, snap.Result.Analysis.Error)
	assert.Contains(t, snap.Result.Analysis.DecisionNarrative, "timed out")
	// A failed run never seeds the simulation.
	assert.Nil(t, snap.Simulation)
}

func TestStopClearsState(t *testing.T) {
	client := newGateClient()
	o := NewOrchestrator(client, nil, nil, application.SystemClock{}, "op")

	require.NoError(t, o.Start(context.Background(), "prod-1", "store-1"))
	call := client.next(t)
	o.Stop()
	call.reply <- analyzeReply{res: resultWith(dashboard.StatusBulkOrder, 0.2, 0)}

	assert.Never(t, func() bool {
		snap := o.State()
		return snap.Result != nil || snap.ProductID != ""
	}, 200*time.Millisecond, 10*time.Millisecond)
}
