package workflow

import (
	"context"
	"errors"
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

// stubClient serves a fixed catalog, with per-endpoint error injection.
type stubClient struct {
	mu          sync.Mutex
	stores      []catalog.Store
	products    []catalog.Product
	statuses    dashboard.StatusMap
	tariffs     catalog.TariffTable
	productsErr error
	statusesErr error
	tariffsErr  error
	result      *domain.Result
}

func (c *stubClient) ListStores(ctx context.Context) ([]catalog.Store, error) {
	return c.stores, nil
}

func (c *stubClient) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.productsErr != nil {
		return nil, c.productsErr
	}
	return c.products, nil
}

func (c *stubClient) DashboardStatuses(ctx context.Context) (dashboard.StatusMap, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.statusesErr != nil {
		return nil, c.statusesErr
	}
	return c.statuses, nil
}

func (c *stubClient) TariffTable(ctx context.Context) (catalog.TariffTable, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tariffsErr != nil {
		return nil, c.tariffsErr
	}
	return c.tariffs, nil
}

func (c *stubClient) Analyze(ctx context.Context, req domain.AnalyzeRequest) (*domain.Result, []byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.result == nil {
		return nil, nil, domain.ErrTransport
	}
	return c.result, []byte(`{}`), nil
}

func (c *stubClient) set(f func(*stubClient)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f(c)
}

type memPrefs struct {
	mu     sync.Mutex
	stores map[string]*catalog.Store
}

func newMemPrefs() *memPrefs { return &memPrefs{stores: make(map[string]*catalog.Store)} }

func (p *memPrefs) SaveSelectedStore(operator string, store *catalog.Store) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := *store
	p.stores[operator] = &cp
	return nil
}

func (p *memPrefs) SelectedStore(operator string) (*catalog.Store, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stores[operator], nil
}

func (p *memPrefs) ClearSelectedStore(operator string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.stores, operator)
	return nil
}

func fixtureClient() *stubClient {
	return &stubClient{
		stores: []catalog.Store{
			{ID: "store-1", Name: "Downtown", City: "Austin", State: "TX"},
			{ID: "store-2", Name: "Riverside", City: "Dallas", State: "TX"},
		},
		products: []catalog.Product{
			{ID: "p1", Name: "4K TV", Category: "Electronics", Price: 20, BaseCost: 10,
				CountryOfOrigin: "China", Inventory: catalog.Inventory{Stock: 100}},
			{ID: "p2", Name: "HD TV", Category: "Electronics", Price: 18, BaseCost: 9,
				CountryOfOrigin: "Mexico", Inventory: catalog.Inventory{Stock: 40}},
			{ID: "p3", Name: "Blender", Category: "Home", Price: 30, BaseCost: 12,
				CountryOfOrigin: "China", Inventory: catalog.Inventory{Stock: 15}},
		},
		statuses: dashboard.StatusMap{
			"p1": dashboard.StatusBulkOrder,
			"p2": dashboard.StatusMonitor,
			"p3": dashboard.StatusBulkOrder,
		},
		tariffs: catalog.TariffTable{
			"China":  {"Electronics": 0.25, "Home": 0.25},
			"Mexico": {"Electronics": 0.05},
		},
		result: &domain.Result{
			Recommendation: dashboard.StatusBulkOrder,
			Analysis: domain.Detail{
				Inputs:      domain.Inputs{TariffRate: 0.25, DemandSignal: 0.4},
				Substitutes: []domain.Substitute{{ID: "p2", Name: "HD TV", Similarity: 0.9}},
			},
		},
	}
}

func newService(client *stubClient, prefs catalog.PreferenceStore) *Service {
	return &Service{Client: client, Prefs: prefs, Clock: application.SystemClock{}}
}

// openDetail drives a fresh session down to the product detail view.
func openDetail(t *testing.T, sess *Session) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, sess.SelectStore(ctx, "store-1"))
	require.NoError(t, sess.SelectDepartment("Electronics"))
	require.NoError(t, sess.SelectProduct(ctx, "p1"))
	require.Eventually(t, func() bool {
		return !sess.Analysis().Loading
	}, 2*time.Second, 5*time.Millisecond)
}

func TestSelectStoreLoadsCatalog(t *testing.T) {
	prefs := newMemPrefs()
	svc := newService(fixtureClient(), prefs)
	sess := svc.Session(context.Background(), "op")

	require.Equal(t, StateStoreSelection, sess.View().State)
	require.NoError(t, sess.SelectStore(context.Background(), "store-1"))

	view := sess.View()
	assert.Equal(t, StateDepartmentSelection, view.State)
	assert.True(t, view.Loaded)
	assert.True(t, view.ROIActive)
	assert.ElementsMatch(t, []string{"Electronics", "Home"}, view.Categories)

	saved, err := prefs.SelectedStore("op")
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, catalog.StoreID("store-1"), saved.ID)
}

func TestSelectStoreUnknown(t *testing.T) {
	svc := newService(fixtureClient(), newMemPrefs())
	sess := svc.Session(context.Background(), "op")
	err := sess.SelectStore(context.Background(), "store-99")
	assert.ErrorIs(t, err, ErrUnknownStore)
	assert.Equal(t, StateStoreSelection, sess.View().State)
}

func TestPersistedStoreSkipsSelection(t *testing.T) {
	prefs := newMemPrefs()
	require.NoError(t, prefs.SaveSelectedStore("op", &catalog.Store{ID: "store-1", Name: "Downtown"}))

	svc := newService(fixtureClient(), prefs)
	sess := svc.Session(context.Background(), "op")

	view := sess.View()
	assert.Equal(t, StateDepartmentSelection, view.State)
	assert.True(t, view.Loaded)
	require.NotNil(t, view.Store)
	assert.Equal(t, catalog.StoreID("store-1"), view.Store.ID)
}

func TestBulkLoadFailureIsRetryable(t *testing.T) {
	client := fixtureClient()
	client.set(func(c *stubClient) { c.productsErr = domain.ErrTransport })

	svc := newService(client, newMemPrefs())
	sess := svc.Session(context.Background(), "op")

	err := sess.SelectStore(context.Background(), "store-1")
	require.Error(t, err)

	view := sess.View()
	// The machine moved forward; only the data is missing.
	assert.Equal(t, StateDepartmentSelection, view.State)
	assert.False(t, view.Loaded)
	assert.NotEmpty(t, view.LoadError)

	client.set(func(c *stubClient) { c.productsErr = nil })
	require.NoError(t, sess.Retry(context.Background()))
	view = sess.View()
	assert.True(t, view.Loaded)
	assert.Empty(t, view.LoadError)
}

func TestTariffFailureDegradesROIOnly(t *testing.T) {
	client := fixtureClient()
	client.set(func(c *stubClient) { c.tariffsErr = errors.New("boom") })

	svc := newService(client, newMemPrefs())
	sess := svc.Session(context.Background(), "op")
	require.NoError(t, sess.SelectStore(context.Background(), "store-1"))

	view := sess.View()
	assert.True(t, view.Loaded)
	assert.False(t, view.ROIActive)

	require.NoError(t, sess.SelectDepartment("Electronics"))
	require.NoError(t, sess.SelectProduct(context.Background(), "p1"))
	_, err := sess.ROI("")
	assert.ErrorIs(t, err, ErrTariffsMissing)
}

func TestSelectDepartmentValidatesCategory(t *testing.T) {
	svc := newService(fixtureClient(), newMemPrefs())
	sess := svc.Session(context.Background(), "op")
	require.NoError(t, sess.SelectStore(context.Background(), "store-1"))

	assert.Error(t, sess.SelectDepartment("Garden"))
	assert.Equal(t, StateDepartmentSelection, sess.View().State)

	require.NoError(t, sess.SelectDepartment("Electronics"))
	assert.Equal(t, StateDepartmentDashboard, sess.View().State)
}

func TestDashboardCountsAreCategoryScoped(t *testing.T) {
	svc := newService(fixtureClient(), newMemPrefs())
	sess := svc.Session(context.Background(), "op")
	require.NoError(t, sess.SelectStore(context.Background(), "store-1"))
	require.NoError(t, sess.SelectDepartment("Electronics"))

	view, err := sess.Dashboard()
	require.NoError(t, err)
	assert.Equal(t, 2, view.AllCount)
	// p3 is Bulk Order but lives in Home; it must not back this count.
	require.Len(t, view.Counts, 2)
	assert.Equal(t, dashboard.StatusBulkOrder, view.Counts[0].Status)
	assert.Equal(t, 1, view.Counts[0].Count)

	require.NoError(t, sess.SetFilter(string(dashboard.StatusMonitor)))
	view, err = sess.Dashboard()
	require.NoError(t, err)
	require.Len(t, view.Products, 1)
	assert.Equal(t, catalog.ProductID("p2"), view.Products[0].ID)
}

func TestSelectProductRejectsAbsent(t *testing.T) {
	svc := newService(fixtureClient(), newMemPrefs())
	sess := svc.Session(context.Background(), "op")
	require.NoError(t, sess.SelectStore(context.Background(), "store-1"))
	require.NoError(t, sess.SelectDepartment("Electronics"))

	err := sess.SelectProduct(context.Background(), "p99")
	assert.ErrorIs(t, err, ErrUnknownProduct)
	assert.Equal(t, StateDepartmentDashboard, sess.View().State)
}

func TestBackWalksUpTheStack(t *testing.T) {
	svc := newService(fixtureClient(), newMemPrefs())
	sess := svc.Session(context.Background(), "op")
	openDetail(t, sess)

	require.NoError(t, sess.Back())
	assert.Equal(t, StateDepartmentDashboard, sess.View().State)
	// Leaving the detail view discards the analysis.
	snap := sess.Analysis()
	assert.Empty(t, snap.ProductID)
	assert.Nil(t, snap.Result)

	require.NoError(t, sess.Back())
	view := sess.View()
	assert.Equal(t, StateDepartmentSelection, view.State)
	assert.Empty(t, view.Category)

	require.NoError(t, sess.Back())
	assert.Equal(t, StateStoreSelection, sess.View().State)

	assert.ErrorIs(t, sess.Back(), ErrBadTransition)
}

func TestNavigationResetsSimulationState(t *testing.T) {
	svc := newService(fixtureClient(), newMemPrefs())
	sess := svc.Session(context.Background(), "op")
	openDetail(t, sess)

	tariff := 0.9
	require.NoError(t, sess.Rerun(context.Background(), domain.Overrides{CustomTariff: &tariff}))
	require.Eventually(t, func() bool {
		snap := sess.Analysis()
		return !snap.Loading && snap.Simulation != nil && *snap.Simulation.TariffOverride == 0.9
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, sess.Back())
	require.NoError(t, sess.SelectProduct(context.Background(), "p2"))
	require.Eventually(t, func() bool { return !sess.Analysis().Loading }, 2*time.Second, 5*time.Millisecond)

	// The new product seeds fresh from its own result, never from the
	// previous product's overrides.
	snap := sess.Analysis()
	require.NotNil(t, snap.Simulation)
	assert.InDelta(t, 0.25, *snap.Simulation.TariffOverride, 1e-9)
}

func TestChangeStoreClearsEverything(t *testing.T) {
	prefs := newMemPrefs()
	svc := newService(fixtureClient(), prefs)
	sess := svc.Session(context.Background(), "op")
	openDetail(t, sess)

	require.NoError(t, sess.ChangeStore())

	view := sess.View()
	assert.Equal(t, StateStoreSelection, view.State)
	assert.Nil(t, view.Store)
	assert.False(t, view.Loaded)
	assert.Empty(t, view.Categories)

	saved, err := prefs.SelectedStore("op")
	require.NoError(t, err)
	assert.Nil(t, saved)
}

func TestROIDefaultsToTopSubstitute(t *testing.T) {
	svc := newService(fixtureClient(), newMemPrefs())
	sess := svc.Session(context.Background(), "op")
	openDetail(t, sess)

	r, err := sess.ROI("")
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, "China", r.PrimaryCountry)
	assert.Equal(t, "Mexico", r.SubstituteCountry)
	assert.InDelta(t, 2.0, r.SavingsPerUnit, 1e-9)
	assert.InDelta(t, 200.0, r.TotalSavings, 1e-9)
}

func TestROIOutsideDetailView(t *testing.T) {
	svc := newService(fixtureClient(), newMemPrefs())
	sess := svc.Session(context.Background(), "op")
	require.NoError(t, sess.SelectStore(context.Background(), "store-1"))
	_, err := sess.ROI("")
	assert.ErrorIs(t, err, ErrBadTransition)
}

func TestSessionIsPerOperator(t *testing.T) {
	svc := newService(fixtureClient(), newMemPrefs())
	a := svc.Session(context.Background(), "alice")
	b := svc.Session(context.Background(), "bob")
	require.NotSame(t, a, b)

	require.NoError(t, a.SelectStore(context.Background(), "store-1"))
	assert.Equal(t, StateDepartmentSelection, a.View().State)
	assert.Equal(t, StateStoreSelection, b.View().State)

	again := svc.Session(context.Background(), "alice")
	assert.Same(t, a, again)
}
