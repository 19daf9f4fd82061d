package workflow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/rohithpranav45/storeiq/internal/application"
	appanalysis "github.com/rohithpranav45/storeiq/internal/application/analysis"
	domain "github.com/rohithpranav45/storeiq/internal/domain/analysis"
	"github.com/rohithpranav45/storeiq/internal/domain/catalog"
	"github.com/rohithpranav45/storeiq/internal/domain/dashboard"
	"github.com/rohithpranav45/storeiq/internal/domain/roi"
)

// State of the navigation machine. Each state decides which data set must be
// resident: stores, the bulk-loaded catalog, or a single product's analysis.
type State string

const (
	StateStoreSelection      State = "store_selection"
	StateDepartmentSelection State = "department_selection"
	StateDepartmentDashboard State = "department_dashboard"
	StateProductDetail       State = "product_detail"
)

// Navigation/ROI error values
var (
	ErrBadTransition  = errors.New("transition not allowed in current state")
	ErrUnknownStore   = errors.New("unknown store")
	ErrUnknownProduct = errors.New("unknown product")
	ErrTariffsMissing = errors.New("tariff data unavailable")
	ErrNoAdvantage    = errors.New("substitute offers no sourcing advantage")
)

// Service owns one navigation session per operator.
type Service struct {
	Client    domain.Client
	Prefs     catalog.PreferenceStore
	History   domain.HistoryRepository // optional
	Snapshots domain.SnapshotStore     // optional
	Clock     application.Clock

	mu       sync.Mutex
	sessions map[string]*Session
}

// Session returns the operator's session, creating it on first use. A
// persisted store selection skips the StoreSelection state and triggers the
// initial bulk load; a failed load is recoverable via Retry.
func (s *Service) Session(ctx context.Context, operator string) *Session {
	s.mu.Lock()
	if s.sessions == nil {
		s.sessions = make(map[string]*Session)
	}
	if sess, ok := s.sessions[operator]; ok {
		s.mu.Unlock()
		return sess
	}
	sess := &Session{
		svc:      s,
		operator: operator,
		state:    StateStoreSelection,
		filter:   dashboard.FilterAll,
		orch:     appanalysis.NewOrchestrator(s.Client, s.History, s.Snapshots, s.Clock, operator),
	}
	s.sessions[operator] = sess
	s.mu.Unlock()

	if s.Prefs != nil {
		store, err := s.Prefs.SelectedStore(operator)
		if err != nil {
			log.Printf("store preference read failed: operator=%s err=%v", operator, err)
		} else if store != nil {
			sess.mu.Lock()
			sess.store = store
			sess.state = StateDepartmentSelection
			if err := sess.bulkLoadLocked(ctx); err != nil {
				log.Printf("initial bulk load failed: operator=%s store=%s err=%v", operator, store.ID, err)
			}
			sess.mu.Unlock()
		}
	}
	return sess
}

// Session is the explicit state-machine context for one operator. All
// transitions run under its lock; the catalog snapshots it holds are
// read-only and replaced wholesale by a bulk load.
type Session struct {
	svc      *Service
	operator string

	mu       sync.Mutex
	state    State
	store    *catalog.Store
	category string
	filter   string

	stores   []catalog.Store
	products []catalog.Product
	statuses dashboard.StatusMap
	tariffs  catalog.TariffTable
	loaded   bool
	loadErr  string

	orch *appanalysis.Orchestrator
}

// Stores lists the selectable stores, fetching once per session.
func (s *Session) Stores(ctx context.Context) ([]catalog.Store, error) {
	s.mu.Lock()
	cached := s.stores
	s.mu.Unlock()
	if cached != nil {
		return cached, nil
	}
	stores, err := s.svc.Client.ListStores(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.stores = stores
	s.mu.Unlock()
	return stores, nil
}

// SelectStore persists the choice, moves to DepartmentSelection and runs the
// bulk load. A load failure keeps prior data and does not move the machine
// backward; the operator retries explicitly.
func (s *Session) SelectStore(ctx context.Context, storeID catalog.StoreID) error {
	if storeID == "" {
		return fmt.Errorf("%w: store id is required", domain.ErrInvalidInput)
	}
	stores, err := s.Stores(ctx)
	if err != nil {
		return err
	}
	var selected *catalog.Store
	for i := range stores {
		if stores[i].ID == storeID {
			selected = &stores[i]
			break
		}
	}
	if selected == nil {
		return fmt.Errorf("%w: %s", ErrUnknownStore, storeID)
	}

	if s.svc.Prefs != nil {
		if err := s.svc.Prefs.SaveSelectedStore(s.operator, selected); err != nil {
			log.Printf("store preference save failed: operator=%s err=%v", s.operator, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.store = selected
	s.state = StateDepartmentSelection
	s.category = ""
	s.filter = dashboard.FilterAll
	s.orch.Stop()
	return s.bulkLoadLocked(ctx)
}

// Retry re-runs a failed bulk load. Operator-initiated only; there is no
// automatic retry or backoff.
func (s *Session) Retry(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil {
		return ErrBadTransition
	}
	return s.bulkLoadLocked(ctx)
}

// bulkLoadLocked fetches products, dashboard statuses and the tariff table
// in parallel. Products and statuses are required: if either fails the
// previous snapshots stay untouched and the load is marked failed. Tariffs
// alone failing degrades gracefully — the ROI engine goes inactive.
func (s *Session) bulkLoadLocked(ctx context.Context) error {
	var (
		wg          sync.WaitGroup
		products    []catalog.Product
		statuses    dashboard.StatusMap
		tariffs     catalog.TariffTable
		productsErr error
		statusesErr error
		tariffsErr  error
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		products, productsErr = s.svc.Client.ListProducts(ctx)
	}()
	go func() {
		defer wg.Done()
		statuses, statusesErr = s.svc.Client.DashboardStatuses(ctx)
	}()
	go func() {
		defer wg.Done()
		tariffs, tariffsErr = s.svc.Client.TariffTable(ctx)
	}()
	wg.Wait()

	if productsErr != nil || statusesErr != nil {
		err := productsErr
		if err == nil {
			err = statusesErr
		}
		s.loadErr = domain.FallbackMessage(err)
		return fmt.Errorf("bulk load: %w", err)
	}

	s.products = products
	s.statuses = statuses
	if tariffsErr != nil {
		log.Printf("tariff table unavailable, ROI disabled: operator=%s err=%v", s.operator, tariffsErr)
		s.tariffs = nil
	} else {
		s.tariffs = tariffs
	}
	s.loaded = true
	s.loadErr = ""
	return nil
}

// SelectDepartment is a pure transition: it filters the already-loaded
// catalog, no fetch.
func (s *Session) SelectDepartment(category string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateDepartmentSelection && s.state != StateDepartmentDashboard {
		return ErrBadTransition
	}
	if !s.loaded {
		return fmt.Errorf("%w: catalog not loaded", ErrBadTransition)
	}
	found := false
	for _, c := range catalog.Categories(s.products) {
		if c == category {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("unknown category: %q", category)
	}
	s.category = category
	s.filter = dashboard.FilterAll
	s.state = StateDepartmentDashboard
	return nil
}

// SetFilter changes the active dashboard status filter.
func (s *Session) SetFilter(filter string) error {
	if filter != dashboard.FilterAll {
		if _, err := dashboard.ParseStatus(filter); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = filter
	return nil
}

// SelectProduct opens the product detail and delegates to the orchestrator.
// An absent product is rejected as a no-op: logged, state unchanged.
func (s *Session) SelectProduct(ctx context.Context, productID catalog.ProductID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateDepartmentDashboard {
		return ErrBadTransition
	}
	if productID == "" {
		log.Printf("select product rejected, missing id: operator=%s", s.operator)
		return fmt.Errorf("%w: product id is required", domain.ErrInvalidInput)
	}
	product := s.findProductLocked(productID)
	if product == nil {
		log.Printf("select product rejected, not in catalog: operator=%s product=%s", s.operator, productID)
		return fmt.Errorf("%w: %s", ErrUnknownProduct, productID)
	}
	if err := s.orch.Start(ctx, product.ID, s.store.ID); err != nil {
		return err
	}
	s.state = StateProductDetail
	return nil
}

// Rerun forwards operator overrides to the orchestrator.
func (s *Session) Rerun(ctx context.Context, ov domain.Overrides) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateProductDetail {
		return ErrBadTransition
	}
	return s.orch.Rerun(ctx, ov)
}

// Back pops one navigation level. Leaving the product detail discards its
// analysis and simulation state; the dashboard keeps the last bulk load and
// is not re-fetched per visit.
func (s *Session) Back() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateProductDetail:
		s.orch.Stop()
		s.state = StateDepartmentDashboard
	case StateDepartmentDashboard:
		s.category = ""
		s.filter = dashboard.FilterAll
		s.state = StateDepartmentSelection
	case StateDepartmentSelection:
		s.state = StateStoreSelection
	default:
		return ErrBadTransition
	}
	return nil
}

// ChangeStore clears the persisted selection and all store-scoped state.
func (s *Session) ChangeStore() error {
	if s.svc.Prefs != nil {
		if err := s.svc.Prefs.ClearSelectedStore(s.operator); err != nil {
			log.Printf("store preference clear failed: operator=%s err=%v", s.operator, err)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orch.Stop()
	s.store = nil
	s.category = ""
	s.filter = dashboard.FilterAll
	s.products = nil
	s.statuses = nil
	s.tariffs = nil
	s.loaded = false
	s.loadErr = ""
	s.state = StateStoreSelection
	return nil
}

// DashboardView is the aggregated payload for the department dashboard.
type DashboardView struct {
	Category     string                  `json:"category"`
	ActiveFilter string                  `json:"activeFilter"`
	AllCount     int                     `json:"allCount"`
	Counts       []dashboard.StatusCount `json:"counts"`
	Products     []catalog.Product       `json:"products"`
}

// Dashboard aggregates counts and the filtered product list for the selected
// department. Counts are category-scoped: only products visible in the
// department back them.
func (s *Session) Dashboard() (*DashboardView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.category == "" {
		return nil, ErrBadTransition
	}
	visible := catalog.FilterByCategory(s.products, s.category)
	counts := dashboard.StatusCounts(visible, s.statuses)
	return &DashboardView{
		Category:     s.category,
		ActiveFilter: s.filter,
		AllCount:     len(visible),
		Counts:       dashboard.OrderedCounts(counts),
		Products:     dashboard.FilterByStatus(visible, s.statuses, s.filter),
	}, nil
}

// Analysis exposes the orchestrator's visible state for the detail view.
func (s *Session) Analysis() appanalysis.Snapshot {
	return s.orch.State()
}

// ROI compares the open product's sourcing against a substitute. With an
// empty substituteID the top-ranked substitute from the current analysis is
// used. Returns (nil, nil) when both guards suppress the comparison.
func (s *Session) ROI(substituteID catalog.ProductID) (*roi.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateProductDetail {
		return nil, ErrBadTransition
	}
	if len(s.tariffs) == 0 {
		return nil, ErrTariffsMissing
	}
	snap := s.orch.State()
	primary := s.findProductLocked(snap.ProductID)
	if primary == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProduct, snap.ProductID)
	}
	if substituteID == "" {
		if snap.Result == nil || len(snap.Result.Analysis.Substitutes) == 0 {
			return nil, fmt.Errorf("%w: no substitute available", ErrNoAdvantage)
		}
		substituteID = snap.Result.Analysis.Substitutes[0].ID
	}
	substitute := s.findProductLocked(substituteID)
	if substitute == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProduct, substituteID)
	}
	return roi.Compute(*primary, *substitute, s.tariffs), nil
}

// SessionView is the state snapshot for the session endpoint.
type SessionView struct {
	Operator   string         `json:"operator"`
	State      State          `json:"state"`
	Store      *catalog.Store `json:"store,omitempty"`
	Categories []string       `json:"categories,omitempty"`
	Category   string         `json:"category,omitempty"`
	Loaded     bool           `json:"loaded"`
	LoadError  string         `json:"loadError,omitempty"`
	ROIActive  bool           `json:"roiActive"`
}

// View returns the session snapshot.
func (s *Session) View() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionView{
		Operator:   s.operator,
		State:      s.state,
		Store:      s.store,
		Categories: catalog.Categories(s.products),
		Category:   s.category,
		Loaded:     s.loaded,
		LoadError:  s.loadErr,
		ROIActive:  len(s.tariffs) > 0,
	}
}

// OpenProduct returns the product currently open in the detail view, or nil.
func (s *Session) OpenProduct() *catalog.Product {
	snap := s.orch.State()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateProductDetail {
		return nil
	}
	return s.findProductLocked(snap.ProductID)
}

func (s *Session) findProductLocked(id catalog.ProductID) *catalog.Product {
	for i := range s.products {
		if s.products[i].ID == id {
			return &s.products[i]
		}
	}
	return nil
}
