package analysis

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rohithpranav45/storeiq/internal/application"
	domain "github.com/rohithpranav45/storeiq/internal/domain/analysis"
	"github.com/rohithpranav45/storeiq/internal/domain/catalog"
	"github.com/rohithpranav45/storeiq/internal/middleware"
)

// Orchestrator manages the analysis lifecycle for exactly one open product
// at a time: fetch -> display -> operator-driven re-run -> replace.
//
// Every request carries a per-product sequence number. Only the response
// matching the highest issued sequence for the currently open product may
// update visible state; anything else is dropped on arrival. That rule, not
// transport-level cancellation, is what keeps stale results off the screen.
type Orchestrator struct {
	client    domain.Client
	history   domain.HistoryRepository // optional
	snapshots domain.SnapshotStore     // optional
	clock     application.Clock
	operator  string

	mu        sync.Mutex
	productID catalog.ProductID
	storeID   catalog.StoreID
	seqs      map[catalog.ProductID]uint64 // highest issued seq per product
	loading   bool
	result    *domain.Result
	sim       *domain.Simulation
}

// NewOrchestrator wires an orchestrator for one operator session. History
// and snapshots may be nil; the audit trail is best-effort either way.
func NewOrchestrator(client domain.Client, history domain.HistoryRepository, snapshots domain.SnapshotStore, clock application.Clock, operator string) *Orchestrator {
	if clock == nil {
		clock = application.SystemClock{}
	}
	return &Orchestrator{
		client:    client,
		history:   history,
		snapshots: snapshots,
		clock:     clock,
		operator:  operator,
		seqs:      make(map[catalog.ProductID]uint64),
	}
}

// Snapshot is the orchestrator state the detail view renders from.
type Snapshot struct {
	ProductID  catalog.ProductID  `json:"productId,omitempty"`
	Loading    bool               `json:"loading"`
	Result     *domain.Result     `json:"result,omitempty"`
	Simulation *domain.Simulation `json:"simulation,omitempty"`
}

// Start opens productID and issues a fresh analysis with no overrides.
// Opening a different product discards the previous product's result and
// simulation state; its in-flight responses fail the identity check when
// they eventually arrive.
func (o *Orchestrator) Start(ctx context.Context, productID catalog.ProductID, storeID catalog.StoreID) error {
	if productID == "" || storeID == "" {
		return fmt.Errorf("%w: product and store ids are required", domain.ErrInvalidInput)
	}

	o.mu.Lock()
	if productID != o.productID {
		o.result = nil
		o.sim = nil
	}
	o.productID = productID
	o.storeID = storeID
	o.seqs[productID]++
	seq := o.seqs[productID]
	o.loading = true
	o.mu.Unlock()

	go o.run(productID, storeID, seq, nil)
	return nil
}

// Rerun re-scores the open product with operator overrides. At most one
// rerun is live per product: a newer call supersedes any outstanding one,
// and the superseded response is discarded whenever it arrives.
func (o *Orchestrator) Rerun(ctx context.Context, ov domain.Overrides) error {
	o.mu.Lock()
	if o.productID == "" {
		o.mu.Unlock()
		return fmt.Errorf("%w: no analysis started", domain.ErrInvalidInput)
	}
	if o.sim == nil {
		o.sim = &domain.Simulation{}
	}
	// Only the fields the operator touched move; the rest keep their value.
	if ov.CustomTariff != nil {
		o.sim.TariffOverride = ov.CustomTariff
	}
	if ov.CustomDemand != nil {
		o.sim.DemandOverride = ov.CustomDemand
	}
	productID, storeID := o.productID, o.storeID
	o.seqs[productID]++
	seq := o.seqs[productID]
	o.loading = true
	o.mu.Unlock()

	go o.run(productID, storeID, seq, &ov)
	return nil
}

// Stop is called on navigation away from the product. Outstanding requests
// are not aborted at the transport level; clearing the open product makes
// their results fail the identity check on arrival, which is equivalent.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	o.productID = ""
	o.storeID = ""
	o.result = nil
	o.sim = nil
	o.loading = false
	o.mu.Unlock()
}

// State returns a copy of the visible orchestrator state.
func (o *Orchestrator) State() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	snap := Snapshot{
		ProductID: o.productID,
		Loading:   o.loading,
		Result:    o.result,
	}
	if o.sim != nil {
		sim := *o.sim
		snap.Simulation = &sim
	}
	return snap
}

// run performs one remote call and applies the discard rules on arrival.
// It is detached from the caller's context: the HTTP handler returns before
// the response lands, and discard-on-arrival needs the response to land.
func (o *Orchestrator) run(productID catalog.ProductID, storeID catalog.StoreID, seq uint64, ov *domain.Overrides) {
	start := o.clock.Now()
	req := domain.AnalyzeRequest{ProductID: productID, StoreID: storeID}
	if ov != nil {
		req.CustomTariff = ov.CustomTariff
		req.CustomDemand = ov.CustomDemand
	}

	res, raw, err := o.client.Analyze(context.Background(), req)
	durationMS := o.clock.Now().Sub(start).Milliseconds()

	o.mu.Lock()
	if productID != o.productID || seq != o.seqs[productID] {
		// Superseded or the operator moved on. Never shown.
		o.mu.Unlock()
		middleware.IncrementAnalysesDiscarded()
		o.record(productID, storeID, seq, start, durationMS, domain.RunSuperseded, nil, ov, nil)
		return
	}
	if err != nil {
		log.Printf("analysis failed: operator=%s product=%s seq=%d err=%v", o.operator, productID, seq, err)
		middleware.IncrementAnalysesFailed()
		res = domain.FallbackResult(domain.FallbackMessage(err))
	}
	o.result = res
	o.loading = false
	if err == nil {
		if o.sim == nil {
			o.sim = &domain.Simulation{}
		}
		o.sim.SeedFrom(res.Analysis.Inputs)
	}
	o.mu.Unlock()

	status := domain.RunSuccess
	if err != nil {
		status = domain.RunFailed
	}
	o.record(productID, storeID, seq, start, durationMS, status, res, ov, raw)
}

// record persists the audit trail for one run. Best-effort: failures are
// logged, never surfaced, and never undo a committed result.
func (o *Orchestrator) record(productID catalog.ProductID, storeID catalog.StoreID, seq uint64, requestedAt time.Time, durationMS int64, status string, res *domain.Result, ov *domain.Overrides, raw []byte) {
	if o.history == nil && o.snapshots == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	run := &domain.Run{
		ID:          domain.RunID(uuid.New().String()),
		Operator:    o.operator,
		ProductID:   productID,
		StoreID:     storeID,
		Seq:         seq,
		RequestedAt: requestedAt,
		Status:      status,
		DurationMS:  durationMS,
	}
	if res != nil {
		run.Recommendation = res.Recommendation
		run.Scores = res.Analysis.Scores
	}
	if ov != nil {
		run.CustomTariff = ov.CustomTariff
		run.CustomDemand = ov.CustomDemand
	}

	if o.snapshots != nil && len(raw) > 0 && status == domain.RunSuccess {
		key := fmt.Sprintf("%s/%s/%s.json", o.operator, productID, run.ID)
		url, err := o.snapshots.Put(ctx, key, raw)
		if err != nil {
			log.Printf("snapshot upload failed: operator=%s product=%s err=%v", o.operator, productID, err)
		} else {
			run.ArtifactURL = url
		}
	}
	if o.history != nil {
		if err := o.history.Save(ctx, run); err != nil {
			log.Printf("run history save failed: operator=%s product=%s err=%v", o.operator, productID, err)
		}
	}
}
