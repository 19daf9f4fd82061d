package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	appbriefing "github.com/rohithpranav45/storeiq/internal/application/briefing"
	"github.com/rohithpranav45/storeiq/internal/application/workflow"
	domain "github.com/rohithpranav45/storeiq/internal/domain/analysis"
	briefingdomain "github.com/rohithpranav45/storeiq/internal/domain/briefing"
	"github.com/rohithpranav45/storeiq/internal/domain/catalog"
	"github.com/rohithpranav45/storeiq/internal/middleware"
)

type Router struct {
	workflowSvc *workflow.Service
	briefingSvc *appbriefing.Service     // optional
	history     domain.HistoryRepository // optional
}

func NewRouter(workflowSvc *workflow.Service, briefingSvc *appbriefing.Service, history domain.HistoryRepository) http.Handler {
	r := &Router{workflowSvc: workflowSvc, briefingSvc: briefingSvc, history: history}
	mux := chi.NewRouter()

	mux.Route("/v1/{operator}", func(rt chi.Router) {
		rt.Get("/stores", r.wrap(r.handleStores))
		rt.Get("/session", r.wrap(r.handleSession))
		rt.Post("/session/store", r.wrap(r.handleSelectStore))
		rt.Delete("/session/store", r.wrap(r.handleChangeStore))
		rt.Post("/session/retry", r.wrap(r.handleRetry))
		rt.Post("/session/department", r.wrap(r.handleSelectDepartment))
		rt.Post("/session/back", r.wrap(r.handleBack))
		rt.Get("/dashboard", r.wrap(r.handleDashboard))
		rt.Post("/product", r.wrap(r.handleSelectProduct))
		rt.Post("/product/rerun", r.wrap(r.handleRerun))
		rt.Get("/product/analysis", r.wrap(r.handleAnalysis))
		rt.Get("/product/roi", r.wrap(r.handleROI))
		rt.Post("/briefing", r.wrap(r.handleBriefing))
		rt.Get("/runs", r.wrap(r.handleRuns))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// wrap converts domain errors to HTTP statuses. No transport error from the
// analysis boundary escapes raw: by the time an error reaches here it is
// either a taxonomy value or already folded into a fallback result.
func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		operator := chi.URLParam(req, "operator")
		if err := middleware.ValidateOperator(operator); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := h(w, req); err != nil {
			switch {
			case errors.Is(err, domain.ErrInvalidInput):
				http.Error(w, err.Error(), http.StatusBadRequest)
			case errors.Is(err, workflow.ErrBadTransition):
				http.Error(w, err.Error(), http.StatusConflict)
			case errors.Is(err, workflow.ErrUnknownStore),
				errors.Is(err, workflow.ErrUnknownProduct):
				http.Error(w, err.Error(), http.StatusNotFound)
			case errors.Is(err, workflow.ErrTariffsMissing):
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
			case errors.Is(err, briefingdomain.ErrQuotaExceeded):
				http.Error(w, "ai quota exceeded", http.StatusTooManyRequests)
			case errors.Is(err, domain.ErrTransport), errors.Is(err, domain.ErrTimeout):
				http.Error(w, domain.FallbackMessage(err), http.StatusBadGateway)
			case errors.Is(err, domain.ErrProtocol):
				http.Error(w, domain.FallbackMessage(err), http.StatusBadGateway)
			default:
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
		}
	}
}

func (r *Router) session(req *http.Request) *workflow.Session {
	operator := chi.URLParam(req, "operator")
	return r.workflowSvc.Session(req.Context(), operator)
}

func writeJSON(w http.ResponseWriter, v any) error {
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(v)
}

// GET /v1/{operator}/stores
func (r *Router) handleStores(w http.ResponseWriter, req *http.Request) error {
	stores, err := r.session(req).Stores(req.Context())
	if err != nil {
		return err
	}
	return writeJSON(w, stores)
}

// GET /v1/{operator}/session
func (r *Router) handleSession(w http.ResponseWriter, req *http.Request) error {
	return writeJSON(w, r.session(req).View())
}

// POST /v1/{operator}/session/store  {"storeId": "..."}
func (r *Router) handleSelectStore(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		StoreID string `json:"storeId"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if err := middleware.ValidateID("store", body.StoreID); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	sess := r.session(req)
	if err := sess.SelectStore(req.Context(), catalog.StoreID(body.StoreID)); err != nil {
		middleware.IncrementBulkLoadsFailed()
		return err
	}
	middleware.IncrementBulkLoads()
	return writeJSON(w, sess.View())
}

// DELETE /v1/{operator}/session/store
func (r *Router) handleChangeStore(w http.ResponseWriter, req *http.Request) error {
	sess := r.session(req)
	if err := sess.ChangeStore(); err != nil {
		return err
	}
	return writeJSON(w, sess.View())
}

// POST /v1/{operator}/session/retry
func (r *Router) handleRetry(w http.ResponseWriter, req *http.Request) error {
	sess := r.session(req)
	if err := sess.Retry(req.Context()); err != nil {
		middleware.IncrementBulkLoadsFailed()
		return err
	}
	middleware.IncrementBulkLoads()
	return writeJSON(w, sess.View())
}

// POST /v1/{operator}/session/department  {"category": "..."}
func (r *Router) handleSelectDepartment(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Category string `json:"category"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	sess := r.session(req)
	if err := sess.SelectDepartment(body.Category); err != nil {
		return err
	}
	return writeJSON(w, sess.View())
}

// POST /v1/{operator}/session/back
func (r *Router) handleBack(w http.ResponseWriter, req *http.Request) error {
	sess := r.session(req)
	if err := sess.Back(); err != nil {
		return err
	}
	return writeJSON(w, sess.View())
}

// GET /v1/{operator}/dashboard?filter=Bulk%20Order
func (r *Router) handleDashboard(w http.ResponseWriter, req *http.Request) error {
	sess := r.session(req)
	if filter := req.URL.Query().Get("filter"); filter != "" {
		if err := middleware.ValidateStatusFilter(filter); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
		}
		if err := sess.SetFilter(filter); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
		}
	}
	view, err := sess.Dashboard()
	if err != nil {
		return err
	}
	return writeJSON(w, view)
}

// POST /v1/{operator}/product  {"productId": "..."}
func (r *Router) handleSelectProduct(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		ProductID string `json:"productId"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if err := middleware.ValidateID("product", body.ProductID); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	sess := r.session(req)
	if err := sess.SelectProduct(req.Context(), catalog.ProductID(body.ProductID)); err != nil {
		return err
	}
	middleware.IncrementAnalyses()
	return writeJSON(w, sess.Analysis())
}

// POST /v1/{operator}/product/rerun  {"customTariff": 0.2, "customDemand": -0.1}
func (r *Router) handleRerun(w http.ResponseWriter, req *http.Request) error {
	var ov domain.Overrides
	if err := json.NewDecoder(req.Body).Decode(&ov); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if err := middleware.ValidateTariffOverride(ov.CustomTariff); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if err := middleware.ValidateDemandOverride(ov.CustomDemand); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	sess := r.session(req)
	if err := sess.Rerun(req.Context(), ov); err != nil {
		return err
	}
	middleware.IncrementAnalyses()
	return writeJSON(w, sess.Analysis())
}

// GET /v1/{operator}/product/analysis
func (r *Router) handleAnalysis(w http.ResponseWriter, req *http.Request) error {
	return writeJSON(w, r.session(req).Analysis())
}

// GET /v1/{operator}/product/roi?substitute=prod-17
func (r *Router) handleROI(w http.ResponseWriter, req *http.Request) error {
	sub := catalog.ProductID(req.URL.Query().Get("substitute"))
	result, err := r.session(req).ROI(sub)
	if err != nil {
		return err
	}
	// nil means both guards suppressed the comparison: no advantage to show.
	return writeJSON(w, map[string]any{"roi": result})
}

// POST /v1/{operator}/briefing
func (r *Router) handleBriefing(w http.ResponseWriter, req *http.Request) error {
	if r.briefingSvc == nil {
		http.Error(w, "briefings are not configured", http.StatusNotImplemented)
		return nil
	}
	sess := r.session(req)
	snap := sess.Analysis()
	product := sess.OpenProduct()
	briefing, err := r.briefingSvc.Brief(req.Context(), product, snap.Result)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write([]byte(briefing))
	return err
}

// GET /v1/{operator}/runs?page=&page_size=
func (r *Router) handleRuns(w http.ResponseWriter, req *http.Request) error {
	if r.history == nil {
		http.Error(w, "run history is not configured", http.StatusNotImplemented)
		return nil
	}
	operator := chi.URLParam(req, "operator")
	page, _ := strconv.Atoi(req.URL.Query().Get("page"))
	size, _ := strconv.Atoi(req.URL.Query().Get("page_size"))
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}

	runs, err := r.history.Paginate(req.Context(), operator, page, size)
	if err != nil {
		return err
	}
	total, err := r.history.Count(req.Context(), operator)
	if err != nil {
		return err
	}
	return writeJSON(w, map[string]any{
		"data":       runs,
		"page":       page,
		"pageSize":   size,
		"totalItems": total,
	})
}
