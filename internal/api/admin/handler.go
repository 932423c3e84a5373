package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"fincal/internal/domain/calendar"
	calendarsvc "fincal/internal/services/calendar"
	"fincal/pkg/errors"
	"fincal/pkg/logger"
)

// SyncService is what the admin endpoints drive
type SyncService interface {
	Sync(ctx context.Context, job string, override *calendar.Window) (*calendar.RunReport, error)
	RecentRuns(ctx context.Context, job string, limit int) ([]calendar.RunReport, error)
	Jobs() []calendarsvc.Job
}

// requestTimeout bounds the response of a manual sync
const requestTimeout = 30 * time.Minute

// Handler serves the operator endpoints
type Handler struct {
	service SyncService
	log     *logger.Logger
}

// NewHandler creates the admin handler
func NewHandler(service SyncService, log *logger.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With("component", "admin_api"),
	}
}

// Register mounts the admin routes on mux behind bearer auth
func (h *Handler) Register(mux *http.ServeMux, token string) {
	auth := NewAuthMiddleware(token, h.log)
	mux.Handle("POST /admin/sync/{job}", auth.Handler(http.HandlerFunc(h.HandleSync)))
	mux.Handle("GET /admin/runs", auth.Handler(http.HandlerFunc(h.HandleRuns)))
	mux.Handle("GET /admin/jobs", auth.Handler(http.HandlerFunc(h.HandleJobs)))
}

// errorResponse is the body of every non-2xx reply
type errorResponse struct {
	Error  string              `json:"error"`
	Report *calendar.RunReport `json:"report,omitempty"`
}

// HandleSync runs a job now: POST /admin/sync/{job}?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *Handler) HandleSync(w http.ResponseWriter, r *http.Request) {
	job := r.PathValue("job")

	var override *calendar.Window
	from, to := r.URL.Query().Get("from"), r.URL.Query().Get("to")
	if from != "" || to != "" {
		if from == "" || to == "" {
			h.writeError(w, errors.NewValidationError("window", "from and to must be given together", from+".."+to), nil)
			return
		}
		window, err := calendar.ParseWindow(from, to)
		if err != nil {
			h.writeError(w, err, nil)
			return
		}
		override = &window
	}

	// the server write timeout is sized for probes, not for runs
	_ = http.NewResponseController(w).SetWriteDeadline(time.Now().Add(requestTimeout))

	h.log.Infow("Manual sync requested", "job", job, "from", from, "to", to, "remote_addr", r.RemoteAddr)

	report, err := h.service.Sync(r.Context(), job, override)
	if err != nil {
		h.writeError(w, err, report)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// HandleRuns lists recent run reports: GET /admin/runs?limit=N&job=name
func (h *Handler) HandleRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.writeError(w, errors.NewValidationError("limit", "must be a positive integer", raw), nil)
			return
		}
		limit = n
	}

	runs, err := h.service.RecentRuns(r.Context(), r.URL.Query().Get("job"), limit)
	if err != nil {
		h.writeError(w, err, nil)
		return
	}
	if runs == nil {
		runs = []calendar.RunReport{}
	}

	writeJSON(w, http.StatusOK, runs)
}

// jobView is the public shape of a configured job
type jobView struct {
	Name      string                `json:"name"`
	Kind      calendar.Kind         `json:"kind"`
	Enabled   bool                  `json:"enabled"`
	Interval  string                `json:"interval"`
	Window    calendar.WindowPolicy `json:"window"`
	Providers []string              `json:"providers"`
	Catalog   int                   `json:"catalogSize"`
	BatchSize int                   `json:"batchSize"`
}

// HandleJobs lists the configured jobs: GET /admin/jobs
func (h *Handler) HandleJobs(w http.ResponseWriter, r *http.Request) {
	jobs := h.service.Jobs()
	views := make([]jobView, 0, len(jobs))
	for _, j := range jobs {
		providers := make([]string, 0, len(j.Providers))
		for _, p := range j.Providers {
			providers = append(providers, p.Name())
		}
		v := jobView{
			Name:      j.Name,
			Kind:      j.Kind,
			Enabled:   j.Enabled,
			Interval:  j.Interval.String(),
			Window:    j.Window,
			Providers: providers,
			BatchSize: j.BatchSize(),
		}
		if j.Catalog != nil {
			v.Catalog = j.Catalog.Len()
		}
		views = append(views, v)
	}

	writeJSON(w, http.StatusOK, views)
}

func (h *Handler) writeError(w http.ResponseWriter, err error, report *calendar.RunReport) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Errorw("Admin request failed", "status", status, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Report: report})
}

// StatusFor maps pipeline errors onto HTTP status codes
func StatusFor(err error) int {
	switch {
	case errors.Is(err, errors.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, errors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errors.ErrLocked):
		return http.StatusConflict
	case errors.Is(err, errors.ErrRunFatal), errors.Is(err, errors.ErrNoProvider):
		return http.StatusBadGateway
	case errors.Is(err, errors.ErrUnavailable), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
