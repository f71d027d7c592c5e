// Package control exposes a running periodic task over HTTP.
//
// Routes:
//
//	GET  /healthz
//	GET  /task
//	POST /task/pause?reset=true|false
//	POST /task/resume
//	PUT  /task/period   {"period":"250ms"}
//	PUT  /task/catchup  {"enabled":false}
//	GET  /task/history?limit=N
//	GET  /metrics       (when a metrics handler is configured)
package control

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/Swind/go-periodic-task/core"
)

// Task is the part of *core.PeriodicTask the API drives.
type Task interface {
	Pause(resetTime bool) error
	Resume() error
	SetPeriod(period time.Duration) error
	SetCatchUp(enabled bool)
	Stats() core.TaskStats
	History(limit int) []core.InvocationRecord
}

var _ Task = (*core.PeriodicTask)(nil)

type options struct {
	logger  core.Logger
	metrics http.Handler
}

// Option configures the router.
type Option func(*options)

// WithLogger sets the logger used for request failures.
func WithLogger(l core.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetricsHandler mounts h on GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(o *options) { o.metrics = h }
}

type handler struct {
	task     Task
	logger   core.Logger
	validate *validator.Validate
}

// NewRouter builds the control API for task.
func NewRouter(task Task, opts ...Option) http.Handler {
	o := options{logger: core.NewDefaultLogger()}
	for _, opt := range opts {
		opt(&o)
	}

	h := &handler{
		task:     task,
		logger:   o.logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/task", func(r chi.Router) {
		r.Get("/", h.getTask)
		r.Post("/pause", h.pause)
		r.Post("/resume", h.resume)
		r.Put("/period", h.setPeriod)
		r.Put("/catchup", h.setCatchUp)
		r.Get("/history", h.history)
	})

	if o.metrics != nil {
		r.Method(http.MethodGet, "/metrics", o.metrics)
	}

	return r
}

func (h *handler) getTask(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, newTaskView(h.task.Stats()))
}

func (h *handler) pause(w http.ResponseWriter, r *http.Request) {
	reset := true
	if raw := r.URL.Query().Get("reset"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			h.respondError(w, r, http.StatusBadRequest, "reset must be a boolean")
			return
		}
		reset = v
	}

	if err := h.task.Pause(reset); err != nil {
		h.respondTaskError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, newTaskView(h.task.Stats()))
}

func (h *handler) resume(w http.ResponseWriter, r *http.Request) {
	if err := h.task.Resume(); err != nil {
		h.respondTaskError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, newTaskView(h.task.Stats()))
}

type periodRequest struct {
	Period string `json:"period" validate:"required"`
}

func (h *handler) setPeriod(w http.ResponseWriter, r *http.Request) {
	var req periodRequest
	if !h.decode(w, r, &req) {
		return
	}

	period, err := time.ParseDuration(req.Period)
	if err != nil {
		h.respondError(w, r, http.StatusBadRequest, "period must be a duration like 250ms")
		return
	}
	if err := h.task.SetPeriod(period); err != nil {
		h.respondTaskError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, newTaskView(h.task.Stats()))
}

type catchUpRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

func (h *handler) setCatchUp(w http.ResponseWriter, r *http.Request) {
	var req catchUpRequest
	if !h.decode(w, r, &req) {
		return
	}

	h.task.SetCatchUp(*req.Enabled)
	h.respondJSON(w, http.StatusOK, newTaskView(h.task.Stats()))
}

func (h *handler) history(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			h.respondError(w, r, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = v
	}

	records := h.task.History(limit)
	views := make([]invocationView, 0, len(records))
	for _, rec := range records {
		views = append(views, newInvocationView(rec))
	}
	h.respondJSON(w, http.StatusOK, views)
}

// decode reads a JSON body into dst and validates it. It writes the error
// response itself and reports whether the handler should continue.
func (h *handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		h.respondError(w, r, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func (h *handler) respondTaskError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrAlreadyPaused), errors.Is(err, core.ErrNotPaused):
		h.respondError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, core.ErrStopped):
		h.respondError(w, r, http.StatusGone, err.Error())
	case errors.Is(err, core.ErrInvalidPeriod):
		h.respondError(w, r, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("control request failed", core.F("path", r.URL.Path), core.F("error", err))
		h.respondError(w, r, http.StatusInternalServerError, "internal error")
	}
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func (h *handler) respondError(w http.ResponseWriter, r *http.Request, status int, message string) {
	h.logger.Debug("sending error response",
		core.F("status_code", status), core.F("message", message),
		core.F("path", r.URL.Path), core.F("method", r.Method))

	h.respondJSON(w, status, errorResponse{
		Error:     message,
		RequestID: chimiddleware.GetReqID(r.Context()),
	})
}

func (h *handler) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON response", core.F("error", err))
	}
}
