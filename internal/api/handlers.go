// Package api exposes the status monitor, the chat responder and the fade-in
// animator over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/baditaflorin/go_startup_os/internal/animator"
	"github.com/baditaflorin/go_startup_os/internal/chat"
	"github.com/baditaflorin/go_startup_os/internal/models"
	"github.com/baditaflorin/go_startup_os/internal/monitor"
)

const (
	maxBodyBytes      = 1 << 20
	heartbeatInterval = 15 * time.Second
)

// Recorder receives counters the handlers produce.
type Recorder interface {
	RecordChatReply(topic string)
	RecordReveals(n int)
	SubscriberAdded()
	SubscriberRemoved()
}

type nopRecorder struct{}

func (nopRecorder) RecordChatReply(string) {}
func (nopRecorder) RecordReveals(int)      {}
func (nopRecorder) SubscriberAdded()       {}
func (nopRecorder) SubscriberRemoved()     {}

// Handler serves the JSON API.
type Handler struct {
	monitor   *monitor.Monitor
	responder *chat.Responder
	animOpts  animator.Options
	recorder  Recorder
	errors    *ErrorWriter
	logger    *zap.Logger
	heartbeat time.Duration
}

// Option configures a Handler.
type Option func(*Handler)

// WithRecorder reports handler activity to r.
func WithRecorder(r Recorder) Option {
	return func(h *Handler) {
		if r != nil {
			h.recorder = r
		}
	}
}

// WithAnimatorOptions sets the default reveal threshold and margin.
func WithAnimatorOptions(o animator.Options) Option {
	return func(h *Handler) { h.animOpts = o }
}

// NewHandler creates the API handler.
func NewHandler(m *monitor.Monitor, responder *chat.Responder, logger *zap.Logger, opts ...Option) *Handler {
	h := &Handler{
		monitor:   m,
		responder: responder,
		animOpts:  animator.DefaultOptions(),
		recorder:  nopRecorder{},
		errors:    NewErrorWriter(logger),
		logger:    logger,
		heartbeat: heartbeatInterval,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Errors returns the envelope writer shared with the router.
func (h *Handler) Errors() *ErrorWriter {
	return h.errors
}

// Routes registers every API route on r. limit wraps the chat routes.
func (h *Handler) Routes(r *mux.Router, limit func(http.Handler) http.Handler) {
	if limit == nil {
		limit = func(next http.Handler) http.Handler { return next }
	}

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/services", h.HandleListServices).Methods(http.MethodGet)
	api.HandleFunc("/services/{id}", h.HandleGetService).Methods(http.MethodGet)
	api.HandleFunc("/status", h.HandleStatus).Methods(http.MethodGet)
	api.HandleFunc("/stats", h.HandleStats).Methods(http.MethodGet)
	api.HandleFunc("/categories", h.HandleCategories).Methods(http.MethodGet)
	api.HandleFunc("/refresh", h.HandleRefresh).Methods(http.MethodPost)
	api.HandleFunc("/auto-refresh", h.HandleGetAutoRefresh).Methods(http.MethodGet)
	api.HandleFunc("/auto-refresh", h.HandleSetAutoRefresh).Methods(http.MethodPut)
	api.HandleFunc("/events", h.HandleEvents).Methods(http.MethodGet)
	api.Handle("/chat", limit(http.HandlerFunc(h.HandleChat))).Methods(http.MethodPost)
	api.Handle("/chat/suggestions", limit(http.HandlerFunc(h.HandleSuggestions))).Methods(http.MethodGet)
	api.HandleFunc("/animations/reveal", h.HandleReveal).Methods(http.MethodPost)

	// Unknown API paths fall through to the parent router's NotFoundHandler.
	api.MethodNotAllowedHandler = http.HandlerFunc(h.errors.MethodNotAllowed)
}

// HandleListServices returns every service with its latest result.
func (h *Handler) HandleListServices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.monitor.Services())
}

// HandleGetService returns one service.
func (h *Handler) HandleGetService(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	st, ok := h.monitor.Service(id)
	if !ok {
		h.errors.Write(w, r, http.StatusNotFound, ErrorCodeServiceNotFound, fmt.Sprintf("service %q not found", id))
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	Overall         *monitor.Overall `json:"overall"`
	LastChecked     *time.Time       `json:"last_checked"`
	Running         bool             `json:"running"`
	AutoRefresh     bool             `json:"auto_refresh"`
	IntervalSeconds float64          `json:"interval_seconds"`
	Sweeps          int64            `json:"sweeps"`
}

// HandleStatus returns the overall roll-up and scheduler state.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Running:         h.monitor.Running(),
		AutoRefresh:     h.monitor.AutoRefresh(),
		IntervalSeconds: h.monitor.Interval().Seconds(),
		Sweeps:          h.monitor.Sweeps(),
	}
	if o, ok := h.monitor.Overall(); ok {
		resp.Overall = &o
	}
	if at := h.monitor.LastChecked(); !at.IsZero() {
		resp.LastChecked = &at
	}
	writeJSON(w, http.StatusOK, resp)
}

// Stats counts services by state.
type Stats struct {
	Total          int     `json:"total"`
	Healthy        int     `json:"healthy"`
	Degraded       int     `json:"degraded"`
	Errors         int     `json:"errors"`
	Checking       int     `json:"checking"`
	Idle           int     `json:"idle"`
	HealthyPercent float64 `json:"healthy_percent"`
}

func (s *Stats) add(state models.Status) {
	s.Total++
	switch state {
	case models.StatusHealthy:
		s.Healthy++
	case models.StatusDegraded:
		s.Degraded++
	case models.StatusError:
		s.Errors++
	case models.StatusChecking:
		s.Checking++
	default:
		s.Idle++
	}
}

func (s *Stats) finish() {
	if s.Total > 0 {
		s.HealthyPercent = float64(s.Healthy) / float64(s.Total) * 100
	}
}

// HandleStats returns service counts.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	var stats Stats
	for _, st := range h.monitor.Services() {
		stats.add(st.State)
	}
	stats.finish()
	writeJSON(w, http.StatusOK, stats)
}

// CategoryStats is one row of GET /api/categories.
type CategoryStats struct {
	Category models.Category `json:"category"`
	Stats
}

// HandleCategories returns service counts per category.
func (h *Handler) HandleCategories(w http.ResponseWriter, r *http.Request) {
	byCategory := make(map[models.Category]*Stats, len(models.Categories))
	for _, c := range models.Categories {
		byCategory[c] = &Stats{}
	}
	for _, st := range h.monitor.Services() {
		if s, ok := byCategory[st.Category]; ok {
			s.add(st.State)
		}
	}

	out := make([]CategoryStats, 0, len(models.Categories))
	for _, c := range models.Categories {
		s := byCategory[c]
		s.finish()
		out = append(out, CategoryStats{Category: c, Stats: *s})
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleRefresh starts a sweep in the background.
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	if !h.monitor.Trigger() {
		if h.monitor.Stopped() {
			h.errors.Write(w, r, http.StatusServiceUnavailable, ErrorCodeMonitorStopped, "the monitor is shutting down")
			return
		}
		h.errors.Write(w, r, http.StatusConflict, ErrorCodeSweepInProgress, "a health check is already running")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"message":  "Refresh triggered",
		"services": h.monitor.Registry().Len(),
	})
}

// AutoRefreshState is the body of the auto-refresh endpoints.
type AutoRefreshState struct {
	Enabled         bool    `json:"enabled"`
	IntervalSeconds float64 `json:"interval_seconds"`
}

// HandleGetAutoRefresh reports the timer toggle.
func (h *Handler) HandleGetAutoRefresh(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.autoRefreshState())
}

// HandleSetAutoRefresh turns the timer on or off.
func (h *Handler) HandleSetAutoRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled *bool `json:"enabled"`
	}
	if err := decode(r, &req); err != nil {
		h.errors.Write(w, r, http.StatusBadRequest, ErrorCodeInvalidRequest, err.Error())
		return
	}
	if req.Enabled == nil {
		h.errors.Write(w, r, http.StatusBadRequest, ErrorCodeInvalidRequest, "enabled is required")
		return
	}

	if *req.Enabled {
		h.monitor.StartAutoRefresh()
	} else {
		h.monitor.StopAutoRefresh()
	}
	writeJSON(w, http.StatusOK, h.autoRefreshState())
}

func (h *Handler) autoRefreshState() AutoRefreshState {
	return AutoRefreshState{
		Enabled:         h.monitor.AutoRefresh(),
		IntervalSeconds: h.monitor.Interval().Seconds(),
	}
}

// HandleEvents streams status updates via SSE.
func (h *Handler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.errors.Write(w, r, http.StatusInternalServerError, ErrorCodeStreaming, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := h.monitor.Subscribe()
	h.recorder.SubscriberAdded()
	defer func() {
		h.monitor.Unsubscribe(ch)
		h.recorder.SubscriberRemoved()
	}()

	fmt.Fprintf(w, "data: {\"type\":\"connected\"}\n\n")
	flusher.Flush()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case ev, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				h.logger.Error("failed to encode event", zap.Error(err))
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message string `json:"message"`
}

// HandleChat answers one visitor message. Blank messages get 204.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := decode(r, &req); err != nil {
		h.errors.Write(w, r, http.StatusBadRequest, ErrorCodeInvalidRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	reply := h.responder.Reply(req.Message)
	h.recorder.RecordChatReply(reply.Topic)
	h.logger.Debug("chat reply", zap.String("topic", reply.Topic))
	writeJSON(w, http.StatusOK, reply)
}

// HandleSuggestions returns the welcome text and chip questions.
func (h *Handler) HandleSuggestions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"welcome":     chat.Welcome,
		"suggestions": chat.Suggestions,
	})
}

// RevealRequest is the body of POST /api/animations/reveal.
type RevealRequest struct {
	Elements       []animator.Element `json:"elements"`
	Scroll         []float64          `json:"scroll"`
	ViewportHeight float64            `json:"viewport_height"`
	ViewportWidth  float64            `json:"viewport_width"`
	Threshold      *float64           `json:"threshold,omitempty"`
	BottomMargin   *float64           `json:"bottom_margin,omitempty"`
}

// RevealView is one reveal with its delay in milliseconds.
type RevealView struct {
	ID      string  `json:"id"`
	DelayMs int64   `json:"delay_ms"`
	Ratio   float64 `json:"ratio"`
}

// RevealStep lists the reveals produced at one scroll offset.
type RevealStep struct {
	Scroll  float64      `json:"scroll"`
	Reveals []RevealView `json:"reveals"`
}

// RevealResponse is the reveal sequence for a scroll replay.
type RevealResponse struct {
	Steps    []RevealStep     `json:"steps"`
	DelaysMs map[string]int64 `json:"delays_ms"`
	Pending  []string         `json:"pending"`
}

// HandleReveal replays a scroll over a set of elements.
func (h *Handler) HandleReveal(w http.ResponseWriter, r *http.Request) {
	var req RevealRequest
	if err := decode(r, &req); err != nil {
		h.errors.Write(w, r, http.StatusBadRequest, ErrorCodeInvalidRequest, err.Error())
		return
	}
	if err := validateReveal(req); err != nil {
		h.errors.Write(w, r, http.StatusBadRequest, ErrorCodeInvalidRequest, err.Error())
		return
	}

	opts := h.animOpts
	if req.Threshold != nil {
		opts.Threshold = *req.Threshold
	}
	if req.BottomMargin != nil {
		opts.BottomMargin = *req.BottomMargin
	}
	scrolls := req.Scroll
	if len(scrolls) == 0 {
		scrolls = []float64{0}
	}

	a := animator.New(opts, req.Elements...)
	resp := RevealResponse{
		Steps:    make([]RevealStep, 0, len(scrolls)),
		DelaysMs: make(map[string]int64, len(req.Elements)),
	}
	revealed := 0
	for _, top := range scrolls {
		step := RevealStep{Scroll: top, Reveals: []RevealView{}}
		for _, rv := range a.Observe(animator.Viewport{Top: top, Height: req.ViewportHeight, Width: req.ViewportWidth}) {
			step.Reveals = append(step.Reveals, RevealView{ID: rv.ID, DelayMs: rv.Delay.Milliseconds(), Ratio: rv.Ratio})
			revealed++
		}
		resp.Steps = append(resp.Steps, step)
	}
	for id, d := range a.Delays() {
		resp.DelaysMs[id] = d.Milliseconds()
	}
	resp.Pending = a.Pending()
	if resp.Pending == nil {
		resp.Pending = []string{}
	}

	h.recorder.RecordReveals(revealed)
	writeJSON(w, http.StatusOK, resp)
}

func validateReveal(req RevealRequest) error {
	if len(req.Elements) == 0 {
		return errors.New("elements must not be empty")
	}
	if req.ViewportHeight <= 0 {
		return errors.New("viewport_height must be positive")
	}
	for i, el := range req.Elements {
		if el.ID == "" {
			return fmt.Errorf("elements[%d]: id is required", i)
		}
		if el.Rect.Width < 0 || el.Rect.Height < 0 {
			return fmt.Errorf("elements[%d]: negative size", i)
		}
	}
	if req.Threshold != nil && (*req.Threshold < 0 || *req.Threshold > 1) {
		return errors.New("threshold must be within [0, 1]")
	}
	return nil
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
