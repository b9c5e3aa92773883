// internal/api/handler/api/sessions.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/newthinker/folio/internal/api/response"
	"github.com/newthinker/folio/internal/core"
	"github.com/newthinker/folio/internal/metrics"
	"github.com/newthinker/folio/internal/session"
	"go.uber.org/zap"
)

// ScoreView is one symbol/score pair.
type ScoreView struct {
	Symbol string `json:"symbol"`
	Score  string `json:"score"`
}

// SessionView is the JSON form of a session snapshot.
type SessionView struct {
	ID        string      `json:"id"`
	Phase     string      `json:"phase"`
	Input     string      `json:"input"`
	Busy      bool        `json:"busy"`
	Error     string      `json:"error,omitempty"`
	Portfolio []ScoreView `json:"portfolio"`
	Average   *string     `json:"average_health_score"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// NewSessionView converts a snapshot. Scores are rendered as decimal strings
// so no precision is lost in transit.
func NewSessionView(id string, s session.State) SessionView {
	v := SessionView{
		ID:        id,
		Phase:     string(s.Phase()),
		Input:     s.Input,
		Busy:      s.Busy,
		Error:     s.Err,
		Portfolio: make([]ScoreView, 0, len(s.Results)),
		UpdatedAt: s.UpdatedAt,
	}
	for _, sc := range s.Results {
		v.Portfolio = append(v.Portfolio, ScoreView{Symbol: sc.Symbol, Score: sc.Value.String()})
	}
	if s.Average != nil {
		avg := s.Average.String()
		v.Average = &avg
	}
	return v
}

// SubmitRequest is the body of a submit call.
type SubmitRequest struct {
	Holdings *string `json:"holdings"`
}

// SessionsHandler exposes sessions over JSON.
type SessionsHandler struct {
	registry *session.Registry
	baseCtx  context.Context
	logger   *zap.Logger
}

// NewSessionsHandler creates a new sessions handler.
// Checks run under baseCtx rather than the request context, so a client
// disconnecting does not abort a check that has already been issued.
func NewSessionsHandler(baseCtx context.Context, registry *session.Registry, logger *zap.Logger) *SessionsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionsHandler{registry: registry, baseCtx: baseCtx, logger: logger}
}

// Create starts a new idle session.
func (h *SessionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	wf := h.registry.Create()
	h.logger.Debug("session created",
		zap.String("session", wf.ID()),
		zap.String("request_id", metrics.RequestID(r.Context())),
	)
	response.JSON(w, http.StatusCreated, NewSessionView(wf.ID(), wf.Snapshot()))
}

// Get returns the current snapshot of a session.
func (h *SessionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	wf, ok := h.lookup(w, r)
	if !ok {
		return
	}
	response.JSON(w, http.StatusOK, NewSessionView(wf.ID(), wf.Snapshot()))
}

// Submit runs a check. By default it waits until the session is no longer
// busy, so the response never shows busy=true; if a newer submit overtook this
// one, the response carries the newer outcome. With ?wait=false it returns the
// busy snapshot immediately.
func (h *SessionsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	wf, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, core.WrapError(core.ErrBadRequest, err))
		return
	}
	if req.Holdings == nil {
		response.Error(w, http.StatusBadRequest,
			core.WrapError(core.ErrBadRequest, fmt.Errorf("holdings field required")))
		return
	}

	done := wf.Start(h.baseCtx, *req.Holdings)

	if r.URL.Query().Get("wait") == "false" {
		response.JSON(w, http.StatusAccepted, NewSessionView(wf.ID(), wf.Snapshot()))
		return
	}

	select {
	case <-done:
	case <-r.Context().Done():
		h.clientLeft(r, wf)
		return
	}

	// A newer submit may own the session; report once it has settled too.
	s, err := wf.WaitIdle(r.Context())
	if err != nil {
		h.clientLeft(r, wf)
		return
	}
	response.JSON(w, http.StatusOK, NewSessionView(wf.ID(), s))
}

func (h *SessionsHandler) clientLeft(r *http.Request, wf *session.Workflow) {
	h.logger.Debug("client left before check settled",
		zap.String("session", wf.ID()),
		zap.String("request_id", metrics.RequestID(r.Context())),
	)
}

func (h *SessionsHandler) lookup(w http.ResponseWriter, r *http.Request) (*session.Workflow, bool) {
	wf, err := h.registry.Get(r.PathValue("id"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, core.ErrSessionNotFound) {
			status = http.StatusNotFound
		}
		response.Error(w, status, err)
		return nil, false
	}
	return wf, true
}
