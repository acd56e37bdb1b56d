package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/codeforge/internal/auth"
	"github.com/sakif/codeforge/internal/playground"
)

// RunHandler is the HTTP surface of the run lifecycle. Each signed-in
// user has a controller in the session registry; these endpoints are the
// "UI events" that drive it:
//
//	POST /api/run        → trigger a run, respond with the settled state
//	GET  /api/run/state  → snapshot for rendering (polled while Pending)
//	PUT  /api/editor     → editor/stdin change callbacks
type RunHandler struct {
	sessions *playground.Sessions
	logger   *slog.Logger
}

// NewRunHandler creates a RunHandler over the given session registry.
func NewRunHandler(sessions *playground.Sessions, logger *slog.Logger) *RunHandler {
	return &RunHandler{
		sessions: sessions,
		logger:   logger,
	}
}

// controller resolves the caller's session controller. The auth
// middleware guarantees a userID on these routes.
func (h *RunHandler) controller(r *http.Request) (*playground.Controller, bool) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return nil, false
	}
	return h.sessions.For(userID), true
}

// HandleRun triggers the run lifecycle and blocks until it settles.
//
// The response is the terminal snapshot — result, phase back to idle —
// so a simple client needs no polling at all. A client that wants the
// busy indicator polls HandleState while this request is in flight and
// observes phase "pending".
//
// A second POST while Pending gets 409: re-entry is rejected, not
// queued. The client re-enables its Run button on settle and retries if
// the user still wants another run.
func (h *RunHandler) HandleRun(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "valid authentication required"})
		return
	}

	snap, err := ctrl.Run(r.Context())
	if err != nil {
		if errors.Is(err, playground.ErrRunInProgress) {
			writeJSON(w, http.StatusConflict, ErrorResponse{
				Error:   "run_in_progress",
				Message: "a run is already in progress",
			})
			return
		}
		// Controller.Run only fails with ErrRunInProgress today; this
		// is the safety net for whatever tomorrow adds.
		h.logger.Error("run failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

// HandleState returns the caller's current snapshot.
func (h *RunHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "valid authentication required"})
		return
	}

	writeJSON(w, http.StatusOK, ctrl.Snapshot())
}

// editorUpdate carries the editor collaborator's change events. Pointer
// fields distinguish "not sent" from "set to empty" — clearing the
// stdin box is a real update.
type editorUpdate struct {
	SourceCode       *string `json:"sourceCode"`
	SelectedLanguage *string `json:"selectedLanguage"`
	Stdin            *string `json:"stdin"`
}

// HandleEditor applies editor/stdin changes to the session controller.
// Changes land in controller state immediately but, by design, never
// affect a run already in flight.
func (h *RunHandler) HandleEditor(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "valid authentication required"})
		return
	}

	var update editorUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.logger.Warn("invalid editor update body", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "bad_request", Message: "invalid JSON body"})
		return
	}

	if update.SourceCode != nil {
		ctrl.SetSourceCode(*update.SourceCode)
	}
	if update.SelectedLanguage != nil {
		ctrl.SetLanguage(*update.SelectedLanguage)
	}
	if update.Stdin != nil {
		ctrl.SetStdin(*update.Stdin)
	}

	writeJSON(w, http.StatusOK, ctrl.Snapshot())
}
