package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/agentcore-ai/runtime/pkg/types"
)

type createSessionRequest struct {
	Name string `json:"name"`
}

// createSession implements §6 createSession: a new Session with a single
// root "main" Branch.
func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	directory := getDirectory(r.Context())
	branchID := types.NewBranchID()
	now := nowMillisHTTP()

	sess := &types.Session{
		ID:             types.NewSessionID(),
		Name:           req.Name,
		Directory:      directory,
		ActiveBranchID: branchID,
		Time:           types.Timestamps{Created: now, Updated: now},
	}
	if err := s.storage.CreateSession(r.Context(), directory, sess); err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	branch := &types.Branch{
		ID:        branchID,
		SessionID: sess.ID,
		Name:      "main",
		Time:      types.Timestamps{Created: now, Updated: now},
	}
	if err := s.storage.CreateBranch(r.Context(), branch); err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	s.subagents.Track(sess.ID, directory)

	writeJSON(w, http.StatusCreated, map[string]any{"session": sess, "branch": branch})
}

// listSessions implements §6 listSessions, scoped to the request's project
// directory (Storage.ListSessions has no cross-project mode).
func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	directory := getDirectory(r.Context())
	sessions, err := s.storage.ListSessions(r.Context(), directory)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

type updateBypassRequest struct {
	Bypass bool `json:"bypass"`
}

// updateSessionBypass implements §6 updateSessionBypass.
func (s *Server) updateSessionBypass(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	directory := getDirectory(r.Context())

	var req updateBypassRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid body")
		return
	}

	sess, err := s.storage.GetSession(r.Context(), directory, sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	if sess == nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "session not found")
		return
	}

	sess.Bypass = req.Bypass
	sess.Time.Updated = nowMillisHTTP()
	if err := s.storage.UpdateSession(r.Context(), directory, sess); err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session": sess})
}

// listModels implements §6 listModels: every model known to every
// registered provider.
func (s *Server) listModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"models": s.providerReg.AllModels()})
}
