package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/agentcore-ai/runtime/internal/actor"
	"github.com/agentcore-ai/runtime/pkg/types"
)

type sendMessageRequest struct {
	BranchID string          `json:"branchID"`
	Agent    string          `json:"agent"`
	Content  string          `json:"content"`
	Model    *types.ModelRef `json:"model,omitempty"`
	Mode     string          `json:"mode"` // "queue" | "interject", default "queue"
}

// sendMessage implements §6 sendMessage: submits content as a new turn on
// the named (session, branch), scheduled through the AgentLoop per the
// submit mode (§4.E).
func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	directory := getDirectory(r.Context())

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid body")
		return
	}
	if req.Content == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "content is required")
		return
	}

	sess, ok := s.loadSession(w, r.Context(), directory, sessionID)
	if !ok {
		return
	}
	branchID := req.BranchID
	if branchID == "" {
		branchID = sess.ActiveBranchID
	}
	branch, ok := s.loadBranch(w, r.Context(), sessionID, branchID)
	if !ok {
		return
	}

	agentRef := req.Agent
	if agentRef == "" {
		agentRef = "build"
	}

	mode := actor.SubmitQueue
	if req.Mode == string(actor.SubmitInterject) {
		mode = actor.SubmitInterject
	}

	turnReq := actor.TurnRequest{
		Session:  sess,
		Branch:   branch,
		AgentRef: agentRef,
		Content:  req.Content,
		Model:    req.Model,
		Bypass:   sess.Bypass,
	}
	if err := s.loop.Run(r.Context(), turnReq, mode); err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"sessionID": sessionID, "branchID": branchID})
}

// listMessages implements §6 listMessages, optionally scoped to a single
// branch via the ?branchID= query parameter (default: the session's active
// branch).
func (s *Server) listMessages(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	directory := getDirectory(r.Context())

	sess, ok := s.loadSession(w, r.Context(), directory, sessionID)
	if !ok {
		return
	}

	branchID := r.URL.Query().Get("branchID")
	if branchID == "" {
		branchID = sess.ActiveBranchID
	}

	messages, err := s.storage.ListMessages(r.Context(), branchID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}
