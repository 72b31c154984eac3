package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/agentcore-ai/runtime/internal/actor"
	"github.com/agentcore-ai/runtime/pkg/types"
)

// listBranches implements §6 listBranches.
func (s *Server) listBranches(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	branches, err := s.storage.ListBranches(r.Context(), sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"branches": branches})
}

// getBranchTree implements §6 getBranchTree.
func (s *Server) getBranchTree(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	tree, err := s.storage.GetBranchTree(r.Context(), sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tree": tree})
}

type createBranchRequest struct {
	Name            string `json:"name"`
	ParentBranchID  string `json:"parentBranchID"`
	ParentMessageID string `json:"parentMessageID"`
}

// createBranch implements §6 createBranch: a new, initially empty Branch
// recording its parent lineage but not copying any messages (unlike
// forkBranch).
func (s *Server) createBranch(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req createBranchRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	now := nowMillisHTTP()
	branch := &types.Branch{
		ID:        types.NewBranchID(),
		SessionID: sessionID,
		Name:      req.Name,
		Time:      types.Timestamps{Created: now, Updated: now},
	}
	if req.ParentBranchID != "" {
		branch.ParentBranchID = &req.ParentBranchID
	}
	if req.ParentMessageID != "" {
		branch.ParentMessageID = &req.ParentMessageID
	}

	if err := s.storage.CreateBranch(r.Context(), branch); err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"branch": branch})
}

type switchBranchRequest struct {
	BranchID string `json:"branchID"`
}

// switchBranch implements §6 switchBranch: repoints the session's active
// branch, the data model's only notion of "current branch" (§4.A).
func (s *Server) switchBranch(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	directory := getDirectory(r.Context())

	var req switchBranchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.BranchID == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "branchID is required")
		return
	}

	sess, ok := s.loadSession(w, r.Context(), directory, sessionID)
	if !ok {
		return
	}
	if _, ok := s.loadBranch(w, r.Context(), sessionID, req.BranchID); !ok {
		return
	}

	sess.ActiveBranchID = req.BranchID
	sess.Time.Updated = nowMillisHTTP()
	if err := s.storage.UpdateSession(r.Context(), directory, sess); err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	_, _ = s.events.Publish(r.Context(), sessionID, req.BranchID, types.BranchSwitched{ToBranchID: req.BranchID})
	writeJSON(w, http.StatusOK, map[string]any{"session": sess})
}

type forkBranchRequest struct {
	SourceBranchID string `json:"sourceBranchID"`
	AtMessageID    string `json:"atMessageID"`
	Name           string `json:"name"`
}

// forkBranch implements §6 forkBranch. Storage has no built-in branch
// inheritance (GetBranchTree scopes each node's messages strictly to its
// own key), so forking must physically copy every message from
// sourceBranchID up to and including atMessageID (or all of them, if
// atMessageID is empty) into the new branch's own storage keys.
func (s *Server) forkBranch(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req forkBranchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SourceBranchID == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "sourceBranchID is required")
		return
	}

	source, ok := s.loadBranch(w, r.Context(), sessionID, req.SourceBranchID)
	if !ok {
		return
	}

	sourceMessages, err := s.storage.ListMessages(r.Context(), req.SourceBranchID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	now := nowMillisHTTP()
	newBranch := &types.Branch{
		ID:              types.NewBranchID(),
		SessionID:       sessionID,
		ParentBranchID:  &req.SourceBranchID,
		Name:            req.Name,
		Model:           source.Model,
		Time:            types.Timestamps{Created: now, Updated: now},
	}
	if req.AtMessageID != "" {
		newBranch.ParentMessageID = &req.AtMessageID
	}
	if err := s.storage.CreateBranch(r.Context(), newBranch); err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	for _, msg := range sourceMessages {
		copied := *msg
		copied.BranchID = newBranch.ID
		if err := s.storage.CreateMessage(r.Context(), &copied); err != nil {
			writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
			return
		}
		if req.AtMessageID != "" && msg.ID == req.AtMessageID {
			break
		}
	}

	writeJSON(w, http.StatusCreated, map[string]any{"branch": newBranch})
}

type compactBranchRequest struct {
	Instructions string `json:"instructions"`
}

// compactBranch implements §6 compactBranch: takes a durable checkpoint of
// the branch before summarizing, so a bad compaction can always be rolled
// back via restoreCheckpoint (§4.F).
func (s *Server) compactBranch(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	branchID := chi.URLParam(r, "branchID")

	if s.checkpoints != nil {
		if _, err := s.checkpoints.Save(r.Context(), sessionID, branchID); err != nil {
			writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
			return
		}
	}

	messages, err := s.storage.ListMessages(r.Context(), branchID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	summary, err := actor.SummarizeBranch(r.Context(), s.providerReg, messages, actor.DefaultCompactionConfig)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	branch, ok := s.loadBranch(w, r.Context(), sessionID, branchID)
	if !ok {
		return
	}
	branch.Summary = summary
	branch.Time.Updated = nowMillisHTTP()
	if err := s.storage.UpdateBranch(r.Context(), branch); err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"branch": branch})
}

// getSessionState implements §6 getSessionState.
func (s *Server) getSessionState(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	branchID := chi.URLParam(r, "branchID")
	directory := getDirectory(r.Context())

	sess, ok := s.loadSession(w, r.Context(), directory, sessionID)
	if !ok {
		return
	}
	messages, err := s.storage.ListMessages(r.Context(), branchID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	var lastEventID uint64
	if n := len(messages); n > 0 {
		lastEventID = uint64(n)
	}

	state := types.SessionState{
		SessionID:   sessionID,
		BranchID:    branchID,
		Messages:    toValues(messages),
		LastEventID: lastEventID,
		IsStreaming: s.loop.IsRunning(sessionID, branchID),
		Bypass:      sess.Bypass,
	}
	writeJSON(w, http.StatusOK, map[string]any{"state": state})
}

func toValues(messages []*types.Message) []types.Message {
	out := make([]types.Message, len(messages))
	for i, m := range messages {
		out[i] = *m
	}
	return out
}
