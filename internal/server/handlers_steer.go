package server

import (
	"encoding/json"
	"net/http"

	"github.com/agentcore-ai/runtime/internal/actor"
)

type steerRequest struct {
	Tag       string `json:"tag"` // "cancel" | "interrupt" | "interject" | "switch_agent" | "switch_model" | "switch_mode"
	SessionID string `json:"sessionID"`
	BranchID  string `json:"branchID"`
	Message   string `json:"message,omitempty"`
	Agent     string `json:"agent,omitempty"`
	Model     struct {
		ProviderID string `json:"providerID"`
		ModelID    string `json:"modelID"`
	} `json:"model,omitempty"`
	Mode string `json:"mode,omitempty"`
}

// steer implements §6 steer: cancel/interrupt/interject/switch_* commands
// scoped to exactly one live actor (§4.E).
func (s *Server) steer(w http.ResponseWriter, r *http.Request) {
	var req steerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid body")
		return
	}
	if req.SessionID == "" || req.BranchID == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "sessionID and branchID are required")
		return
	}

	cmd := actor.SteerCommand{
		Tag:       req.Tag,
		SessionID: req.SessionID,
		BranchID:  req.BranchID,
		Message:   req.Message,
		Agent:     req.Agent,
		Mode:      req.Mode,
	}
	cmd.Model.ProviderID = req.Model.ProviderID
	cmd.Model.ModelID = req.Model.ModelID

	if err := s.loop.Steer(cmd); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}
	writeSuccess(w)
}

type respondQuestionsRequest struct {
	SessionID string     `json:"sessionID"`
	BranchID  string     `json:"branchID"`
	RequestID string     `json:"requestID"`
	Answers   [][]string `json:"answers"`
}

// respondQuestions implements §6 respondQuestions.
func (s *Server) respondQuestions(w http.ResponseWriter, r *http.Request) {
	var req respondQuestionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid body")
		return
	}
	if err := s.loop.RespondQuestions(req.SessionID, req.BranchID, req.RequestID, req.Answers); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}
	writeSuccess(w)
}

type respondPermissionRequest struct {
	RequestID string `json:"requestID"`
	Decision  string `json:"decision"` // "allow" | "allow_always" | "deny"
}

// respondPermission implements §6 respondPermission, delegating to the
// shared permission.Checker (permission requests are addressed globally by
// requestId, not scoped through an AgentLoop handle).
func (s *Server) respondPermission(w http.ResponseWriter, r *http.Request) {
	var req respondPermissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid body")
		return
	}
	if err := s.loop.RespondPermission(req.RequestID, req.Decision); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}
	writeSuccess(w)
}

type respondPlanRequest struct {
	SessionID string `json:"sessionID"`
	BranchID  string `json:"branchID"`
	RequestID string `json:"requestID"`
	Decision  string `json:"decision"` // "confirm" | "reject"
	Reason    string `json:"reason,omitempty"`
}

// respondPlan implements §6 respondPlan.
func (s *Server) respondPlan(w http.ResponseWriter, r *http.Request) {
	var req respondPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid body")
		return
	}
	if err := s.loop.RespondPlan(req.SessionID, req.BranchID, req.RequestID, req.Decision, req.Reason); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}
	writeSuccess(w)
}
