package server

import (
	"context"
	"net/http"
	"time"

	"github.com/agentcore-ai/runtime/pkg/types"
)

func nowMillisHTTP() int64 { return time.Now().UnixMilli() }

// loadSession resolves sessionID under the request's project directory,
// writing a 404/500 response itself and reporting ok=false when the
// handler should stop.
func (s *Server) loadSession(w http.ResponseWriter, ctx context.Context, directory, sessionID string) (*types.Session, bool) {
	sess, err := s.storage.GetSession(ctx, directory, sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return nil, false
	}
	if sess == nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "session not found")
		return nil, false
	}
	return sess, true
}

func (s *Server) loadBranch(w http.ResponseWriter, ctx context.Context, sessionID, branchID string) (*types.Branch, bool) {
	branch, err := s.storage.GetBranch(ctx, sessionID, branchID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return nil, false
	}
	if branch == nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "branch not found")
		return nil, false
	}
	return branch, true
}
