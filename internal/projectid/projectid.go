// Package projectid derives a stable, filesystem-safe identifier from a
// session's working directory. Storage uses it to key sessions without
// leaking directory paths into file names; the subagent executor reuses it
// to keep a child session's directory-derived grouping consistent with its
// parent's. Consolidates what the teacher duplicated as hashDirectory in
// both internal/session/service.go and internal/executor/subagent.go.
package projectid

import (
	"crypto/sha256"
	"encoding/hex"
)

// Of returns the first 16 hex characters of sha256(directory).
func Of(directory string) string {
	h := sha256.Sum256([]byte(directory))
	return hex.EncodeToString(h[:])[:16]
}
