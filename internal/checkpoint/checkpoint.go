// Package checkpoint implements the CheckpointService component (§4.F):
// durable save/restore of a branch's full state across turns, grounded on
// the teacher's buildDiffMetadata (internal/tool/diff.go) for the
// sergi/go-diff-backed change summary and on internal/storage's generic
// Put/Get/List for the snapshot records themselves.
//
// Unlike the teacher, which only ever diffs two in-memory strings to
// enrich a single tool call's metadata, CheckpointService persists whole
// branch snapshots so a branch can be rolled back to any prior checkpoint —
// not load-bearing for single-turn correctness, only for cross-turn
// durability of tool state (§4.F).
package checkpoint

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"time"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/agentcore-ai/runtime/internal/storage"
	"github.com/agentcore-ai/runtime/pkg/types"
)

// Snapshot is one saved point-in-time state of a branch: its Branch record
// plus every message on it at the moment of Save.
type Snapshot struct {
	ID        string          `json:"id"`
	BranchID  string          `json:"branchID"`
	CreatedAt int64           `json:"createdAt"`
	Branch    types.Branch    `json:"branch"`
	Messages  []types.Message `json:"messages"`
	// Patch is a human-readable unified diff against the previous
	// checkpoint's message transcript, computed with diffmatchpatch the
	// way the teacher's buildDiffMetadata does — informational only, never
	// used to reconstruct state (Restore always replays a full Snapshot).
	Patch string `json:"patch,omitempty"`
}

func checkpointDirPath(branchID string) []string {
	return []string{"checkpoint", branchID}
}

func checkpointPath(branchID, checkpointID string) []string {
	return []string{"checkpoint", branchID, checkpointID}
}

// Service implements save(branchId)/restore(branchId) from §4.F.
type Service struct {
	storage *storage.Storage
}

// New constructs a Service backed by storage.
func New(s *storage.Storage) *Service {
	return &Service{storage: s}
}

// Save snapshots branchID's current Branch record and full message list,
// returning the new checkpoint's id. §4.F: "not load-bearing for
// single-turn correctness" — callers treat a Save failure as non-fatal to
// the turn that triggered it.
func (s *Service) Save(ctx context.Context, sessionID, branchID string) (string, error) {
	branch, err := s.storage.GetBranch(ctx, sessionID, branchID)
	if err != nil {
		return "", &types.CheckpointError{Message: "load branch", Cause: err}
	}
	if branch == nil {
		return "", &types.CheckpointError{Message: "branch not found: " + branchID}
	}

	messages, err := s.storage.ListMessages(ctx, branchID)
	if err != nil {
		return "", &types.CheckpointError{Message: "load messages", Cause: err}
	}

	materialized := make([]types.Message, len(messages))
	for i, m := range messages {
		materialized[i] = *m
	}

	snap := Snapshot{
		ID:        strconv.FormatInt(time.Now().UnixNano(), 36),
		BranchID:  branchID,
		CreatedAt: time.Now().UnixMilli(),
		Branch:    *branch,
		Messages:  materialized,
	}

	if prev, err := s.latest(ctx, branchID); err == nil && prev != nil {
		snap.Patch = diffTranscripts(transcript(prev.Messages), transcript(materialized))
	}

	if err := s.storage.Put(ctx, checkpointPath(branchID, snap.ID), snap); err != nil {
		return "", &types.CheckpointError{Message: "persist checkpoint", Cause: err}
	}
	return snap.ID, nil
}

// Restore replaces branchID's stored Branch record and message list with
// those from the named checkpoint (or the latest one if checkpointID is
// empty). It is an in-place replacement: the branch's message history
// after Restore is exactly what Save captured, nothing merged.
func (s *Service) Restore(ctx context.Context, branchID, checkpointID string) error {
	var snap *Snapshot
	var err error
	if checkpointID == "" {
		snap, err = s.latest(ctx, branchID)
	} else {
		snap, err = s.get(ctx, branchID, checkpointID)
	}
	if err != nil {
		return &types.CheckpointError{Message: "load checkpoint", Cause: err}
	}
	if snap == nil {
		return &types.CheckpointError{Message: "no checkpoint found for branch " + branchID}
	}

	if err := s.storage.UpdateBranch(ctx, &snap.Branch); err != nil {
		return &types.CheckpointError{Message: "restore branch", Cause: err}
	}

	// Messages are immutable once created (§3), so restoring a snapshot
	// writes directly at the storage layer rather than through
	// CreateMessage's exists-check: a checkpoint restore is a deliberate
	// full replacement of the branch's transcript, not an append.
	existing, err := s.storage.ListMessages(ctx, branchID)
	if err != nil {
		return &types.CheckpointError{Message: "list existing messages", Cause: err}
	}
	kept := make(map[string]bool, len(snap.Messages))
	for _, m := range snap.Messages {
		kept[m.ID] = true
	}
	for _, m := range existing {
		if !kept[m.ID] {
			_ = s.storage.Delete(ctx, []string{"message", branchID, m.ID})
		}
	}
	for i := range snap.Messages {
		msg := snap.Messages[i]
		if err := s.storage.Put(ctx, []string{"message", branchID, msg.ID}, &msg); err != nil {
			return &types.CheckpointError{Message: "restore message " + msg.ID, Cause: err}
		}
	}
	return nil
}

// List returns every checkpoint id for branchID, oldest first.
func (s *Service) List(ctx context.Context, branchID string) ([]string, error) {
	ids, err := s.storage.List(ctx, checkpointDirPath(branchID))
	if err != nil {
		return nil, &types.CheckpointError{Message: "list checkpoints", Cause: err}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Service) get(ctx context.Context, branchID, checkpointID string) (*Snapshot, error) {
	var snap Snapshot
	if err := s.storage.Get(ctx, checkpointPath(branchID, checkpointID), &snap); err != nil {
		if err == storage.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &snap, nil
}

func (s *Service) latest(ctx context.Context, branchID string) (*Snapshot, error) {
	ids, err := s.List(ctx, branchID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return s.get(ctx, branchID, ids[len(ids)-1])
}

func transcript(messages []types.Message) string {
	data, _ := json.Marshal(messages)
	return string(data)
}

// diffTranscripts mirrors the teacher's buildDiffMetadata line-mode diff
// (internal/tool/diff.go): map lines to chars for DiffMain, then expand
// back, rendering a patch via PatchToText rather than a raw diff list.
func diffTranscripts(before, after string) string {
	if before == after {
		return ""
	}
	dmp := diffmatchpatch.New()
	a, b, lineArray := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)
	patches := dmp.PatchMake(before, diffs)
	return dmp.PatchToText(patches)
}
