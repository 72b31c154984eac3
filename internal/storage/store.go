package storage

import (
	"context"
	"errors"
	"sort"

	"github.com/agentcore-ai/runtime/internal/projectid"
	"github.com/agentcore-ai/runtime/pkg/types"
)

// Key layout, extending the teacher's session/{projectID}/{sessionID}
// convention with a first-class Branch and a branch-scoped Todo list:
//
//	session/{projectID}/{sessionID}
//	branch/{sessionID}/{branchID}
//	message/{branchID}/{messageID}
//	todo/{branchID}

func sessionPath(projectID, sessionID string) []string {
	return []string{"session", projectID, sessionID}
}

func sessionDirPath(projectID string) []string {
	return []string{"session", projectID}
}

func branchPath(sessionID, branchID string) []string {
	return []string{"branch", sessionID, branchID}
}

func branchDirPath(sessionID string) []string {
	return []string{"branch", sessionID}
}

func messagePath(branchID, messageID string) []string {
	return []string{"message", branchID, messageID}
}

func messageDirPath(branchID string) []string {
	return []string{"message", branchID}
}

func todoPath(branchID string) []string {
	return []string{"todo", branchID}
}

func wrapStorageErr(msg string, err error) error {
	if err == nil {
		return nil
	}
	return &types.StorageError{Message: msg, Cause: err}
}

// --- Session ---

// CreateSession fails if a session with this id already exists (§4.A
// contract: "create* fails if id exists").
func (s *Storage) CreateSession(ctx context.Context, projectDir string, sess *types.Session) error {
	pid := projectid.Of(projectDir)
	path := sessionPath(pid, sess.ID)
	if s.Exists(ctx, path) {
		return &types.StorageError{Message: "session already exists: " + sess.ID}
	}
	return wrapStorageErr("create session", s.Put(ctx, path, sess))
}

// GetSession returns (nil, nil) on miss — §4.A: "get* returns absent
// rather than failing on miss."
func (s *Storage) GetSession(ctx context.Context, projectDir, sessionID string) (*types.Session, error) {
	pid := projectid.Of(projectDir)
	var sess types.Session
	err := s.Get(ctx, sessionPath(pid, sessionID), &sess)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapStorageErr("get session", err)
	}
	return &sess, nil
}

func (s *Storage) UpdateSession(ctx context.Context, projectDir string, sess *types.Session) error {
	pid := projectid.Of(projectDir)
	return wrapStorageErr("update session", s.Put(ctx, sessionPath(pid, sess.ID), sess))
}

func (s *Storage) DeleteSession(ctx context.Context, projectDir, sessionID string) error {
	pid := projectid.Of(projectDir)
	return wrapStorageErr("delete session", s.Delete(ctx, sessionPath(pid, sessionID)))
}

// ListSessions is lexicographic-stable on session id (§4.A).
func (s *Storage) ListSessions(ctx context.Context, projectDir string) ([]*types.Session, error) {
	pid := projectid.Of(projectDir)
	ids, err := s.List(ctx, sessionDirPath(pid))
	if err != nil {
		return nil, wrapStorageErr("list sessions", err)
	}
	sort.Strings(ids)

	sessions := make([]*types.Session, 0, len(ids))
	for _, id := range ids {
		sess, err := s.GetSession(ctx, projectDir, id)
		if err != nil {
			return nil, err
		}
		if sess != nil {
			sessions = append(sessions, sess)
		}
	}
	return sessions, nil
}

// --- Branch ---

func (s *Storage) CreateBranch(ctx context.Context, branch *types.Branch) error {
	path := branchPath(branch.SessionID, branch.ID)
	if s.Exists(ctx, path) {
		return &types.StorageError{Message: "branch already exists: " + branch.ID}
	}
	return wrapStorageErr("create branch", s.Put(ctx, path, branch))
}

func (s *Storage) GetBranch(ctx context.Context, sessionID, branchID string) (*types.Branch, error) {
	var b types.Branch
	err := s.Get(ctx, branchPath(sessionID, branchID), &b)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapStorageErr("get branch", err)
	}
	return &b, nil
}

func (s *Storage) UpdateBranch(ctx context.Context, branch *types.Branch) error {
	return wrapStorageErr("update branch", s.Put(ctx, branchPath(branch.SessionID, branch.ID), branch))
}

// ListBranches is lexicographic-stable on branch id (§4.A).
func (s *Storage) ListBranches(ctx context.Context, sessionID string) ([]*types.Branch, error) {
	ids, err := s.List(ctx, branchDirPath(sessionID))
	if err != nil {
		return nil, wrapStorageErr("list branches", err)
	}
	sort.Strings(ids)

	branches := make([]*types.Branch, 0, len(ids))
	for _, id := range ids {
		b, err := s.GetBranch(ctx, sessionID, id)
		if err != nil {
			return nil, err
		}
		if b != nil {
			branches = append(branches, b)
		}
	}
	return branches, nil
}

// GetBranchTree returns the branch forest for a session with per-node
// message counts (§4.A).
func (s *Storage) GetBranchTree(ctx context.Context, sessionID string) ([]types.BranchTreeNode, error) {
	branches, err := s.ListBranches(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	byParent := make(map[string][]*types.Branch)
	var roots []*types.Branch
	for _, b := range branches {
		if b.ParentBranchID == nil {
			roots = append(roots, b)
		} else {
			byParent[*b.ParentBranchID] = append(byParent[*b.ParentBranchID], b)
		}
	}

	var build func(b *types.Branch) (types.BranchTreeNode, error)
	build = func(b *types.Branch) (types.BranchTreeNode, error) {
		msgs, err := s.ListMessages(ctx, b.ID)
		if err != nil {
			return types.BranchTreeNode{}, err
		}
		node := types.BranchTreeNode{Branch: *b, MessageCount: len(msgs)}
		for _, child := range byParent[b.ID] {
			childNode, err := build(child)
			if err != nil {
				return types.BranchTreeNode{}, err
			}
			node.Children = append(node.Children, childNode)
		}
		return node, nil
	}

	nodes := make([]types.BranchTreeNode, 0, len(roots))
	for _, root := range roots {
		node, err := build(root)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

// --- Message ---

func (s *Storage) CreateMessage(ctx context.Context, msg *types.Message) error {
	path := messagePath(msg.BranchID, msg.ID)
	if s.Exists(ctx, path) {
		return &types.StorageError{Message: "message already exists: " + msg.ID}
	}
	return wrapStorageErr("create message", s.Put(ctx, path, msg))
}

func (s *Storage) GetMessage(ctx context.Context, branchID, messageID string) (*types.Message, error) {
	var m types.Message
	err := s.Get(ctx, messagePath(branchID, messageID), &m)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapStorageErr("get message", err)
	}
	return &m, nil
}

// ListMessages returns messages in createdAt order, stable by id on ties
// (§4.A).
func (s *Storage) ListMessages(ctx context.Context, branchID string) ([]*types.Message, error) {
	ids, err := s.List(ctx, messageDirPath(branchID))
	if err != nil {
		return nil, wrapStorageErr("list messages", err)
	}

	messages := make([]*types.Message, 0, len(ids))
	for _, id := range ids {
		m, err := s.GetMessage(ctx, branchID, id)
		if err != nil {
			return nil, err
		}
		if m != nil {
			messages = append(messages, m)
		}
	}

	sort.SliceStable(messages, func(i, j int) bool {
		if messages[i].Time.Created != messages[j].Time.Created {
			return messages[i].Time.Created < messages[j].Time.Created
		}
		return messages[i].ID < messages[j].ID
	})
	return messages, nil
}

// --- Todo ---

// ReplaceTodos is all-or-nothing: the full list for branchID is replaced in
// one call, no incremental CRUD (§4.A, §9).
func (s *Storage) ReplaceTodos(ctx context.Context, branchID string, todos []types.Todo) error {
	return wrapStorageErr("replace todos", s.Put(ctx, todoPath(branchID), todos))
}

func (s *Storage) ListTodos(ctx context.Context, branchID string) ([]types.Todo, error) {
	var todos []types.Todo
	err := s.Get(ctx, todoPath(branchID), &todos)
	if errors.Is(err, ErrNotFound) {
		return []types.Todo{}, nil
	}
	if err != nil {
		return nil, wrapStorageErr("list todos", err)
	}
	return todos, nil
}
