package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentcore-ai/runtime/pkg/types"
)

func TestSessionCRUD(t *testing.T) {
	s := New(t.TempDir())
	ctx := context.Background()
	dir := "/home/user/project"

	sess := &types.Session{ID: "ses_1", Name: "first", Directory: dir}
	require.NoError(t, s.CreateSession(ctx, dir, sess))

	err := s.CreateSession(ctx, dir, sess)
	assert.Error(t, err, "create should fail if session already exists")

	got, err := s.GetSession(ctx, dir, "ses_1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "first", got.Name)

	missing, err := s.GetSession(ctx, dir, "ses_missing")
	require.NoError(t, err)
	assert.Nil(t, missing, "get on miss returns nil, nil rather than an error")

	got.Name = "renamed"
	require.NoError(t, s.UpdateSession(ctx, dir, got))
	reread, err := s.GetSession(ctx, dir, "ses_1")
	require.NoError(t, err)
	assert.Equal(t, "renamed", reread.Name)

	sess2 := &types.Session{ID: "ses_2", Name: "second", Directory: dir}
	require.NoError(t, s.CreateSession(ctx, dir, sess2))

	all, err := s.ListSessions(ctx, dir)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, s.DeleteSession(ctx, dir, "ses_1"))
	afterDelete, err := s.ListSessions(ctx, dir)
	require.NoError(t, err)
	assert.Len(t, afterDelete, 1)
}

func TestBranchTreeAndMessages(t *testing.T) {
	s := New(t.TempDir())
	ctx := context.Background()

	root := &types.Branch{ID: "brn_root", SessionID: "ses_1", Name: "main"}
	require.NoError(t, s.CreateBranch(ctx, root))

	child := &types.Branch{ID: "brn_child", SessionID: "ses_1", ParentBranchID: strPtr("brn_root"), Name: "experiment"}
	require.NoError(t, s.CreateBranch(ctx, child))

	msg1 := &types.Message{ID: "msg_1", SessionID: "ses_1", BranchID: "brn_root", Role: "user", Time: types.Timestamps{Created: 100}}
	msg2 := &types.Message{ID: "msg_2", SessionID: "ses_1", BranchID: "brn_root", Role: "assistant", Time: types.Timestamps{Created: 200}}
	require.NoError(t, s.CreateMessage(ctx, msg1))
	require.NoError(t, s.CreateMessage(ctx, msg2))

	err := s.CreateMessage(ctx, msg1)
	assert.Error(t, err, "create should fail if message already exists")

	msgs, err := s.ListMessages(ctx, "brn_root")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "msg_1", msgs[0].ID, "messages ordered by createdAt")
	assert.Equal(t, "msg_2", msgs[1].ID)

	tree, err := s.GetBranchTree(ctx, "ses_1")
	require.NoError(t, err)
	require.Len(t, tree, 1, "one root branch")
	assert.Equal(t, "brn_root", tree[0].Branch.ID)
	assert.Equal(t, 2, tree[0].MessageCount)
	require.Len(t, tree[0].Children, 1)
	assert.Equal(t, "brn_child", tree[0].Children[0].Branch.ID)
	assert.Equal(t, 0, tree[0].Children[0].MessageCount)
}

func TestReplaceTodosAllOrNothing(t *testing.T) {
	s := New(t.TempDir())
	ctx := context.Background()

	empty, err := s.ListTodos(ctx, "brn_1")
	require.NoError(t, err)
	assert.Empty(t, empty)

	todos := []types.Todo{
		{ID: "todo_1", Content: "write tests", Status: "pending"},
		{ID: "todo_2", Content: "ship it", Status: "pending"},
	}
	require.NoError(t, s.ReplaceTodos(ctx, "brn_1", todos))

	got, err := s.ListTodos(ctx, "brn_1")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	require.NoError(t, s.ReplaceTodos(ctx, "brn_1", []types.Todo{{ID: "todo_3", Content: "only one now", Status: "pending"}}))
	got, err = s.ListTodos(ctx, "brn_1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "todo_3", got[0].ID)
}

func strPtr(s string) *string { return &s }
