package actor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentcore-ai/runtime/pkg/types"
)

func TestSteerNoopOnUnknownHandle(t *testing.T) {
	l := NewLoop(Deps{})
	err := l.Steer(SteerCommand{Tag: "cancel", SessionID: "ses_missing", BranchID: "brn_missing"})
	assert.NoError(t, err)
}

func TestRespondQuestionsUnknownHandle(t *testing.T) {
	l := NewLoop(Deps{})
	err := l.RespondQuestions("ses_missing", "brn_missing", "req_1", [][]string{{"yes"}})
	require.Error(t, err)
	var loopErr *types.AgentLoopError
	assert.ErrorAs(t, err, &loopErr)
}

func TestRespondPlanUnknownHandle(t *testing.T) {
	l := NewLoop(Deps{})
	err := l.RespondPlan("ses_missing", "brn_missing", "req_1", "confirm", "")
	require.Error(t, err)
	var loopErr *types.AgentLoopError
	assert.ErrorAs(t, err, &loopErr)
}

func TestRespondQuestionsUnknownRequestID(t *testing.T) {
	l := NewLoop(Deps{})
	h := l.newHandle("ses_1", "brn_1")
	l.handles[handleKey("ses_1", "brn_1")] = h

	err := l.RespondQuestions("ses_1", "brn_1", "req_never_awaited", nil)
	require.Error(t, err)
	var badArg *types.BadArgument
	assert.ErrorAs(t, err, &badArg)
}

func TestRespondPermissionWithoutCheckerConfigured(t *testing.T) {
	l := NewLoop(Deps{})
	err := l.RespondPermission("req_1", "allow")
	require.Error(t, err)
	var loopErr *types.AgentLoopError
	assert.ErrorAs(t, err, &loopErr)
}

func TestIsRunningDefaultsFalse(t *testing.T) {
	l := NewLoop(Deps{})
	assert.False(t, l.IsRunning("ses_missing", "brn_missing"))
}

func TestIsRunningReflectsHandleState(t *testing.T) {
	l := NewLoop(Deps{})
	h := l.newHandle("ses_1", "brn_1")
	h.running = true
	l.handles[handleKey("ses_1", "brn_1")] = h

	assert.True(t, l.IsRunning("ses_1", "brn_1"))
}

func TestSteerUnknownTagOnLiveHandle(t *testing.T) {
	l := NewLoop(Deps{})
	h := l.newHandle("ses_1", "brn_1")
	l.handles[handleKey("ses_1", "brn_1")] = h

	err := l.Steer(SteerCommand{Tag: "bogus", SessionID: "ses_1", BranchID: "brn_1"})
	require.Error(t, err)
	var badArg *types.BadArgument
	assert.ErrorAs(t, err, &badArg)
}

func TestSteerInterjectDeliversToChannel(t *testing.T) {
	l := NewLoop(Deps{})
	h := l.newHandle("ses_1", "brn_1")
	l.handles[handleKey("ses_1", "brn_1")] = h

	err := l.Steer(SteerCommand{Tag: "interject", SessionID: "ses_1", BranchID: "brn_1", Message: "hurry up"})
	require.NoError(t, err)

	select {
	case msg := <-h.interject:
		assert.Equal(t, "hurry up", msg)
	default:
		t.Fatal("expected interject message to be buffered on handle.interject")
	}
}
