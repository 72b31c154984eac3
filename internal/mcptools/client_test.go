package mcptools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentcore-ai/runtime/pkg/types"
)

func TestSanitizeReplacesDashesAndSpaces(t *testing.T) {
	assert.Equal(t, "my_server_name", sanitize("my-server name"))
	assert.Equal(t, "already_clean", sanitize("already_clean"))
}

func TestBuildTransportRemoteMissingURL(t *testing.T) {
	_, err := buildTransport(types.MCPConfig{Type: "remote"}, 0)
	require.Error(t, err)
}

func TestBuildTransportLocalMissingCommand(t *testing.T) {
	_, err := buildTransport(types.MCPConfig{Type: "local"}, 0)
	require.Error(t, err)
}

func TestBuildTransportUnknownType(t *testing.T) {
	_, err := buildTransport(types.MCPConfig{Type: "carrier-pigeon"}, 0)
	require.Error(t, err)
}

func TestBuildTransportLocalDefaultsToStdio(t *testing.T) {
	transport, err := buildTransport(types.MCPConfig{Command: []string{"echo", "hi"}}, 0)
	require.NoError(t, err)
	assert.NotNil(t, transport)
}

func TestAddServerDisabledSkipsConnect(t *testing.T) {
	c := NewClient()
	disabled := false
	err := c.AddServer(context.Background(), "disabled-server", types.MCPConfig{
		Type:    "local",
		Command: []string{"does-not-exist"},
		Enabled: &disabled,
	})
	require.NoError(t, err)
	assert.Empty(t, c.Tools())
}

func TestAddServerBadCommandRecordsFailureNotPanic(t *testing.T) {
	c := NewClient()
	err := c.AddServer(context.Background(), "broken", types.MCPConfig{
		Type:    "local",
		Command: []string{"/definitely/not/a/real/binary"},
		Timeout: 50,
	})
	require.Error(t, err)
	assert.Empty(t, c.Tools())
}

func TestToolsEmptyOnFreshClient(t *testing.T) {
	c := NewClient()
	assert.Empty(t, c.Tools())
}

func TestCloseOnFreshClientIsNoop(t *testing.T) {
	c := NewClient()
	assert.NoError(t, c.Close())
}

func TestExecuteUnknownServerReturnsError(t *testing.T) {
	c := NewClient()
	_, err := c.Execute(context.Background(), PrefixedTool{PrefixedName: "x_y", serverName: "absent", originalName: "y"}, nil)
	require.Error(t, err)
}
