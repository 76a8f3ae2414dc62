package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/discourse/board"
	"github.com/cppla/discourse/gateway"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	// restored after the test; --gateway writes the same variable
	t.Setenv("GATEWAY_DRIVER", "memory")
	t.Setenv("NATS_URL", "")
	t.Setenv("REDIS_HOST", "")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "missing.json")}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, version+"\n", out)
}

func TestPostsListEmpty(t *testing.T) {
	out, err := execute(t, "--gateway", "memory", "posts", "list", "--sort", "views")
	require.NoError(t, err)
	assert.Contains(t, out, board.MsgNoPosts)
}

func TestPostsListRejectsUnknownSort(t *testing.T) {
	_, err := execute(t, "--gateway", "memory", "posts", "list", "--sort", "hot")
	require.ErrorIs(t, err, board.ErrInvalidSort)
}

func TestPostsShowMissing(t *testing.T) {
	_, err := execute(t, "--gateway", "memory", "posts", "show", "00000000-0000-0000-0000-000000000000")
	require.ErrorIs(t, err, gateway.ErrNotFound)
}

func TestUnknownGatewayFails(t *testing.T) {
	_, err := execute(t, "--gateway", "carrier-pigeon", "posts", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported GATEWAY_DRIVER")
}
