package cli

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armatrix/mcp-gateway/session"
)

func TestOpenSessionsMemory(t *testing.T) {
	store, err := openSessions(context.Background(), "memory", "", "")
	require.NoError(t, err)
	assert.IsType(t, &session.MemoryStore{}, store)
}

func TestOpenSessionsFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "sessions")
	store, err := openSessions(context.Background(), "file", dir, "")
	require.NoError(t, err)
	assert.IsType(t, &session.FileStore{}, store)
	assert.DirExists(t, dir)
}

func TestOpenSessionsRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	store, err := openSessions(context.Background(), "redis", "", mr.Addr())
	require.NoError(t, err)
	assert.IsType(t, &session.RedisStore{}, store)
}

func TestOpenSessionsRedisUnreachable(t *testing.T) {
	_, err := openSessions(context.Background(), "redis", "", "127.0.0.1:1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis ping")
}

func TestOpenSessionsUnknownBackend(t *testing.T) {
	_, err := openSessions(context.Background(), "cassandra", "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown sessions backend")
}

func TestServeFlagDefaults(t *testing.T) {
	cmd := serveCmd()

	host := cmd.Flags().Lookup("host")
	require.NotNil(t, host)
	assert.Equal(t, "0.0.0.0", host.DefValue)

	port := cmd.Flags().Lookup("port")
	require.NotNil(t, port)
	assert.Equal(t, "7777", port.DefValue)

	sessions := cmd.Flags().Lookup("sessions")
	require.NotNil(t, sessions)
	assert.Equal(t, "memory", sessions.DefValue)
}
