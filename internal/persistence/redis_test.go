package persistence

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/mitra-marketplace/internal/config"
)

func TestRedisReportCountsKeyspaces(t *testing.T) {
	mr := miniredis.RunT(t)
	r := NewRedis(context.Background(), config.RedisConfig{Addr: mr.Addr()}, zap.NewNop(), map[string]string{
		"sessions": "session:",
		"views":    "view:",
	})
	t.Cleanup(r.Close)

	for _, key := range []string{"session:a", "session:b", "view:admin-stats", "view:admin-stats:gen", "other"} {
		require.NoError(t, mr.Set(key, "1"))
	}

	require.NoError(t, r.Ping(context.Background()))
	report, err := r.Report(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"sessions": 2, "views": 1}, report)
}

func TestRedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	r := NewRedis(context.Background(), config.RedisConfig{Addr: addr}, zap.NewNop(), map[string]string{"sessions": "session:"})
	t.Cleanup(r.Close)

	assert.Error(t, r.Ping(context.Background()))
	_, err := r.Report(context.Background())
	assert.Error(t, err)
}
