package persistence

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/issue-tracker/internal/config"
)

func TestMigrationFilesSortedAndFiltered(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/002_more.sql": {Data: []byte("SELECT 2;")},
		"migrations/001_init.sql": {Data: []byte("SELECT 1;")},
		"migrations/README.md":    {Data: []byte("notes")},
	}
	names, err := migrationFiles(fsys, "migrations")
	require.NoError(t, err)
	assert.Equal(t, []string{"001_init.sql", "002_more.sql"}, names)
}

func TestEmbeddedMigrationsCreateSchema(t *testing.T) {
	names, err := migrationFiles(migrationsFS, migrationsDir)
	require.NoError(t, err)
	require.NotEmpty(t, names)

	content, err := migrationsFS.ReadFile(migrationsDir + "/" + names[0])
	require.NoError(t, err)
	for _, table := range []string{"users", "issues", "issue_history"} {
		assert.Contains(t, string(content), "CREATE TABLE IF NOT EXISTS "+table)
	}
	assert.Contains(t, string(content), "ON DELETE CASCADE")
}

func TestDisabledBackends(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()

	pg, err := NewPostgres(ctx, config.PostgresConfig{}, logger)
	require.NoError(t, err)
	assert.Nil(t, pg.PoolHandle())
	assert.ErrorIs(t, pg.Ping(ctx), ErrPostgresDisabled)
	assert.NoError(t, RunMigrations(ctx, pg.PoolHandle(), logger))
	pg.Close()

	rdb := NewRedis(ctx, config.RedisConfig{}, logger)
	assert.False(t, rdb.Enabled())
	assert.ErrorIs(t, rdb.Ping(ctx), ErrRedisDisabled)
	rdb.Close()
}
