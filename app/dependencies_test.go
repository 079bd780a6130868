package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/audit-trail/config"
	"github.com/upb/audit-trail/models"
	"github.com/upb/audit-trail/services/user"
	"go.uber.org/zap/zaptest"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Environment: "test",
		Server: config.ServerConfig{
			Host:            "127.0.0.1",
			Port:            8080,
			ShutdownTimeout: time.Second,
		},
		Storage: config.StorageConfig{
			Backend: config.BackendFile,
			DataDir: t.TempDir(),
		},
		Recorder: config.RecorderConfig{
			Enabled:         true,
			Workers:         1,
			BufferSize:      8,
			ShutdownTimeout: time.Second,
		},
		Observability: config.ObservabilityConfig{
			LogLevel:  "debug",
			LogFormat: "console",
		},
	}
}

func TestNewDependencies(t *testing.T) {
	t.Run("file backend wires every component", func(t *testing.T) {
		ctx := context.Background()
		cfg := testConfig(t)

		deps, err := NewDependencies(ctx, cfg, zaptest.NewLogger(t))
		require.NoError(t, err)
		require.NotNil(t, deps)

		assert.NotNil(t, deps.Store)
		assert.Nil(t, deps.Watcher)
		assert.Nil(t, deps.RepoFactory)
		assert.Nil(t, deps.LedgerClient)

		require.NotNil(t, deps.Repos)
		assert.NotNil(t, deps.Repos.Users)
		assert.NotNil(t, deps.Repos.Audits)
		assert.NotNil(t, deps.Repos.Reports)

		assert.NotNil(t, deps.Users)
		assert.NotNil(t, deps.Audits)
		assert.NotNil(t, deps.Reports)
		assert.NotNil(t, deps.Recorder)
		assert.True(t, deps.Recorder.GetStats().Started)

		assert.Contains(t, deps.HealthChecks, "store")
		assert.Equal(t, config.BackendFile, deps.Backend())

		assert.NoError(t, deps.Close(ctx))
	})

	t.Run("watch enables the file watcher", func(t *testing.T) {
		ctx := context.Background()
		cfg := testConfig(t)
		cfg.Storage.Watch = true

		deps, err := NewDependencies(ctx, cfg, zaptest.NewLogger(t))
		require.NoError(t, err)
		assert.NotNil(t, deps.Watcher)

		assert.NoError(t, deps.Close(ctx))
	})

	t.Run("recorder disabled", func(t *testing.T) {
		ctx := context.Background()
		cfg := testConfig(t)
		cfg.Recorder.Enabled = false

		deps, err := NewDependencies(ctx, cfg, zaptest.NewLogger(t))
		require.NoError(t, err)
		assert.Nil(t, deps.Recorder)
		assert.NotNil(t, deps.Users)

		assert.NoError(t, deps.Close(ctx))
	})

	t.Run("unknown backend", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Storage.Backend = "s3"

		deps, err := NewDependencies(context.Background(), cfg, zaptest.NewLogger(t))
		assert.Error(t, err)
		assert.Nil(t, deps)
		assert.Contains(t, err.Error(), "unknown storage backend")
	})

	t.Run("database connection failure", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Storage.Backend = config.BackendPostgres
		cfg.Database = config.DatabaseConfig{
			Host:     "127.0.0.1",
			Port:     1,
			User:     "audit",
			Database: "audit",
			SSLMode:  "disable",
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		deps, err := NewDependencies(ctx, cfg, zaptest.NewLogger(t))
		assert.Error(t, err)
		assert.Nil(t, deps)
	})
}

func TestDependencies_RecorderWritesUserLifecycle(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	deps, err := NewDependencies(ctx, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)

	u, err := deps.Users.Register(ctx, user.RegisterRequest{
		Username:     "alice",
		Email:        "alice@example.com",
		Role:         models.RoleUser,
		Organization: "Org1",
	})
	require.NoError(t, err)

	// Close drains the recorder buffer
	require.NoError(t, deps.Close(ctx))

	entries, err := deps.Repos.Audits.ListByUser(ctx, "system")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.ActionCreate, entries[0].Action)
	assert.Equal(t, u.ID, entries[0].ResourceID)
}

func TestDependencies_CloseIsSafeWithoutRecorder(t *testing.T) {
	cfg := testConfig(t)
	cfg.Recorder.Enabled = false

	deps, err := NewDependencies(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.NoError(t, deps.Close(context.Background()))
	assert.NoError(t, deps.Store.Ping(context.Background()))
}

func TestDependencies_DefaultConfigOnlyHoldsLoggedEntries(t *testing.T) {
	ctx := context.Background()
	t.Setenv("RECORDER_ENABLED", "")
	t.Setenv("STORAGE_BACKEND", config.BackendFile)
	t.Setenv("DATA_DIR", t.TempDir())

	cfg, err := config.New(ctx)
	require.NoError(t, err)
	require.False(t, cfg.Recorder.Enabled)

	deps, err := NewDependencies(ctx, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)

	_, err = deps.Users.Register(ctx, user.RegisterRequest{
		Username:     "alice",
		Email:        "alice@example.com",
		Role:         models.RoleUser,
		Organization: "Org1",
	})
	require.NoError(t, err)
	require.NoError(t, deps.Close(ctx))

	entries, err := deps.Repos.Audits.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
