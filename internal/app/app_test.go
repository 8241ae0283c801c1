package app

import (
	"context"
	"testing"
	"time"

	"lorebridge/internal/config"
	"lorebridge/internal/db"
	"lorebridge/internal/httpclient"
	"lorebridge/internal/lorebook"
	"lorebridge/internal/services"
	"lorebridge/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	t.Setenv("UPSTREAM_API_KEY", "sk-test-key")
	t.Setenv("DATABASE_DSN", ":memory:")
	t.Setenv("LOREBOOK_ENABLED", "false")

	configManager, err := config.NewManager()
	require.NoError(t, err)

	database, err := db.NewDB(configManager)
	require.NoError(t, err)

	storage := store.NewMemoryStore()
	library := lorebook.NewLibrary(configManager)
	watcher, err := lorebook.NewWatcher(library)
	require.NoError(t, err)

	gin.SetMode(gin.TestMode)
	return NewApp(AppParams{
		Engine:            gin.New(),
		ConfigManager:     configManager,
		RequestLogService: services.NewRequestLogService(database, storage),
		LorebookWatcher:   watcher,
		HTTPClientManager: httpclient.NewManager(),
		Storage:           storage,
		DB:                database,
	})
}

func TestNewApp(t *testing.T) {
	application := newTestApp(t)
	assert.NotNil(t, application)
	assert.Nil(t, application.httpServer)
}

func TestAppStopBeforeStart(t *testing.T) {
	application := newTestApp(t)

	// Stop must be safe even when the HTTP server never started.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	application.Stop(ctx)
}
