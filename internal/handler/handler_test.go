package handler

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"lorebridge/internal/lorebook"
	"lorebridge/internal/models"
	"lorebridge/internal/services"
	"lorebridge/internal/store"
	"lorebridge/internal/types"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type stubConfig struct {
	types.ConfigManager
	feature types.FeatureConfig
	lore    types.LorebookConfig
}

func (s *stubConfig) GetFeatureConfig() types.FeatureConfig   { return s.feature }
func (s *stubConfig) GetLorebookConfig() types.LorebookConfig { return s.lore }

func newTestHandler(t *testing.T) (*Handler, *services.RequestLogService) {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "world.json"),
		[]byte(`{"title":"World","entries":{"a":{"keys":["a"],"content":"A"},"b":{"keys":["b"],"content":"B"}}}`), 0644))

	config := &stubConfig{
		feature: types.FeatureConfig{ShowReasoning: true, DefaultModel: "deepseek-chat"},
		lore:    types.LorebookConfig{Enabled: true, Dir: dir},
	}

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.RequestLog{}))

	storeInst := store.NewMemoryStore()
	t.Cleanup(func() { storeInst.Close() })

	logService := services.NewRequestLogService(db, storeInst)
	return NewHandler(config, lorebook.NewLibrary(config), logService), logService
}

func TestHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, logService := newTestHandler(t)

	logService.Record(&models.RequestLog{IsSuccess: true, StatusCode: http.StatusOK})
	logService.Record(&models.RequestLog{IsSuccess: false, StatusCode: http.StatusBadGateway})

	router := gin.New()
	router.GET("/health", h.Health)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Equal(t, "healthy", gjson.Get(body, "status").String())
	assert.True(t, gjson.Get(body, "features.show_reasoning").Bool())
	assert.True(t, gjson.Get(body, "features.lorebook_enabled").Bool())
	assert.Equal(t, int64(1), gjson.Get(body, "lorebook.sources").Int())
	assert.Equal(t, int64(2), gjson.Get(body, "lorebook.entries").Int())
	assert.Equal(t, int64(2), gjson.Get(body, "requests.total").Int())
	assert.Equal(t, int64(1), gjson.Get(body, "requests.failure").Int())
}

func TestListModels(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, _ := newTestHandler(t)

	router := gin.New()
	router.GET("/v1/models", h.ListModels)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/models", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Equal(t, "list", gjson.Get(body, "object").String())
	assert.NotZero(t, gjson.Get(body, "data.#").Int())

	var ids []string
	for _, item := range gjson.Get(body, "data.#.id").Array() {
		ids = append(ids, item.String())
	}
	assert.Contains(t, ids, "gpt-4o")
	assert.Contains(t, ids, "deepseek-reasoner")
	assert.IsIncreasing(t, ids)
}
