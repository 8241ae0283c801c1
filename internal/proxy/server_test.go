package proxy

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"lorebridge/internal/httpclient"
	"lorebridge/internal/lorebook"
	"lorebridge/internal/models"
	"lorebridge/internal/services"
	"lorebridge/internal/store"
	"lorebridge/internal/types"
	"lorebridge/internal/upstream"

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
	upstream types.UpstreamConfig
	feature  types.FeatureConfig
	lore     types.LorebookConfig
}

func (s *stubConfig) GetUpstreamConfig() types.UpstreamConfig { return s.upstream }
func (s *stubConfig) GetFeatureConfig() types.FeatureConfig   { return s.feature }
func (s *stubConfig) GetLorebookConfig() types.LorebookConfig { return s.lore }

func newTestRouter(t *testing.T, backendURL string, showReasoning bool, loreDir string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	config := &stubConfig{
		upstream: types.UpstreamConfig{
			BaseURL:               backendURL,
			APIKey:                "sk-server-key",
			ConnectTimeout:        5 * time.Second,
			RequestTimeout:        10 * time.Second,
			ResponseHeaderTimeout: 10 * time.Second,
			IdleConnTimeout:       30 * time.Second,
			MaxIdleConns:          10,
			MaxIdleConnsPerHost:   5,
		},
		feature: types.FeatureConfig{ShowReasoning: showReasoning, DefaultModel: "deepseek-chat"},
		lore:    types.LorebookConfig{Enabled: loreDir != "", Dir: loreDir},
	}

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.RequestLog{}))

	storeInst := store.NewMemoryStore()
	t.Cleanup(func() { storeInst.Close() })

	clientManager := httpclient.NewManager()
	resolver := upstream.NewResolver(config, storeInst, clientManager)
	server := NewProxyServer(
		config,
		lorebook.NewInjector(lorebook.NewLibrary(config)),
		upstream.NewMapper(config, resolver),
		upstream.NewClient(config, clientManager),
		services.NewRequestLogService(db, storeInst),
	)

	router := gin.New()
	router.POST("/v1/chat/completions", server.HandleChatCompletions)
	return router
}

func chatRequest(t *testing.T, stream bool) *http.Request {
	t.Helper()
	body := `{"model":"gpt-4o","messages":[{"role":"user","content":"hi"}]`
	if stream {
		body += `,"stream":true`
	}
	body += `}`
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestChatCompletionsNonStream(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "Bearer sk-server-key", req.Header.Get("Authorization"))

		var body models.BackendRequest
		require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
		assert.Equal(t, "deepseek-chat", body.Model)

		w.Write([]byte(`{"id":"chatcmpl-1","choices":[{"index":0,"message":{"role":"assistant","reasoning_content":"hmm","content":"hello"},"finish_reason":"stop"}],"usage":{"total_tokens":5}}`))
	}))
	defer backend.Close()

	router := newTestRouter(t, backend.URL, false, "")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, chatRequest(t, false))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello", gjson.Get(w.Body.String(), "choices.0.message.content").String())
	assert.False(t, gjson.Get(w.Body.String(), "choices.0.message.reasoning_content").Exists())
	assert.Equal(t, int64(5), gjson.Get(w.Body.String(), "usage.total_tokens").Int())
}

func TestChatCompletionsStream(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte(`data: {"choices":[{"index":0,"delta":{"reasoning_content":"hmm"}}]}` + "\n\n"))
		w.Write([]byte(`data: {"choices":[{"index":0,"delta":{"content":"hello"}}]}` + "\n\n"))
		w.Write([]byte("data: [DONE]\n\n"))
	}))
	defer backend.Close()

	router := newTestRouter(t, backend.URL, true, "")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, chatRequest(t, true))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	output := w.Body.String()
	assert.Contains(t, output, `"content":"<think>\nhmm"`)
	assert.Contains(t, output, `"content":"\n</think>\n\nhello"`)
	assert.NotContains(t, output, "reasoning_content")
	assert.True(t, strings.HasSuffix(output, "data: [DONE]\n\n"))
}

func TestChatCompletionsStreamHidesReasoning(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte(`data: {"choices":[{"index":0,"delta":{"reasoning_content":"secret"}}]}` + "\n\n"))
		w.Write([]byte(`data: {"choices":[{"index":0,"delta":{"content":"public"}}]}` + "\n\n"))
		w.Write([]byte("data: [DONE]\n\n"))
	}))
	defer backend.Close()

	router := newTestRouter(t, backend.URL, false, "")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, chatRequest(t, true))

	output := w.Body.String()
	assert.NotContains(t, output, "secret")
	assert.Contains(t, output, `"content":"public"`)
}

func TestChatCompletionsBackendErrorRelayed(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limited","type":"rate_limit_error"}}`))
	}))
	defer backend.Close()

	router := newTestRouter(t, backend.URL, false, "")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, chatRequest(t, false))

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "rate limited")
}

func TestChatCompletionsBackendUnreachable(t *testing.T) {
	router := newTestRouter(t, "http://127.0.0.1:1", false, "")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, chatRequest(t, false))

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), `"error"`)
}

func TestChatCompletionsInvalidBody(t *testing.T) {
	router := newTestRouter(t, "http://127.0.0.1:1", false, "")

	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(`{"model":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"error"`)
}

func TestChatCompletionsInjectsLore(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "world.json"),
		[]byte(`{"title":"World","entries":{"greet":{"keys":["hi"],"content":"Greetings are sacred."}}}`), 0644))

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		var body models.BackendRequest
		require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
		require.NotEmpty(t, body.Messages)
		assert.Equal(t, models.RoleSystem, body.Messages[0].Role)
		assert.Contains(t, body.Messages[0].Content, "Greetings are sacred.")

		w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"ok"}}]}`))
	}))
	defer backend.Close()

	router := newTestRouter(t, backend.URL, false, dir)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, chatRequest(t, false))

	assert.Equal(t, http.StatusOK, w.Code)
}
