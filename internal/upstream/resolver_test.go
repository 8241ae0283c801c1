package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"lorebridge/internal/httpclient"
	"lorebridge/internal/store"
	"lorebridge/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubConfig struct {
	types.ConfigManager
	upstream types.UpstreamConfig
	feature  types.FeatureConfig
}

func (s *stubConfig) GetUpstreamConfig() types.UpstreamConfig { return s.upstream }
func (s *stubConfig) GetFeatureConfig() types.FeatureConfig   { return s.feature }

func newStubConfig(baseURL string) *stubConfig {
	return &stubConfig{
		upstream: types.UpstreamConfig{
			BaseURL:               baseURL,
			APIKey:                "sk-server-key",
			ConnectTimeout:        5 * time.Second,
			RequestTimeout:        10 * time.Second,
			ResponseHeaderTimeout: 10 * time.Second,
			IdleConnTimeout:       30 * time.Second,
			MaxIdleConns:          10,
			MaxIdleConnsPerHost:   5,
		},
		feature: types.FeatureConfig{DefaultModel: "deepseek-chat"},
	}
}

func TestResolveAliasHit(t *testing.T) {
	r := NewResolver(newStubConfig("http://unreachable.invalid"), store.NewMemoryStore(), httpclient.NewManager())

	// Alias hits never touch the backend.
	assert.Equal(t, "deepseek-chat", r.Resolve(context.Background(), "gpt-4o"))
	assert.Equal(t, "deepseek-reasoner", r.Resolve(context.Background(), "o1"))
}

func TestResolveProbesBackendOnMiss(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		calls.Add(1)
		require.Equal(t, "/models", req.URL.Path)
		require.Equal(t, "Bearer sk-server-key", req.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"object":"list","data":[{"id":"deepseek-chat"},{"id":"deepseek-reasoner-v3"}]}`))
	}))
	defer server.Close()

	r := NewResolver(newStubConfig(server.URL), store.NewMemoryStore(), httpclient.NewManager())

	// Prefix match against the probed list.
	assert.Equal(t, "deepseek-reasoner-v3", r.Resolve(context.Background(), "deepseek-reasoner-v"))
	// Second miss is served from the cache.
	assert.Equal(t, "deepseek-chat", r.Resolve(context.Background(), "deepseek-ch"))
	assert.Equal(t, int64(1), calls.Load())
}

func TestResolveFallsBackToDefault(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(`{"object":"list","data":[{"id":"deepseek-chat"}]}`))
	}))
	defer server.Close()

	r := NewResolver(newStubConfig(server.URL), store.NewMemoryStore(), httpclient.NewManager())

	assert.Equal(t, "deepseek-chat", r.Resolve(context.Background(), "totally-unknown"))
}

func TestResolveProbeFailureDegradesToDefault(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	r := NewResolver(newStubConfig(server.URL), store.NewMemoryStore(), httpclient.NewManager())

	assert.Equal(t, "deepseek-chat", r.Resolve(context.Background(), "mystery-model"))
}

func TestAliasedModels(t *testing.T) {
	names := AliasedModels()
	assert.Len(t, names, len(modelAliases))
	assert.Contains(t, names, "gpt-4o")
}
