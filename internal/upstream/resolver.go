package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"lorebridge/internal/httpclient"
	"lorebridge/internal/store"
	"lorebridge/internal/types"

	"github.com/sirupsen/logrus"
)

const (
	modelListCacheKey = "upstream:models"
	modelListCacheTTL = 10 * time.Minute
)

// Resolver maps caller model names to backend identifiers. The static
// alias table answers most lookups; a miss probes the backend's model list
// (cached in the store) for an exact or prefix match, and anything still
// unresolved degrades to the configured default model. Resolution never
// fails: an unknown model is not an error.
type Resolver struct {
	store        store.Store
	client       *http.Client
	baseURL      string
	apiKey       string
	defaultModel string
}

func NewResolver(configManager types.ConfigManager, storeInst store.Store, clientManager *httpclient.Manager) *Resolver {
	upstreamConfig := configManager.GetUpstreamConfig()
	return &Resolver{
		store:        storeInst,
		client:       clientManager.GetClient(httpclient.RequestConfig(upstreamConfig)),
		baseURL:      upstreamConfig.BaseURL,
		apiKey:       upstreamConfig.APIKey,
		defaultModel: configManager.GetFeatureConfig().DefaultModel,
	}
}

// Resolve returns the backend identifier for a caller model name.
func (r *Resolver) Resolve(ctx context.Context, model string) string {
	if backend, ok := modelAliases[model]; ok {
		return backend
	}

	for _, backendModel := range r.backendModels(ctx) {
		if backendModel == model || strings.HasPrefix(backendModel, model) {
			logrus.WithFields(logrus.Fields{
				"requested": model,
				"resolved":  backendModel,
			}).Debug("Resolved model via backend model list")
			return backendModel
		}
	}

	logrus.WithFields(logrus.Fields{
		"requested": model,
		"fallback":  r.defaultModel,
	}).Debug("Unknown model, using default")
	return r.defaultModel
}

// backendModels returns the backend's model identifiers, serving from the
// store cache when fresh. Probe failures return nil so resolution falls
// back to the default model.
func (r *Resolver) backendModels(ctx context.Context) []string {
	if cached, err := r.store.Get(modelListCacheKey); err == nil {
		var ids []string
		if err := json.Unmarshal(cached, &ids); err == nil {
			return ids
		}
	}

	ids, err := r.fetchModels(ctx)
	if err != nil {
		logrus.WithError(err).Warn("Failed to list backend models")
		return nil
	}

	if encoded, err := json.Marshal(ids); err == nil {
		if err := r.store.Set(modelListCacheKey, encoded, modelListCacheTTL); err != nil {
			logrus.WithError(err).Warn("Failed to cache backend model list")
		}
	}
	return ids
}

func (r *Resolver) fetchModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/models", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("backend model list returned status %d", resp.StatusCode)
	}

	var list struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(list.Data))
	for _, m := range list.Data {
		ids = append(ids, m.ID)
	}
	return ids, nil
}
