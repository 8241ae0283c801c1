package upstream

import (
	"context"

	"lorebridge/internal/models"
	"lorebridge/internal/types"
)

// Sampling defaults applied when the caller omits them.
const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 4096
)

// Mapper builds backend requests from caller requests. It never fails on a
// well-formed input: every caller request maps to a valid backend request.
type Mapper struct {
	resolver       *Resolver
	enableThinking bool
}

func NewMapper(configManager types.ConfigManager, resolver *Resolver) *Mapper {
	return &Mapper{
		resolver:       resolver,
		enableThinking: configManager.GetFeatureConfig().EnableThinking,
	}
}

// Map translates a caller request into the backend's request shape. The
// messages slice is referenced as-is; injection has already produced a
// fresh slice by the time mapping runs.
func (m *Mapper) Map(ctx context.Context, req *models.ChatCompletionRequest) *models.BackendRequest {
	backend := &models.BackendRequest{
		Model:       m.resolver.Resolve(ctx, req.Model),
		Messages:    req.Messages,
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
		Stream:      req.Stream,
	}

	if req.Temperature != nil {
		backend.Temperature = *req.Temperature
	}
	if req.MaxTokens != nil {
		backend.MaxTokens = *req.MaxTokens
	}
	if m.enableThinking {
		enabled := true
		backend.EnableThinking = &enabled
	}
	return backend
}
