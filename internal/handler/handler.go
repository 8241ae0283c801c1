// Package handler provides the status and introspection endpoints.
package handler

import (
	"net/http"
	"sort"
	"time"

	"lorebridge/internal/lorebook"
	"lorebridge/internal/models"
	"lorebridge/internal/services"
	"lorebridge/internal/types"
	"lorebridge/internal/upstream"
	"lorebridge/internal/version"

	"github.com/gin-gonic/gin"
)

// Handler serves the read-only status surface.
type Handler struct {
	feature           types.FeatureConfig
	library           *lorebook.Library
	requestLogService *services.RequestLogService
	startTime         time.Time
}

// NewHandler creates a new handler instance.
func NewHandler(
	configManager types.ConfigManager,
	library *lorebook.Library,
	requestLogService *services.RequestLogService,
) *Handler {
	return &Handler{
		feature:           configManager.GetFeatureConfig(),
		library:           library,
		requestLogService: requestLogService,
		startTime:         time.Now(),
	}
}

// Health serves GET /health.
func (h *Handler) Health(c *gin.Context) {
	sources, entries := h.library.Counts()
	total, success, failure := h.requestLogService.Counters()

	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"version": version.Version,
		"uptime":  time.Since(h.startTime).Truncate(time.Second).String(),
		"features": gin.H{
			"show_reasoning":   h.feature.ShowReasoning,
			"enable_thinking":  h.feature.EnableThinking,
			"lorebook_enabled": h.library.Enabled(),
		},
		"lorebook": gin.H{
			"sources": sources,
			"entries": entries,
		},
		"requests": gin.H{
			"total":   total,
			"success": success,
			"failure": failure,
		},
	})
}

// ListModels serves GET /v1/models with the caller-facing model names.
func (h *Handler) ListModels(c *gin.Context) {
	names := upstream.AliasedModels()
	sort.Strings(names)

	data := make([]models.ModelInfo, 0, len(names))
	created := h.startTime.Unix()
	for _, name := range names {
		data = append(data, models.ModelInfo{
			ID:      name,
			Object:  "model",
			Created: created,
			OwnedBy: "lorebridge",
		})
	}

	c.JSON(http.StatusOK, models.ModelList{Object: "list", Data: data})
}
