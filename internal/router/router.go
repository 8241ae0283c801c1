// Package router wires the HTTP routes and middleware chain.
package router

import (
	"lorebridge/internal/handler"
	"lorebridge/internal/middleware"
	"lorebridge/internal/proxy"
	"lorebridge/internal/types"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
)

// NewRouter creates the gin engine with all routes registered.
func NewRouter(
	configManager types.ConfigManager,
	statusHandler *handler.Handler,
	proxyServer *proxy.ProxyServer,
) *gin.Engine {
	logConfig := configManager.GetLogConfig()
	if logConfig.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.Recovery())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.Logger())
	router.Use(middleware.CORS(configManager.GetCORSConfig()))
	// Streaming responses are exempt from gzip so events flush immediately.
	router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/v1/chat/completions"})))
	router.Use(middleware.Auth(configManager.GetAuthConfig()))

	router.GET("/health", statusHandler.Health)

	v1 := router.Group("/v1")
	{
		v1.POST("/chat/completions", proxyServer.HandleChatCompletions)
		v1.GET("/models", statusHandler.ListModels)
	}

	return router
}
