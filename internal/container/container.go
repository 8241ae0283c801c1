// Package container wires application dependencies with dig.
package container

import (
	"lorebridge/internal/app"
	"lorebridge/internal/config"
	"lorebridge/internal/db"
	"lorebridge/internal/handler"
	"lorebridge/internal/httpclient"
	"lorebridge/internal/lorebook"
	"lorebridge/internal/proxy"
	"lorebridge/internal/router"
	"lorebridge/internal/services"
	"lorebridge/internal/store"
	"lorebridge/internal/upstream"

	"go.uber.org/dig"
)

// BuildContainer creates and configures the dependency injection container.
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	providers := []any{
		config.NewManager,
		store.NewStore,
		db.NewDB,
		httpclient.NewManager,
		lorebook.NewLibrary,
		lorebook.NewInjector,
		lorebook.NewWatcher,
		upstream.NewResolver,
		upstream.NewMapper,
		upstream.NewClient,
		services.NewRequestLogService,
		proxy.NewProxyServer,
		handler.NewHandler,
		router.NewRouter,
		app.NewApp,
	}

	for _, provider := range providers {
		if err := container.Provide(provider); err != nil {
			return nil, err
		}
	}

	return container, nil
}
