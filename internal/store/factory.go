package store

import (
	"fmt"

	"lorebridge/internal/types"

	"github.com/sirupsen/logrus"
)

// NewStore creates a Store based on the configuration.
// A configured REDIS_DSN selects the Redis backend; otherwise the
// in-memory store is used.
func NewStore(configManager types.ConfigManager) (Store, error) {
	redisDSN := configManager.GetRedisDSN()

	if redisDSN == "" {
		logrus.Info("REDIS_DSN not configured, using in-memory store")
		return NewMemoryStore(), nil
	}

	redisStore, err := NewRedisStore(redisDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	logrus.Info("Using redis store")
	return redisStore, nil
}
