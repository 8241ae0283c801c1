// Package config provides environment-backed configuration management.
// Configuration is loaded once at startup and immutable thereafter.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"lorebridge/internal/types"
	"lorebridge/internal/utils"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Default values applied when the corresponding variable is absent.
const (
	DefaultUpstreamBaseURL = "https://api.deepseek.com"
	DefaultModel           = "deepseek-chat"
	DefaultLorebookDir     = "./lorebooks"
	DefaultDatabaseDSN     = "./data/lorebridge.db"
)

// Manager implements types.ConfigManager on top of process environment
// variables (optionally seeded from a .env file).
type Manager struct {
	server   types.ServerConfig
	auth     types.AuthConfig
	cors     types.CORSConfig
	log      types.LogConfig
	database types.DatabaseConfig
	redisDSN string
	upstream types.UpstreamConfig
	features types.FeatureConfig
	lorebook types.LorebookConfig
}

// NewManager creates a configuration manager from the environment.
func NewManager() (types.ConfigManager, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found, using environment variables")
	}

	m := &Manager{
		server: types.ServerConfig{
			Port:                    parseInteger(os.Getenv("PORT"), 3001),
			Host:                    getEnvOrDefault("HOST", "0.0.0.0"),
			ReadTimeout:             parseInteger(os.Getenv("SERVER_READ_TIMEOUT"), 60),
			WriteTimeout:            parseInteger(os.Getenv("SERVER_WRITE_TIMEOUT"), 600),
			IdleTimeout:             parseInteger(os.Getenv("SERVER_IDLE_TIMEOUT"), 120),
			GracefulShutdownTimeout: parseInteger(os.Getenv("SERVER_GRACEFUL_SHUTDOWN_TIMEOUT"), 10),
		},
		auth: types.AuthConfig{
			Keys: parseKeySet(os.Getenv("AUTH_KEYS")),
		},
		cors: types.CORSConfig{
			Enabled:          parseBoolean(os.Getenv("ENABLE_CORS"), true),
			AllowedOrigins:   utils.SplitAndTrim(getEnvOrDefault("ALLOWED_ORIGINS", "*"), ","),
			AllowedMethods:   utils.SplitAndTrim(getEnvOrDefault("ALLOWED_METHODS", "GET,POST,OPTIONS"), ","),
			AllowedHeaders:   utils.SplitAndTrim(getEnvOrDefault("ALLOWED_HEADERS", "*"), ","),
			AllowCredentials: parseBoolean(os.Getenv("ALLOW_CREDENTIALS"), false),
		},
		log: types.LogConfig{
			Level:      getEnvOrDefault("LOG_LEVEL", "info"),
			Format:     getEnvOrDefault("LOG_FORMAT", "text"),
			EnableFile: parseBoolean(os.Getenv("LOG_ENABLE_FILE"), false),
			FilePath:   getEnvOrDefault("LOG_FILE_PATH", "./logs/lorebridge.log"),
		},
		database: types.DatabaseConfig{
			DSN: getEnvOrDefault("DATABASE_DSN", DefaultDatabaseDSN),
		},
		redisDSN: os.Getenv("REDIS_DSN"),
		upstream: types.UpstreamConfig{
			BaseURL:               strings.TrimRight(getEnvOrDefault("UPSTREAM_BASE_URL", DefaultUpstreamBaseURL), "/"),
			APIKey:                os.Getenv("UPSTREAM_API_KEY"),
			ConnectTimeout:        time.Duration(parseInteger(os.Getenv("CONNECT_TIMEOUT"), 15)) * time.Second,
			RequestTimeout:        time.Duration(parseInteger(os.Getenv("REQUEST_TIMEOUT"), 600)) * time.Second,
			ResponseHeaderTimeout: time.Duration(parseInteger(os.Getenv("RESPONSE_HEADER_TIMEOUT"), 600)) * time.Second,
			IdleConnTimeout:       time.Duration(parseInteger(os.Getenv("IDLE_CONN_TIMEOUT"), 120)) * time.Second,
			MaxIdleConns:          parseInteger(os.Getenv("MAX_IDLE_CONNS"), 100),
			MaxIdleConnsPerHost:   parseInteger(os.Getenv("MAX_IDLE_CONNS_PER_HOST"), 50),
		},
		features: types.FeatureConfig{
			ShowReasoning:  parseBoolean(os.Getenv("SHOW_REASONING"), false),
			EnableThinking: parseBoolean(os.Getenv("ENABLE_THINKING"), false),
			DefaultModel:   getEnvOrDefault("DEFAULT_MODEL", DefaultModel),
		},
		lorebook: types.LorebookConfig{
			Enabled: parseBoolean(os.Getenv("LOREBOOK_ENABLED"), true),
			Dir:     getEnvOrDefault("LOREBOOK_DIR", DefaultLorebookDir),
			Watch:   parseBoolean(os.Getenv("LOREBOOK_WATCH"), true),
		},
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate checks the configuration for consistency.
func (m *Manager) Validate() error {
	if m.server.Port < 1 || m.server.Port > 65535 {
		return fmt.Errorf("invalid PORT: %d", m.server.Port)
	}
	if m.upstream.APIKey == "" {
		return fmt.Errorf("UPSTREAM_API_KEY is required")
	}
	if m.upstream.BaseURL == "" {
		return fmt.Errorf("UPSTREAM_BASE_URL must not be empty")
	}
	if m.cors.Enabled && len(m.cors.AllowedOrigins) == 0 {
		return fmt.Errorf("ALLOWED_ORIGINS must not be empty when CORS is enabled")
	}
	return nil
}

func (m *Manager) GetAuthConfig() types.AuthConfig         { return m.auth }
func (m *Manager) GetCORSConfig() types.CORSConfig         { return m.cors }
func (m *Manager) GetLogConfig() types.LogConfig           { return m.log }
func (m *Manager) GetDatabaseConfig() types.DatabaseConfig { return m.database }
func (m *Manager) GetRedisDSN() string                     { return m.redisDSN }
func (m *Manager) GetUpstreamConfig() types.UpstreamConfig { return m.upstream }
func (m *Manager) GetFeatureConfig() types.FeatureConfig   { return m.features }
func (m *Manager) GetLorebookConfig() types.LorebookConfig { return m.lorebook }

// GetEffectiveServerConfig returns the server configuration.
func (m *Manager) GetEffectiveServerConfig() types.ServerConfig { return m.server }

// DisplayServerConfig logs the effective configuration at startup.
func (m *Manager) DisplayServerConfig() {
	logrus.Info("--- Server Configuration ---")
	logrus.Infof("  Listen: %s:%d", m.server.Host, m.server.Port)
	logrus.Infof("  Upstream: %s (key: %s)", m.upstream.BaseURL, utils.MaskAPIKey(m.upstream.APIKey))
	logrus.Infof("  Show reasoning: %v", m.features.ShowReasoning)
	logrus.Infof("  Thinking mode: %v", m.features.EnableThinking)
	logrus.Infof("  Lorebook: enabled=%v dir=%s watch=%v", m.lorebook.Enabled, m.lorebook.Dir, m.lorebook.Watch)
	if m.redisDSN != "" {
		logrus.Info("  Store: redis")
	} else {
		logrus.Info("  Store: memory")
	}
	logrus.Infof("  Client auth: %d key(s) configured", len(m.auth.Keys))
	logrus.Info("----------------------------")
}

func getEnvOrDefault(key, def string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return def
}

func parseInteger(value string, def int) int {
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		logrus.Warnf("Invalid integer value %q, using default %d", value, def)
		return def
	}
	return parsed
}

func parseBoolean(value string, def bool) bool {
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logrus.Warnf("Invalid boolean value %q, using default %v", value, def)
		return def
	}
	return parsed
}

func parseKeySet(value string) map[string]struct{} {
	keys := make(map[string]struct{})
	for _, k := range utils.SplitAndTrim(value, ",") {
		keys[k] = struct{}{}
	}
	return keys
}
