package types

import "time"

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetAuthConfig() AuthConfig
	GetCORSConfig() CORSConfig
	GetLogConfig() LogConfig
	GetDatabaseConfig() DatabaseConfig
	GetRedisDSN() string
	GetUpstreamConfig() UpstreamConfig
	GetFeatureConfig() FeatureConfig
	GetLorebookConfig() LorebookConfig
	GetEffectiveServerConfig() ServerConfig
	Validate() error
	DisplayServerConfig()
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Port                    int    `json:"port"`
	Host                    string `json:"host"`
	ReadTimeout             int    `json:"read_timeout"`
	WriteTimeout            int    `json:"write_timeout"`
	IdleTimeout             int    `json:"idle_timeout"`
	GracefulShutdownTimeout int    `json:"graceful_shutdown_timeout"`
}

// AuthConfig represents client authentication configuration.
// Keys listed here admit a caller; they are never forwarded upstream.
type AuthConfig struct {
	Keys map[string]struct{} `json:"-"`
}

// CORSConfig represents CORS configuration
type CORSConfig struct {
	Enabled          bool     `json:"enabled"`
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers"`
	AllowCredentials bool     `json:"allow_credentials"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level      string `json:"level"`
	Format     string `json:"format"`
	EnableFile bool   `json:"enable_file"`
	FilePath   string `json:"file_path"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	DSN string `json:"dsn"`
}

// UpstreamConfig represents the backend chat-completion service configuration
type UpstreamConfig struct {
	BaseURL               string        `json:"base_url"`
	APIKey                string        `json:"-"`
	ConnectTimeout        time.Duration `json:"connect_timeout"`
	RequestTimeout        time.Duration `json:"request_timeout"`
	ResponseHeaderTimeout time.Duration `json:"response_header_timeout"`
	IdleConnTimeout       time.Duration `json:"idle_conn_timeout"`
	MaxIdleConns          int           `json:"max_idle_conns"`
	MaxIdleConnsPerHost   int           `json:"max_idle_conns_per_host"`
}

// FeatureConfig holds the process-wide feature flags.
// Loaded once at startup and immutable thereafter; components receive it
// at construction instead of reading globals.
type FeatureConfig struct {
	ShowReasoning  bool   `json:"show_reasoning"`
	EnableThinking bool   `json:"enable_thinking"`
	DefaultModel   string `json:"default_model"`
}

// LorebookConfig represents lorebook loading configuration
type LorebookConfig struct {
	Enabled bool   `json:"enabled"`
	Dir     string `json:"dir"`
	Watch   bool   `json:"watch"`
}
