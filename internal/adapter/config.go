package adapter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/G-grbz/monwui/internal/store"
)

// Cache backends
const (
	BackendBolt   = store.BackendBolt
	BackendSQLite = store.BackendSQLite
	BackendMemory = store.BackendMemory
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Indexer IndexerConfig `mapstructure:"indexer"`
	Logging LoggingConfig `mapstructure:"logging"`
	HTTP    HTTPConfig    `mapstructure:"http"`
}

// ServerConfig holds Jellyfin connection settings. Either Token+UserID or
// Username+Password must be set.
type ServerConfig struct {
	URL      string `mapstructure:"url"`
	Token    string `mapstructure:"token"`
	UserID   string `mapstructure:"user_id"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	// ServerID overrides the id reported by the server in the cache scope.
	ServerID string `mapstructure:"server_id"`

	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond int           `mapstructure:"requests_per_second"`
	RetryMax          int           `mapstructure:"retry_max"`
	RetryWait         time.Duration `mapstructure:"retry_wait"`
}

// CacheConfig selects the KV backend and the purge policy
type CacheConfig struct {
	Backend     string        `mapstructure:"backend"` // bolt, sqlite or memory
	Dir         string        `mapstructure:"dir"`
	EntityTTL   time.Duration `mapstructure:"entity_ttl"`
	MaxEntities int           `mapstructure:"max_entities"`
	MetaTTL     time.Duration `mapstructure:"meta_ttl"`
}

// IndexerConfig mirrors indexer.Options
type IndexerConfig struct {
	Mode               string        `mapstructure:"mode"`
	Aggressive         bool          `mapstructure:"aggressive"`
	Throttle           time.Duration `mapstructure:"throttle"`
	CollectionThrottle time.Duration `mapstructure:"collection_throttle"`
	MaxItemsPerSession int           `mapstructure:"max_items_per_session"`
	SessionCooldown    time.Duration `mapstructure:"session_cooldown"`
	PageSize           int           `mapstructure:"page_size"`
	NegativeBatchSize  int           `mapstructure:"negative_batch_size"`
	ErrorBackoff       time.Duration `mapstructure:"error_backoff"`
	HiddenDelay        time.Duration `mapstructure:"hidden_delay"`
	IdleDelay          time.Duration `mapstructure:"idle_delay"`
	MembersTTL         time.Duration `mapstructure:"members_ttl"`
	MembershipTTL      time.Duration `mapstructure:"membership_ttl"`
	CandidateLimit     int           `mapstructure:"candidate_limit"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File   string `mapstructure:"file"` // "-" logs to stderr
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or text
}

// HTTPConfig configures the serve command
type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

// defaults is the single table of default values. Registering every key
// also lets MONWUI_* environment variables override keys absent from the file.
func defaults() map[string]any {
	return map[string]any{
		"server.url":                 "",
		"server.token":               "",
		"server.user_id":             "",
		"server.username":            "",
		"server.password":            "",
		"server.server_id":           "",
		"server.timeout":             "30s",
		"server.requests_per_second": 10,
		"server.retry_max":           3,
		"server.retry_wait":          "1s",

		"cache.backend":      BackendBolt,
		"cache.dir":          defaultCachePath(),
		"cache.entity_ttl":   "720h",
		"cache.max_entities": 20000,
		"cache.meta_ttl":     "720h",

		"indexer.mode":                  "boxset",
		"indexer.aggressive":            false,
		"indexer.throttle":              "250ms",
		"indexer.collection_throttle":   "500ms",
		"indexer.max_items_per_session": 200,
		"indexer.session_cooldown":      "30s",
		"indexer.page_size":             50,
		"indexer.negative_batch_size":   100,
		"indexer.error_backoff":         "10s",
		"indexer.hidden_delay":          "5s",
		"indexer.idle_delay":            "50ms",
		"indexer.members_ttl":           "168h",
		"indexer.membership_ttl":        "168h",
		"indexer.candidate_limit":       5,

		"logging.file":   defaultLogPath(),
		"logging.level":  "INFO",
		"logging.format": "json",

		"http.addr": "127.0.0.1:8787",
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	cfg, err := decode(newViper())
	if err != nil {
		panic(fmt.Sprintf("invalid default config: %v", err))
	}
	return cfg
}

func newViper() *viper.Viper {
	v := viper.New()
	for key, value := range defaults() {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix("MONWUI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	return &cfg, nil
}

// defaultLogPath returns the default log file path for the current OS
func defaultLogPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "monwui", "monwui.log")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "monwui", "monwui.log")
	}
}

// defaultConfigPath returns the default config directory for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "monwui")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "monwui")
	}
}

// defaultCachePath returns the default cache directory for the current OS
func defaultCachePath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "monwui", "cache")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "monwui", "cache")
	}
}

// LoadConfig loads configuration from file and environment. An empty path
// searches config.yaml in the OS config dir and the working directory; a
// missing file there is not an error.
func LoadConfig(path string) (*Config, error) {
	v := newViper()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(defaultConfigPath())
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that have no usable fallback.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case BackendBolt, BackendSQLite, BackendMemory:
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	switch strings.ToLower(c.Indexer.Mode) {
	case "", "boxset", "movie":
	default:
		return fmt.Errorf("unknown indexer mode %q", c.Indexer.Mode)
	}
	return nil
}

// IsConfigured returns true if the server URL and some credential are set
func (c *Config) IsConfigured() bool {
	if c.Server.URL == "" {
		return false
	}
	return c.Server.Token != "" || (c.Server.Username != "" && c.Server.Password != "")
}

// GetCachePath returns the cache directory path
func (c *Config) GetCachePath() string {
	if c.Cache.Dir != "" {
		return expandHome(c.Cache.Dir)
	}
	return defaultCachePath()
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
