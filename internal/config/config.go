package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"navi/internal/links"
)

// Config holds all configuration for the application.
// Values are read by viper from a config file or environment variables.
type Config struct {
	SlackBotToken string `mapstructure:"SLACK_BOT_TOKEN"`
	SlackAppToken string `mapstructure:"SLACK_APP_TOKEN"`
	SlackAPIURL   string `mapstructure:"SLACK_API_URL"`
	BotName       string `mapstructure:"BOT_NAME"`
	LogLevel      string `mapstructure:"LOG_LEVEL"`
	TimeZone      string `mapstructure:"TIME_ZONE"`

	// Storage
	StorageBackend string `mapstructure:"STORAGE_BACKEND"`
	BadgerDBPath   string `mapstructure:"BADGERDB_PATH"`
	FilesDir       string `mapstructure:"FILES_DIR"`
	MinioEndpoint  string `mapstructure:"MINIO_ENDPOINT"`
	MinioAccessKey string `mapstructure:"MINIO_ACCESS_KEY"`
	MinioSecretKey string `mapstructure:"MINIO_SECRET_KEY"`
	MinioBucket    string `mapstructure:"MINIO_BUCKET"`
	MinioUseSSL    bool   `mapstructure:"MINIO_USE_SSL"`

	// Channel locking
	LockBackend string        `mapstructure:"LOCK_BACKEND"`
	RedisURL    string        `mapstructure:"REDIS_URL"`
	LockTTL     time.Duration `mapstructure:"LOCK_TTL"`

	// Publishing of rendered documents
	PublishBackend   string `mapstructure:"PUBLISH_BACKEND"`
	PublishRepoPath  string `mapstructure:"PUBLISH_REPO_PATH"`
	PublishDir       string `mapstructure:"PUBLISH_DIR"`
	PublishBrowseURL string `mapstructure:"PUBLISH_BROWSE_URL"`
	PublishPush      bool   `mapstructure:"PUBLISH_PUSH"`
	PublishAuthor    string `mapstructure:"PUBLISH_AUTHOR"`
	PublishEmail     string `mapstructure:"PUBLISH_EMAIL"`

	// Title resolution
	TitleBackend   string        `mapstructure:"TITLE_BACKEND"`
	TitleTimeout   time.Duration `mapstructure:"TITLE_TIMEOUT"`
	TitleDenylist  []string      `mapstructure:"TITLE_DENYLIST"`
	TitleCacheSize int64         `mapstructure:"TITLE_CACHE_SIZE"`
	TitleWorkers   int           `mapstructure:"TITLE_WORKERS"`

	// History synchronization
	HistoryPageSize     int           `mapstructure:"HISTORY_PAGE_SIZE"`
	HistoryTimeout      time.Duration `mapstructure:"HISTORY_TIMEOUT"`
	LegacyHistory       bool          `mapstructure:"LEGACY_HISTORY"`
	MaxRateLimitRetries int           `mapstructure:"MAX_RATE_LIMIT_RETRIES"`
	SyncConcurrency     int           `mapstructure:"SYNC_CONCURRENCY"`
	SyncMinMembers      int           `mapstructure:"SYNC_MIN_MEMBERS"`
	UserDirectoryTTL    time.Duration `mapstructure:"USER_DIRECTORY_TTL"`

	// Extraction and classification
	SelfFragments []string     `mapstructure:"SELF_FRAGMENTS"`
	AllTextLinks  bool         `mapstructure:"ALL_TEXT_LINKS"`
	Sections      []links.Rule `mapstructure:"SECTIONS"`
}

var defaults = map[string]any{
	"SLACK_BOT_TOKEN":        "",
	"SLACK_APP_TOKEN":        "",
	"SLACK_API_URL":          "",
	"BOT_NAME":               "navi",
	"LOG_LEVEL":              "info",
	"TIME_ZONE":              "UTC",
	"STORAGE_BACKEND":        "badger",
	"BADGERDB_PATH":          "./badger_data",
	"FILES_DIR":              "./files",
	"MINIO_ENDPOINT":         "",
	"MINIO_ACCESS_KEY":       "",
	"MINIO_SECRET_KEY":       "",
	"MINIO_BUCKET":           "navi",
	"MINIO_USE_SSL":          true,
	"LOCK_BACKEND":           "local",
	"REDIS_URL":              "redis://localhost:6379/0",
	"LOCK_TTL":               "10m",
	"PUBLISH_BACKEND":        "none",
	"PUBLISH_REPO_PATH":      "",
	"PUBLISH_DIR":            "files",
	"PUBLISH_BROWSE_URL":     "",
	"PUBLISH_PUSH":           false,
	"PUBLISH_AUTHOR":         "navi",
	"PUBLISH_EMAIL":          "navi@localhost",
	"TITLE_BACKEND":          "http",
	"TITLE_TIMEOUT":          "10s",
	"TITLE_DENYLIST":         []string{"not found", "forbidden", "denied"},
	"TITLE_CACHE_SIZE":       10000,
	"TITLE_WORKERS":          8,
	"HISTORY_PAGE_SIZE":      1000,
	"HISTORY_TIMEOUT":        "30s",
	"LEGACY_HISTORY":         false,
	"MAX_RATE_LIMIT_RETRIES": 10,
	"SYNC_CONCURRENCY":       4,
	"SYNC_MIN_MEMBERS":       6,
	"USER_DIRECTORY_TTL":     "1h",
	"SELF_FRAGMENTS":         []string{},
	"ALL_TEXT_LINKS":         false,
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// Keys must be known to viper for AutomaticEnv to pick them up during Unmarshal.
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	err = v.ReadInConfig()
	if err != nil {
		// A missing file is fine, everything can come from the environment.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	err = v.Unmarshal(&config)
	if err != nil {
		return Config{}, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := config.validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func (c *Config) validate() error {
	if c.SlackBotToken == "" {
		return fmt.Errorf("SLACK_BOT_TOKEN is not set")
	}
	switch c.StorageBackend {
	case "badger", "file":
	case "minio":
		if c.MinioEndpoint == "" {
			return fmt.Errorf("MINIO_ENDPOINT is required for the minio storage backend")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}
	switch c.LockBackend {
	case "local", "redis":
	default:
		return fmt.Errorf("unknown LOCK_BACKEND %q", c.LockBackend)
	}
	switch c.PublishBackend {
	case "none":
	case "git":
		if c.PublishRepoPath == "" {
			return fmt.Errorf("PUBLISH_REPO_PATH is required for the git publish backend")
		}
	default:
		return fmt.Errorf("unknown PUBLISH_BACKEND %q", c.PublishBackend)
	}
	switch c.TitleBackend {
	case "http", "browser", "none":
	default:
		return fmt.Errorf("unknown TITLE_BACKEND %q", c.TitleBackend)
	}
	if _, err := time.LoadLocation(c.TimeZone); err != nil {
		return fmt.Errorf("invalid TIME_ZONE %q: %w", c.TimeZone, err)
	}
	if len(c.Sections) == 0 {
		c.Sections = links.DefaultRules
	}
	if c.HistoryPageSize <= 0 {
		c.HistoryPageSize = 1000
	}
	if c.SyncConcurrency <= 0 {
		c.SyncConcurrency = 1
	}
	if c.TitleWorkers <= 0 {
		c.TitleWorkers = 1
	}
	return nil
}

// Location returns the configured time zone for rendering timestamps.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}
