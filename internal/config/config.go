package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	API           APIConfig           `mapstructure:"api"`
	Prompt        PromptConfig        `mapstructure:"prompt"`
	Limits        LimitsConfig        `mapstructure:"limits"`
	Behavior      BehaviorConfig      `mapstructure:"behavior"`
	Hotkey        HotkeyConfig        `mapstructure:"hotkey"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Queue         QueueConfig         `mapstructure:"queue"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	I18n          I18nConfig          `mapstructure:"i18n"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Monitoring    MonitoringConfig    `mapstructure:"monitoring"`
}

type APIConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	MaxRetries  int           `mapstructure:"max_retries"`
	Timeout     time.Duration `mapstructure:"timeout"`
	BackoffBase time.Duration `mapstructure:"backoff_base"`
	BackoffMax  time.Duration `mapstructure:"backoff_max"`
	Jitter      time.Duration `mapstructure:"jitter"`
}

type PromptConfig struct {
	ActivePreset string                  `mapstructure:"active_preset"`
	Presets      map[string]PromptPreset `mapstructure:"presets"`
}

type PromptPreset struct {
	Name   string `mapstructure:"name"`
	System string `mapstructure:"system"`
}

type LimitsConfig struct {
	MaxTextLength     int           `mapstructure:"max_text_length"`
	MaxTokensEstimate int           `mapstructure:"max_tokens_estimate"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	RequestsPerDay    int           `mapstructure:"requests_per_day"`
	ClipboardTimeout  time.Duration `mapstructure:"clipboard_timeout"`
	PollInterval      time.Duration `mapstructure:"poll_interval"`
}

type BehaviorConfig struct {
	PreserveClipboard bool          `mapstructure:"preserve_clipboard"`
	AutoPaste         bool          `mapstructure:"auto_paste"`
	PasteDelay        time.Duration `mapstructure:"paste_delay"`
	ClearBeforeCopy   bool          `mapstructure:"clear_before_copy"`
	AutoSplitLongText bool          `mapstructure:"auto_split_long_text"`
	ChunkSize         int           `mapstructure:"chunk_size"`
	ChunkConcurrency  int           `mapstructure:"chunk_concurrency"`
	StripMarkdown     bool          `mapstructure:"strip_markdown"`
}

type HotkeyConfig struct {
	Translate    string   `mapstructure:"translate"`
	Cancel       string   `mapstructure:"cancel"`
	Alternatives []string `mapstructure:"alternatives"`
	// Platform overrides runtime detection of the reserved shortcut table.
	Platform string `mapstructure:"platform"`
}

type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	TTL             time.Duration `mapstructure:"ttl"`
	MaxSize         int           `mapstructure:"max_size"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

type QueueConfig struct {
	Capacity           int `mapstructure:"capacity"`
	Workers            int `mapstructure:"workers"`
	ShortTextThreshold int `mapstructure:"short_text_threshold"`
}

type StorageConfig struct {
	Type      string        `mapstructure:"type"`
	StoreText bool          `mapstructure:"store_text"`
	Retention time.Duration `mapstructure:"retention"`
	Redis     RedisConfig   `mapstructure:"redis"`
	Memory    MemoryConfig  `mapstructure:"memory"`
	SQLite    SQLiteConfig  `mapstructure:"sqlite"`
}

type RedisConfig struct {
	Addr       string `mapstructure:"addr"`
	Password   string `mapstructure:"password"`
	DB         int    `mapstructure:"db"`
	MaxEntries int    `mapstructure:"max_entries"`
}

type MemoryConfig struct {
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type NotificationsConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	AppName     string `mapstructure:"app_name"`
	ShowSuccess bool   `mapstructure:"show_success"`
}

type I18nConfig struct {
	DefaultLanguage string   `mapstructure:"default_language"`
	Languages       []string `mapstructure:"languages"`
}

type LoggingConfig struct {
	Level  string     `mapstructure:"level"`
	Format string     `mapstructure:"format"`
	Output string     `mapstructure:"output"`
	File   FileConfig `mapstructure:"file"`
}

type FileConfig struct {
	Path       string `mapstructure:"path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

type MonitoringConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

// ActivePrompt returns the id and system prompt of the active preset.
func (c *Config) ActivePrompt() (string, PromptPreset) {
	id := strings.ToLower(c.Prompt.ActivePreset)
	return id, c.Prompt.Presets[id]
}

// Loader reads configuration from an optional file, the environment and
// built-in defaults. It keeps its viper instance so the file can be watched.
type Loader struct {
	v    *viper.Viper
	path string
}

// NewLoader creates a loader for configPath. An empty path means defaults
// and environment only.
func NewLoader(configPath string) *Loader {
	v := viper.New()
	setDefaults(v)
	return &Loader{v: v, path: configPath}
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	return NewLoader(configPath).Load()
}

// Load reads and validates the configuration.
func (l *Loader) Load() (*Config, error) {
	if l.path != "" {
		if _, err := os.Stat(l.path); err == nil {
			l.v.SetConfigFile(l.path)
			if err := l.v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
	}

	l.v.BindEnv("api.api_key", "TRANSLATOR_API_KEY", "OPENAI_API_KEY")
	l.v.BindEnv("api.base_url", "TRANSLATOR_API_BASE_URL")
	l.v.BindEnv("api.model", "TRANSLATOR_MODEL")
	l.v.BindEnv("storage.redis.password", "REDIS_PASSWORD")
	l.v.BindEnv("storage.redis.db", "REDIS_DB")

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Handle Redis address special case
	if redisHost := os.Getenv("REDIS_HOST"); redisHost != "" {
		redisPort := os.Getenv("REDIS_PORT")
		if redisPort == "" {
			redisPort = "6379"
		}
		cfg.Storage.Redis.Addr = fmt.Sprintf("%s:%s", redisHost, redisPort)
	}

	normalizePresets(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Path returns the config file in use, or "" when running on defaults.
func (l *Loader) Path() string {
	return l.v.ConfigFileUsed()
}

// Watch reloads the file on change and hands every valid configuration to
// onChange. Invalid edits are logged and ignored.
func (l *Loader) Watch(logger *logrus.Logger, onChange func(*Config)) {
	if l.v.ConfigFileUsed() == "" {
		return
	}

	l.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := l.Load()
		if err != nil {
			logger.WithError(err).WithField("file", e.Name).Warn("Ignoring invalid configuration change")
			return
		}
		logger.WithFields(logrus.Fields{
			"file": e.Name,
			"op":   e.Op.String(),
		}).Info("Configuration reloaded")
		onChange(cfg)
	})
	l.v.WatchConfig()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "https://api.openai.com/v1")
	v.SetDefault("api.model", "gpt-4.1-nano")
	v.SetDefault("api.temperature", 0.3)
	v.SetDefault("api.max_retries", 3)
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("api.backoff_base", 100*time.Millisecond)
	v.SetDefault("api.backoff_max", 5*time.Second)
	v.SetDefault("api.jitter", 100*time.Millisecond)

	v.SetDefault("prompt.active_preset", "general")
	for id, preset := range DefaultPresets() {
		v.SetDefault("prompt.presets."+id+".name", preset.Name)
		v.SetDefault("prompt.presets."+id+".system", preset.System)
	}

	v.SetDefault("limits.max_text_length", 5000)
	v.SetDefault("limits.max_tokens_estimate", 1250)
	v.SetDefault("limits.requests_per_minute", 30)
	v.SetDefault("limits.requests_per_day", 500)
	v.SetDefault("limits.clipboard_timeout", 500*time.Millisecond)
	v.SetDefault("limits.poll_interval", 10*time.Millisecond)

	v.SetDefault("behavior.preserve_clipboard", true)
	v.SetDefault("behavior.auto_paste", true)
	v.SetDefault("behavior.paste_delay", 150*time.Millisecond)
	v.SetDefault("behavior.clear_before_copy", false)
	v.SetDefault("behavior.auto_split_long_text", false)
	v.SetDefault("behavior.chunk_size", 2000)
	v.SetDefault("behavior.chunk_concurrency", 1)
	v.SetDefault("behavior.strip_markdown", false)

	v.SetDefault("hotkey.translate", "Ctrl+Shift+T")
	v.SetDefault("hotkey.cancel", "Ctrl+Shift+Q")
	v.SetDefault("hotkey.alternatives", []string{
		"Ctrl+Alt+T", "Alt+Shift+T", "Ctrl+Shift+L", "Ctrl+Alt+L", "Alt+Shift+L",
	})
	v.SetDefault("hotkey.platform", "")

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl", 5*time.Minute)
	v.SetDefault("cache.max_size", 256)
	v.SetDefault("cache.cleanup_interval", time.Minute)

	v.SetDefault("queue.capacity", 32)
	v.SetDefault("queue.workers", 2)
	v.SetDefault("queue.short_text_threshold", 200)

	v.SetDefault("storage.type", "sqlite")
	v.SetDefault("storage.store_text", false)
	v.SetDefault("storage.retention", 30*24*time.Hour)
	v.SetDefault("storage.redis.addr", "localhost:6379")
	v.SetDefault("storage.redis.max_entries", 1000)
	v.SetDefault("storage.memory.cleanup_interval", 10*time.Minute)
	v.SetDefault("storage.sqlite.path", "data/history.db")

	v.SetDefault("notifications.enabled", true)
	v.SetDefault("notifications.app_name", "LLM Translator")
	v.SetDefault("notifications.show_success", true)

	v.SetDefault("i18n.default_language", "en")
	v.SetDefault("i18n.languages", []string{"en", "ru"})

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.file.path", "logs/translator.log")
	v.SetDefault("logging.file.max_size", 10)
	v.SetDefault("logging.file.max_backups", 3)
	v.SetDefault("logging.file.max_age", 28)

	v.SetDefault("monitoring.metrics.enabled", false)
	v.SetDefault("monitoring.metrics.port", 9464)
	v.SetDefault("monitoring.metrics.path", "/metrics")
}

func normalizePresets(cfg *Config) {
	presets := make(map[string]PromptPreset, len(cfg.Prompt.Presets))
	for id, preset := range cfg.Prompt.Presets {
		presets[strings.ToLower(id)] = preset
	}
	cfg.Prompt.Presets = presets
	cfg.Prompt.ActivePreset = strings.ToLower(strings.TrimSpace(cfg.Prompt.ActivePreset))
}

func validateConfig(cfg *Config) error {
	if cfg.API.BaseURL == "" {
		return fmt.Errorf("api base url is required")
	}
	if cfg.API.Temperature < 0 || cfg.API.Temperature > 2 {
		return fmt.Errorf("api temperature must be between 0 and 2, got %v", cfg.API.Temperature)
	}
	if cfg.API.MaxRetries < 1 || cfg.API.MaxRetries > 10 {
		return fmt.Errorf("api max_retries must be between 1 and 10, got %d", cfg.API.MaxRetries)
	}
	if cfg.API.Timeout <= 0 {
		return fmt.Errorf("api timeout must be positive")
	}
	if cfg.Limits.MaxTextLength < 1 || cfg.Limits.MaxTokensEstimate < 1 {
		return fmt.Errorf("text limits must be at least 1")
	}
	if cfg.Limits.RequestsPerMinute < 1 || cfg.Limits.RequestsPerDay < 1 {
		return fmt.Errorf("request limits must be at least 1")
	}
	if cfg.Limits.ClipboardTimeout <= 0 || cfg.Limits.PollInterval <= 0 {
		return fmt.Errorf("clipboard timeout and poll interval must be positive")
	}
	if cfg.Behavior.ChunkSize < 1 || cfg.Behavior.ChunkSize > cfg.Limits.MaxTextLength {
		return fmt.Errorf("chunk_size must be between 1 and max_text_length (%d)", cfg.Limits.MaxTextLength)
	}
	if cfg.Behavior.ChunkConcurrency < 1 {
		return fmt.Errorf("chunk_concurrency must be at least 1")
	}
	if cfg.Queue.Capacity < 1 || cfg.Queue.Workers < 1 {
		return fmt.Errorf("queue capacity and workers must be at least 1")
	}
	if _, ok := cfg.Prompt.Presets[cfg.Prompt.ActivePreset]; !ok {
		return fmt.Errorf("unknown active prompt preset %q", cfg.Prompt.ActivePreset)
	}
	switch cfg.Storage.Type {
	case "memory", "redis", "sqlite":
	default:
		return fmt.Errorf("unsupported storage type: %s", cfg.Storage.Type)
	}
	return nil
}
