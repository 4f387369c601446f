package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "HARVESTER"

// Config is the full runtime configuration.
type Config struct {
	Log        LogConfig        `mapstructure:"log"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Browser    BrowserConfig    `mapstructure:"browser"`
	Sources    SourcesConfig    `mapstructure:"sources"`
	Rewrite    RewriteConfig    `mapstructure:"rewrite"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Store      StoreConfig      `mapstructure:"store"`
	WordPress  WordPressConfig  `mapstructure:"wordpress"`
	Publishers PublishersConfig `mapstructure:"publishers"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// HTTPConfig covers the API listener and the outbound scraping client.
type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	Timeout         time.Duration `mapstructure:"timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type BrowserConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	ExecPath    string        `mapstructure:"exec_path"`
	Headless    bool          `mapstructure:"headless"`
	WaitTimeout time.Duration `mapstructure:"wait_timeout"`
}

// SourcesConfig points at a providers file replacing the embedded catalog.
type SourcesConfig struct {
	File string `mapstructure:"file"`
}

type RewriteConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Provider       string        `mapstructure:"provider"`
	Endpoint       string        `mapstructure:"endpoint"`
	Model          string        `mapstructure:"model"`
	APIKey         string        `mapstructure:"api_key"`
	Timeout        time.Duration `mapstructure:"timeout"`
	Temperature    float64       `mapstructure:"temperature"`
	FallbackAuthor string        `mapstructure:"fallback_author"`
}

type PipelineConfig struct {
	MinTitleLength       int `mapstructure:"min_title_length"`
	MinDescriptionLength int `mapstructure:"min_description_length"`
}

type SchedulerConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	Cron     string   `mapstructure:"cron"`
	Timezone string   `mapstructure:"timezone"`
	Sources  []string `mapstructure:"sources"`
}

type StoreConfig struct {
	Driver      string        `mapstructure:"driver"`
	MongoURI    string        `mapstructure:"mongo_uri"`
	Database    string        `mapstructure:"database"`
	Collection  string        `mapstructure:"collection"`
	PostgresDSN string        `mapstructure:"postgres_dsn"`
	BoltPath    string        `mapstructure:"bolt_path"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type WordPressConfig struct {
	BaseURL     string         `mapstructure:"base_url"`
	Username    string         `mapstructure:"username"`
	AppPassword string         `mapstructure:"app_password"`
	Categories  map[string]int `mapstructure:"categories"`
}

// Enabled reports whether enough is configured to publish.
func (w WordPressConfig) Enabled() bool {
	return w.BaseURL != "" && w.Username != "" && w.AppPassword != ""
}

// PublishersConfig points at the YAML/JSON publishers file. Empty disables events.
type PublishersConfig struct {
	File string `mapstructure:"file"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.timeout", 30*time.Second)
	v.SetDefault("http.shutdown_timeout", 15*time.Second)

	v.SetDefault("browser.enabled", true)
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.wait_timeout", 15*time.Second)

	v.SetDefault("sources.file", "")

	v.SetDefault("rewrite.enabled", true)
	v.SetDefault("rewrite.provider", "gemini")
	v.SetDefault("rewrite.endpoint", "")
	v.SetDefault("rewrite.model", "")
	v.SetDefault("rewrite.api_key", "")
	v.SetDefault("rewrite.timeout", 60*time.Second)
	v.SetDefault("rewrite.temperature", 0.7)
	v.SetDefault("rewrite.fallback_author", "Harshit Sharma")

	v.SetDefault("pipeline.min_title_length", 50)
	v.SetDefault("pipeline.min_description_length", 100)

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.cron", "*/45 * * * *")
	v.SetDefault("scheduler.timezone", "Asia/Kolkata")
	v.SetDefault("scheduler.sources", []string{})

	v.SetDefault("store.driver", "mongo")
	v.SetDefault("store.mongo_uri", "")
	v.SetDefault("store.database", "News-Latest")
	v.SetDefault("store.collection", "news")
	v.SetDefault("store.postgres_dsn", "")
	v.SetDefault("store.bolt_path", "data/news.db")
	v.SetDefault("store.timeout", 10*time.Second)

	v.SetDefault("wordpress.base_url", "")
	v.SetDefault("wordpress.username", "")
	v.SetDefault("wordpress.app_password", "")
	v.SetDefault("wordpress.categories", map[string]int{"market": 615})

	v.SetDefault("publishers.file", "")
}

// Load reads .env (when present), the optional file named by
// HARVESTER_CONFIG and HARVESTER_* environment variables, in increasing
// precedence over the defaults.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return LoadFile(os.Getenv(envPrefix + "_CONFIG"))
}

// LoadFile is Load without the .env step. An empty path skips the file.
func LoadFile(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path = strings.TrimSpace(path); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.Scheduler.Sources = splitList(cfg.Scheduler.Sources)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail late at startup.
func (c Config) Validate() error {
	var errs []error
	if c.Pipeline.MinTitleLength < 0 || c.Pipeline.MinDescriptionLength < 0 {
		errs = append(errs, errors.New("pipeline minimum lengths must not be negative"))
	}
	switch strings.ToLower(c.Store.Driver) {
	case "mongo", "postgres", "bolt":
	default:
		errs = append(errs, fmt.Errorf("store.driver %q is not supported", c.Store.Driver))
	}
	if c.Scheduler.Enabled && strings.TrimSpace(c.Scheduler.Cron) == "" {
		errs = append(errs, errors.New("scheduler.cron is required when the scheduler is enabled"))
	}
	if c.HTTP.Timeout <= 0 {
		errs = append(errs, errors.New("http.timeout must be positive"))
	}
	return errors.Join(errs...)
}

// splitList accepts both list values and a single comma separated env value.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, strings.ToLower(part))
			}
		}
	}
	return out
}
