package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds settings for the API server and the roster sync job
type Config struct {
	Port      string          `mapstructure:"port"`
	Season    int             `mapstructure:"season"` // 0 derives the season from the requested date
	Feed      FeedConfig      `mapstructure:"feed"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Report    ReportConfig    `mapstructure:"report"`
	DB        DBConfig        `mapstructure:"db"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Log       LogConfig       `mapstructure:"log"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	CORS      CORSConfig      `mapstructure:"cors"`
}

type FeedConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	LiveBaseURL  string        `mapstructure:"live_base_url"`
	UserAgent    string        `mapstructure:"user_agent"`
	Timeout      time.Duration `mapstructure:"timeout"`
	Retries      int           `mapstructure:"retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
}

type CacheConfig struct {
	Dir      string `mapstructure:"dir"`
	Location string `mapstructure:"location"` // IANA zone used to decide "today"
}

type ReportConfig struct {
	Workers      int           `mapstructure:"workers"`
	StreakWindow int           `mapstructure:"streak_window"`
	IncludeH2H   bool          `mapstructure:"include_h2h"`
	StatSource   string        `mapstructure:"stat_source"` // feed or postgres
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
}

type DBConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// URL renders a postgres connection string
func (d DBConfig) URL() string {
	return fmt.Sprintf("postgresql://%s:%s@%s:%s/%s", d.User, d.Password, d.Host, d.Port, d.Name)
}

type RedisConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	URL     string        `mapstructure:"url"`
	TTL     time.Duration `mapstructure:"ttl"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

type RateLimitConfig struct {
	PerMinute int `mapstructure:"per_minute"`
	Burst     int `mapstructure:"burst"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("season", 0)

	v.SetDefault("feed.base_url", "https://statsapi.mlb.com/api/v1")
	v.SetDefault("feed.live_base_url", "https://statsapi.mlb.com/api/v1.1")
	v.SetDefault("feed.user_agent", "matchup-engine/1.0")
	v.SetDefault("feed.timeout", 10*time.Second)
	v.SetDefault("feed.retries", 3)
	v.SetDefault("feed.retry_backoff", 500*time.Millisecond)

	v.SetDefault("cache.dir", "data/matchup_cache")
	v.SetDefault("cache.location", "America/New_York")

	v.SetDefault("report.workers", 8)
	v.SetDefault("report.streak_window", 10)
	v.SetDefault("report.include_h2h", false)
	v.SetDefault("report.stat_source", "feed")
	v.SetDefault("report.fetch_timeout", 15*time.Second)

	v.SetDefault("db.enabled", false)
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", "5432")
	v.SetDefault("db.user", "baseball_user")
	v.SetDefault("db.password", "baseball_pass")
	v.SetDefault("db.name", "baseball_matchups")
	v.SetDefault("db.max_conns", 25)
	v.SetDefault("db.min_conns", 5)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.ttl", 24*time.Hour)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")

	v.SetDefault("rate_limit.per_minute", 120)
	v.SetDefault("rate_limit.burst", 20)

	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3000", "http://localhost:8080"})
}

// Load reads an optional .env, an optional config.yaml from the given
// directories (default ./config), then environment overrides such as
// FEED_TIMEOUT or DB_HOST.
func Load(searchPaths ...string) (*Config, error) {
	_ = godotenv.Load() // .env is optional

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(searchPaths) == 0 {
		searchPaths = []string{"./config", "."}
	}
	for _, p := range searchPaths {
		v.AddConfigPath(p)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings that would leave the engine unusable
func (c *Config) Validate() error {
	if c.Report.Workers < 1 {
		return fmt.Errorf("report.workers must be >= 1, got %d", c.Report.Workers)
	}
	if c.Report.StreakWindow < 1 {
		return fmt.Errorf("report.streak_window must be >= 1, got %d", c.Report.StreakWindow)
	}
	switch c.Report.StatSource {
	case "feed":
	case "postgres":
		if !c.DB.Enabled {
			return fmt.Errorf("report.stat_source=postgres requires db.enabled")
		}
	default:
		return fmt.Errorf("unknown report.stat_source %q", c.Report.StatSource)
	}
	if c.Feed.Timeout <= 0 {
		return fmt.Errorf("feed.timeout must be positive")
	}
	if _, err := time.LoadLocation(c.Cache.Location); err != nil {
		return fmt.Errorf("invalid cache.location: %w", err)
	}
	return nil
}

// Location returns the zone used to decide the current calendar date
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Cache.Location)
	if err != nil {
		return time.Local
	}
	return loc
}
