package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	DB        DBConfig        `mapstructure:"db"`
	Scraper   ScraperConfig   `mapstructure:"scraper"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Grouping  GroupingConfig  `mapstructure:"grouping"`
	Market    MarketConfig    `mapstructure:"market"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port               string   `mapstructure:"port"`
	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
	UploadDir          string   `mapstructure:"upload_dir"`
	MaxUploadMB        int      `mapstructure:"max_upload_mb"`
	GinMode            string   `mapstructure:"gin_mode"`
}

// DBConfig holds SQLite configuration
type DBConfig struct {
	Path   string `mapstructure:"path"`
	LogSQL bool   `mapstructure:"log_sql"`
}

// ScraperConfig holds listing source configuration
type ScraperConfig struct {
	ChromeBin         string        `mapstructure:"chrome_bin"`
	Headless          bool          `mapstructure:"headless"`
	UserAgent         string        `mapstructure:"user_agent"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout"`
	SearchTimeout     time.Duration `mapstructure:"search_timeout"`
	DefaultLimit      int           `mapstructure:"default_limit"`
	ImageLimit        int           `mapstructure:"image_limit"`
	MaxLimit          int           `mapstructure:"max_limit"`
	HTMLFallback      bool          `mapstructure:"html_fallback"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	MaxRetries        int           `mapstructure:"max_retries"`
}

// CacheConfig holds search cache configuration
type CacheConfig struct {
	TTL             time.Duration `mapstructure:"ttl"`
	Size            int           `mapstructure:"size"`
	Persist         bool          `mapstructure:"persist"`
	JanitorInterval time.Duration `mapstructure:"janitor_interval"`
}

// GroupingConfig holds the empirically chosen grouping thresholds
type GroupingConfig struct {
	PercentileLow       float64 `mapstructure:"percentile_low"`
	PercentileHigh      float64 `mapstructure:"percentile_high"`
	IQRMultiplier       float64 `mapstructure:"iqr_multiplier"`
	MinPrice            float64 `mapstructure:"min_price"`
	MaxPrice            float64 `mapstructure:"max_price"`
	MedianBand          float64 `mapstructure:"median_band"`
	WideMedianBand      float64 `mapstructure:"wide_median_band"`
	WideBandThreshold   float64 `mapstructure:"wide_band_threshold"`
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`
	ShortTitleWords     int     `mapstructure:"short_title_words"`
	MinWordLength       int     `mapstructure:"min_word_length"`
	DisplayTitleMax     int     `mapstructure:"display_title_max"`
}

// MarketConfig holds market metric configuration
type MarketConfig struct {
	TrendWindow int     `mapstructure:"trend_window"`
	GradingCost float64 `mapstructure:"grading_cost"`
}

// RateLimitConfig holds inbound per-client rate limiting
type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// Load reads configuration from an optional file, the environment and .env.
// An empty path means environment and defaults only.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Config: no .env file found, using process environment")
	}

	v := viper.New()

	setDefaults(v)

	// scraper.navigation_timeout <=> SCRAPER_NAVIGATION_TIMEOUT
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindLegacyEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	for i, origin := range cfg.Server.CORSAllowedOrigins {
		cfg.Server.CORSAllowedOrigins[i] = strings.TrimSpace(origin)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// bindLegacyEnv maps the flat environment names used by deployments
func bindLegacyEnv(v *viper.Viper) {
	bindings := map[string]string{
		"server.port":                 "PORT",
		"server.cors_allowed_origins": "CORS_ALLOWED_ORIGINS",
		"server.upload_dir":           "UPLOAD_DIR",
		"server.gin_mode":             "GIN_MODE",
		"db.path":                     "DB_PATH",
		"db.log_sql":                  "DB_LOG_SQL",
	}
	for key, env := range bindings {
		_ = v.BindEnv(key, env)
	}
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.cors_allowed_origins", []string{"http://localhost:5173", "http://localhost:3000"})
	v.SetDefault("server.upload_dir", "./data/uploads")
	v.SetDefault("server.max_upload_mb", 10)
	v.SetDefault("server.gin_mode", "release")

	// Database defaults
	v.SetDefault("db.path", "./card_comps.db")
	v.SetDefault("db.log_sql", false)

	// Scraper defaults
	v.SetDefault("scraper.chrome_bin", "")
	v.SetDefault("scraper.headless", true)
	v.SetDefault("scraper.user_agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	v.SetDefault("scraper.navigation_timeout", "45s")
	v.SetDefault("scraper.search_timeout", "90s")
	v.SetDefault("scraper.default_limit", 120)
	v.SetDefault("scraper.image_limit", 60)
	v.SetDefault("scraper.max_limit", 240)
	v.SetDefault("scraper.html_fallback", true)
	v.SetDefault("scraper.requests_per_second", 0.5)
	v.SetDefault("scraper.max_retries", 3)

	// Cache defaults
	v.SetDefault("cache.ttl", "10m")
	v.SetDefault("cache.size", 256)
	v.SetDefault("cache.persist", true)
	v.SetDefault("cache.janitor_interval", "15m")

	// Grouping defaults
	v.SetDefault("grouping.percentile_low", 0.10)
	v.SetDefault("grouping.percentile_high", 0.90)
	v.SetDefault("grouping.iqr_multiplier", 1.5)
	v.SetDefault("grouping.min_price", 5.0)
	v.SetDefault("grouping.max_price", 2000.0)
	v.SetDefault("grouping.median_band", 0.30)
	v.SetDefault("grouping.wide_median_band", 0.40)
	v.SetDefault("grouping.wide_band_threshold", 100.0)
	v.SetDefault("grouping.similarity_threshold", 0.70)
	v.SetDefault("grouping.short_title_words", 4)
	v.SetDefault("grouping.min_word_length", 3)
	v.SetDefault("grouping.display_title_max", 60)

	// Market defaults
	v.SetDefault("market.trend_window", 10)
	v.SetDefault("market.grading_cost", 30.0)

	// Inbound rate limit defaults
	v.SetDefault("rate_limit.rps", 2.0)
	v.SetDefault("rate_limit.burst", 10)
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port is required"))
	}
	if c.DB.Path == "" {
		errs = append(errs, errors.New("db.path is required"))
	}
	if c.Server.MaxUploadMB <= 0 {
		errs = append(errs, errors.New("server.max_upload_mb must be positive"))
	}

	if c.Scraper.NavigationTimeout < time.Second {
		errs = append(errs, errors.New("scraper.navigation_timeout must be at least 1s"))
	}
	if c.Scraper.SearchTimeout < c.Scraper.NavigationTimeout {
		errs = append(errs, errors.New("scraper.search_timeout must not be shorter than scraper.navigation_timeout"))
	}
	if c.Scraper.DefaultLimit < 1 || c.Scraper.DefaultLimit > c.Scraper.MaxLimit {
		errs = append(errs, fmt.Errorf("scraper.default_limit must be between 1 and %d", c.Scraper.MaxLimit))
	}
	if c.Scraper.ImageLimit < 1 || c.Scraper.ImageLimit > c.Scraper.MaxLimit {
		errs = append(errs, fmt.Errorf("scraper.image_limit must be between 1 and %d", c.Scraper.MaxLimit))
	}
	if c.Scraper.RequestsPerSecond <= 0 {
		errs = append(errs, errors.New("scraper.requests_per_second must be positive"))
	}
	if c.Scraper.MaxRetries < 1 {
		errs = append(errs, errors.New("scraper.max_retries must be at least 1"))
	}

	if c.Cache.TTL <= 0 {
		errs = append(errs, errors.New("cache.ttl must be positive"))
	}
	if c.Cache.Size < 1 {
		errs = append(errs, errors.New("cache.size must be at least 1"))
	}
	if c.Cache.JanitorInterval < time.Minute {
		errs = append(errs, errors.New("cache.janitor_interval must be at least 1 minute"))
	}

	g := c.Grouping
	if g.PercentileLow < 0 || g.PercentileHigh > 1 || g.PercentileLow >= g.PercentileHigh {
		errs = append(errs, errors.New("grouping percentiles must satisfy 0 <= low < high <= 1"))
	}
	if g.MinPrice < 0 || g.MaxPrice <= g.MinPrice {
		errs = append(errs, errors.New("grouping.max_price must exceed grouping.min_price"))
	}
	if g.MedianBand <= 0 || g.WideMedianBand < g.MedianBand {
		errs = append(errs, errors.New("grouping.wide_median_band must be >= grouping.median_band > 0"))
	}
	if g.SimilarityThreshold <= 0 || g.SimilarityThreshold > 1 {
		errs = append(errs, errors.New("grouping.similarity_threshold must be in (0, 1]"))
	}

	if c.Market.TrendWindow < 2 {
		errs = append(errs, errors.New("market.trend_window must be at least 2"))
	}
	if c.Market.GradingCost < 0 {
		errs = append(errs, errors.New("market.grading_cost must not be negative"))
	}

	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst < 1 {
		errs = append(errs, errors.New("rate_limit.rps and rate_limit.burst must be positive"))
	}

	return errors.Join(errs...)
}
