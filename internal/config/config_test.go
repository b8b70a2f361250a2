package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 120, cfg.Scraper.DefaultLimit)
	assert.Equal(t, 60, cfg.Scraper.ImageLimit)
	assert.Equal(t, 240, cfg.Scraper.MaxLimit)
	assert.Equal(t, 45*time.Second, cfg.Scraper.NavigationTimeout)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)

	assert.InDelta(t, 0.10, cfg.Grouping.PercentileLow, 1e-9)
	assert.InDelta(t, 0.90, cfg.Grouping.PercentileHigh, 1e-9)
	assert.InDelta(t, 1.5, cfg.Grouping.IQRMultiplier, 1e-9)
	assert.InDelta(t, 5.0, cfg.Grouping.MinPrice, 1e-9)
	assert.InDelta(t, 2000.0, cfg.Grouping.MaxPrice, 1e-9)
	assert.InDelta(t, 0.30, cfg.Grouping.MedianBand, 1e-9)
	assert.InDelta(t, 0.40, cfg.Grouping.WideMedianBand, 1e-9)
	assert.Equal(t, 4, cfg.Grouping.ShortTitleWords)
	assert.Equal(t, 10, cfg.Market.TrendWindow)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SCRAPER_NAVIGATION_TIMEOUT", "20s")
	t.Setenv("CACHE_TTL", "5m")
	t.Setenv("GROUPING_MEDIAN_BAND", "0.25")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 20*time.Second, cfg.Scraper.NavigationTimeout)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.InDelta(t, 0.25, cfg.Grouping.MedianBand, 1e-9)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSAllowedOrigins)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
scraper:
  default_limit: 80
  html_fallback: false
market:
  grading_cost: 25
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 80, cfg.Scraper.DefaultLimit)
	assert.False(t, cfg.Scraper.HTMLFallback)
	assert.InDelta(t, 25.0, cfg.Market.GradingCost, 1e-9)
	// untouched keys keep defaults
	assert.Equal(t, 60, cfg.Scraper.ImageLimit)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"inverted percentiles", func(c *Config) { c.Grouping.PercentileLow = 0.9; c.Grouping.PercentileHigh = 0.1 }},
		{"max price below min", func(c *Config) { c.Grouping.MaxPrice = 1 }},
		{"wide band narrower", func(c *Config) { c.Grouping.WideMedianBand = 0.1 }},
		{"limit above max", func(c *Config) { c.Scraper.DefaultLimit = 1000 }},
		{"search timeout too short", func(c *Config) { c.Scraper.SearchTimeout = time.Second }},
		{"trend window too small", func(c *Config) { c.Market.TrendWindow = 1 }},
		{"zero rate limit", func(c *Config) { c.RateLimit.RPS = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, valid().Validate())
}
