package main

import (
	"fmt"
	"studiocheck/internal/delegate"
	"studiocheck/lib/configutil"
	"time"
)

const (
	StrategyDelegate = "delegate"
	StrategyForm     = "form"
	StrategyAPI      = "api"
)

type DelegateConfig struct {
	URL            string `json:"url"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	// WarmupCron pings the delegate's health check so it never sleeps through a
	// request, empty disables it.
	WarmupCron string `json:"warmup_cron"`
}

type ScraperConfig struct {
	// Strategy is "delegate" or the local strategy of the site ("form" for the civic
	// hall, "api" for CREA). BUZZ is always scraped locally.
	Strategy          string  `json:"strategy"`
	RequestsPerSecond float64 `json:"requests_per_second"`
	BypassCloudflare  bool    `json:"bypass_cloudflare"`
}

type Config struct {
	Port        int            `json:"port"`
	// Parallelism caps concurrent resource fetches per request, 0 means no cap.
	Parallelism int            `json:"parallelism"`
	Delegate    DelegateConfig `json:"delegate"`
	Buzz        ScraperConfig  `json:"buzz"`
	CivicHall   ScraperConfig  `json:"civic_hall"`
	Crea        ScraperConfig  `json:"crea"`
}

var defaultConfig = Config{
	Port: 8000,
	Delegate: DelegateConfig{
		URL:            delegate.DefaultBaseURL,
		TimeoutSeconds: int(delegate.DefaultTimeout / time.Second),
		WarmupCron:     "*/10 * * * *",
	},
	Buzz:      ScraperConfig{RequestsPerSecond: 2},
	CivicHall: ScraperConfig{Strategy: StrategyDelegate, RequestsPerSecond: 1},
	Crea:      ScraperConfig{Strategy: StrategyDelegate, RequestsPerSecond: 1},
}

func (c Config) usesDelegate() bool {
	return c.CivicHall.Strategy == StrategyDelegate || c.Crea.Strategy == StrategyDelegate
}

func (c Config) validate() error {
	if c.Parallelism < 0 {
		return fmt.Errorf("parallelism must not be negative, got %d", c.Parallelism)
	}
	if c.CivicHall.Strategy != StrategyDelegate && c.CivicHall.Strategy != StrategyForm {
		return fmt.Errorf("civic_hall.strategy must be %q or %q, got %q", StrategyDelegate, StrategyForm, c.CivicHall.Strategy)
	}
	if c.Crea.Strategy != StrategyDelegate && c.Crea.Strategy != StrategyAPI {
		return fmt.Errorf("crea.strategy must be %q or %q, got %q", StrategyDelegate, StrategyAPI, c.Crea.Strategy)
	}
	return nil
}

// LoadConfig reads config.json5 (optional), fills the gaps with defaults and then
// applies the environment.
func LoadConfig(path string) (Config, error) {
	cfg, err := configutil.ReadOrDefault(path, defaultConfig)
	if err != nil {
		return Config{}, err
	}

	configutil.OverrideString(&cfg.Delegate.URL, "DELEGATE_URL", "RENDER_API_URL")
	err = configutil.OverrideInt(&cfg.Port, "PORT")
	if err != nil {
		return Config{}, err
	}
	return cfg, cfg.validate()
}
