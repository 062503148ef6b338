package main

import (
	"fmt"
	"studiocheck/internal/scrapers/civichall"
	"studiocheck/internal/scrapers/crea"
	"studiocheck/lib/configutil"
)

const (
	StrategyBrowser = "browser"
	StrategyForm    = "form"
	StrategyAPI     = "api"
)

type CivicHallConfig struct {
	// Strategy is "browser" or "form".
	Strategy          string  `json:"strategy"`
	ShowBrowser       bool    `json:"show_browser"`
	MaxSteps          int     `json:"max_steps"`
	TimeoutSeconds    int     `json:"timeout_seconds"`
	MaxTabs           int     `json:"max_tabs"`
	RequestsPerSecond float64 `json:"requests_per_second"`
}

type CreaConfig struct {
	// Strategy is "browser" or "api".
	Strategy           string  `json:"strategy"`
	ShowBrowser        bool    `json:"show_browser"`
	Concurrency        int     `json:"concurrency"`
	PageTimeoutSeconds int     `json:"page_timeout_seconds"`
	RequestsPerSecond  float64 `json:"requests_per_second"`
	AuthFile           string  `json:"auth_file"`
	// AuthReloadCron re-reads the session state so a refreshed auth file is picked
	// up without a restart, empty disables it.
	AuthReloadCron string `json:"auth_reload_cron"`
}

type Config struct {
	Port      int             `json:"port"`
	CivicHall CivicHallConfig `json:"civic_hall"`
	Crea      CreaConfig      `json:"crea"`
}

var defaultConfig = Config{
	Port: 3001,
	CivicHall: CivicHallConfig{
		Strategy:          StrategyBrowser,
		MaxSteps:          civichall.DefaultMaxSteps,
		TimeoutSeconds:    90,
		MaxTabs:           1,
		RequestsPerSecond: 1,
	},
	Crea: CreaConfig{
		Strategy:           StrategyBrowser,
		Concurrency:        2,
		PageTimeoutSeconds: 45,
		RequestsPerSecond:  1,
		AuthFile:           crea.DefaultAuthFile,
		AuthReloadCron:     "*/15 * * * *",
	},
}

func (c Config) validate() error {
	if c.CivicHall.Strategy != StrategyBrowser && c.CivicHall.Strategy != StrategyForm {
		return fmt.Errorf("civic_hall.strategy must be %q or %q, got %q", StrategyBrowser, StrategyForm, c.CivicHall.Strategy)
	}
	if c.Crea.Strategy != StrategyBrowser && c.Crea.Strategy != StrategyAPI {
		return fmt.Errorf("crea.strategy must be %q or %q, got %q", StrategyBrowser, StrategyAPI, c.Crea.Strategy)
	}
	return nil
}

func LoadConfig(path string) (Config, error) {
	cfg, err := configutil.ReadOrDefault(path, defaultConfig)
	if err != nil {
		return Config{}, err
	}

	configutil.OverrideString(&cfg.Crea.AuthFile, "CREA_AUTH_FILE")
	err = configutil.OverrideInt(&cfg.Port, "PORT")
	if err != nil {
		return Config{}, err
	}
	err = configutil.OverrideBool(&cfg.CivicHall.ShowBrowser, "SHOW_BROWSER")
	if err != nil {
		return Config{}, err
	}
	err = configutil.OverrideBool(&cfg.Crea.ShowBrowser, "SHOW_BROWSER")
	if err != nil {
		return Config{}, err
	}
	return cfg, cfg.validate()
}
