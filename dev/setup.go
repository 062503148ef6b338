package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
)

const availabilityServerConfig = `{
  port: 8000,
  delegate: {
    url: "http://localhost:3001",
    timeout_seconds: 120,
  },
  civic_hall: { strategy: "delegate" },
  crea: { strategy: "delegate" },
}
`

const scraperServerConfig = `{
  port: 3001,
  civic_hall: {
    strategy: "browser",
    show_browser: true,
  },
  crea: {
    strategy: "api",
    auth_file: "auth-crea.json",
  },
}
`

// Both servers only log until a telemetry.json5 is added next to these.
var configs = map[string]string{
	"cmd/availability-server/config.json5": availabilityServerConfig,
	"cmd/scraper-server/config.json5":      scraperServerConfig,
}

func WriteDefaultConfigs(overwrite bool) error {
	for path, contents := range configs {
		_, err := os.Stat(path)
		if err == nil && !overwrite {
			fmt.Println("config already exists at", path)
			continue
		}

		fmt.Println("writing config to", path)
		err = os.MkdirAll(filepath.Dir(path), 0777)
		if err != nil {
			return err
		}
		err = os.WriteFile(path, []byte(contents), 0666)
		if err != nil {
			return err
		}
	}
	return nil
}

var browserExecutables = []string{
	"google-chrome",
	"google-chrome-stable",
	"chromium",
	"chromium-browser",
	"headless-shell",
}

// CheckBrowser looks for a chrome binary the browser strategies can drive.
func CheckBrowser() {
	for _, name := range browserExecutables {
		path, err := exec.LookPath(name)
		if err == nil {
			fmt.Println("found browser at", path)
			return
		}
	}
	slog.Warn("no chrome binary found in PATH, the browser strategies will not work", "tried", browserExecutables)
}

func CheckCreaAuth() {
	if os.Getenv("CREA_AUTH_JSON") != "" {
		fmt.Println("crea session state provided by CREA_AUTH_JSON")
		return
	}
	_, err := os.Stat("cmd/scraper-server/auth-crea.json")
	if err != nil {
		slog.Warn("no crea session state found, save one to cmd/scraper-server/auth-crea.json to use the crea browser strategy")
		return
	}
	fmt.Println("crea session state found at cmd/scraper-server/auth-crea.json")
}
