package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"studiocheck/internal/components/chrono"
	"studiocheck/internal/components/telemetry"
	"studiocheck/internal/scrapers/civichall"
	"studiocheck/internal/scrapers/crea"
	"studiocheck/lib/configutil"
	"studiocheck/lib/httputil"
	"studiocheck/lib/restyutil"
	"studiocheck/lib/serviceutil"
	libtelemetry "studiocheck/lib/telemetry"
	"studiocheck/services/scraper"
	"time"
)

func restyOutput(verbose bool, component string) restyutil.InstrumentOutput {
	if !verbose {
		return nil
	}
	output, err := restyutil.NewFilesystemOutput(fmt.Sprintf(".dev/resty/%s", component))
	if err != nil {
		serviceutil.Fatal("create resty output", err)
	}
	return output
}

type closer interface {
	Close()
}

func newRoomFetcher(cfg CivicHallConfig, verbose bool, tel telemetry.API) (civichall.RoomFetcher, closer) {
	if cfg.Strategy == StrategyForm {
		client, err := civichall.NewFormClient(civichall.FormOptions{
			RequestsPerSecond: cfg.RequestsPerSecond,
			Output:            restyOutput(verbose, "civichall"),
		}, tel)
		if err != nil {
			serviceutil.Fatal("init civic hall form client", err)
		}
		return client, nil
	}

	client := civichall.NewBrowserClient(civichall.BrowserOptions{
		ShowBrowser: cfg.ShowBrowser,
		MaxSteps:    cfg.MaxSteps,
		Timeout:     time.Duration(cfg.TimeoutSeconds) * time.Second,
		MaxTabs:     cfg.MaxTabs,
	}, tel)
	return client, client
}

func newStudioFetcher(cfg CreaConfig, auth *crea.AuthStore, verbose bool, tel telemetry.API) (crea.StudioFetcher, closer) {
	if cfg.Strategy == StrategyAPI {
		client, err := crea.NewAPIClient(crea.APIOptions{
			RequestsPerSecond: cfg.RequestsPerSecond,
			Output:            restyOutput(verbose, "crea"),
		}, tel)
		if err != nil {
			serviceutil.Fatal("init crea api client", err)
		}
		return client, nil
	}

	client := crea.NewBrowserClient(crea.BrowserOptions{
		ShowBrowser: cfg.ShowBrowser,
		Concurrency: cfg.Concurrency,
		PageTimeout: time.Duration(cfg.PageTimeoutSeconds) * time.Second,
	}, auth, tel)
	return client, client
}

func main() {
	verbose := flag.Bool("v", false, "Enable verbose logging/instrumentation.")
	configPath := flag.String("config", "config.json5", "Path to the configuration file.")
	flag.Parse()

	err := configutil.LoadEnv()
	if err != nil {
		serviceutil.Fatal("load .env", err)
	}
	libtelemetry.InitSlog(*verbose)

	ctx := serviceutil.SignalContext()

	otel, err := libtelemetry.SetupFromEnv(ctx, "scraper-server")
	if err != nil {
		serviceutil.Fatal("setup telemetry", err)
	}
	defer otel.Shutdown(context.Background())
	libtelemetry.InstrumentPerfStats(ctx)

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		serviceutil.Fatal("read config", err)
	}

	tel := telemetry.SlogAPI{}

	auth := crea.NewAuthStore(crea.AuthOptions{
		JSON: os.Getenv("CREA_AUTH_JSON"),
		File: cfg.Crea.AuthFile,
	}, tel)
	err = auth.Reload()
	if err != nil && cfg.Crea.Strategy == StrategyBrowser {
		slog.Warn("crea session state unavailable, crea scrapes will fail until it is provided", "err", err)
	}

	cron := chrono.NewStandardCron(tel)
	defer cron.Stop()
	if cfg.Crea.Strategy == StrategyBrowser && cfg.Crea.AuthReloadCron != "" {
		err = cron.Cron(cfg.Crea.AuthReloadCron, func() {
			// Reload reports its own failures.
			auth.Reload()
		})
		if err != nil {
			serviceutil.Fatal("schedule auth reload", err)
		}
	}

	rooms, roomsCloser := newRoomFetcher(cfg.CivicHall, *verbose, tel)
	if roomsCloser != nil {
		defer roomsCloser.Close()
	}
	studios, studiosCloser := newStudioFetcher(cfg.Crea, auth, *verbose, tel)
	if studiosCloser != nil {
		defer studiosCloser.Close()
	}

	slog.Info(
		"scrapers initialized",
		"civic_hall", cfg.CivicHall.Strategy,
		"crea", cfg.Crea.Strategy,
		"auth", auth.Source(),
	)

	service := scraper.NewService(scraper.Options{
		Rooms:          rooms,
		Studios:        studios,
		RoomStrategy:   cfg.CivicHall.Strategy,
		StudioStrategy: cfg.Crea.Strategy,
	}, chrono.NewStandardImpl(), tel)

	err = serviceutil.StartHttpServer(ctx, cfg.Port, httputil.Wrap(slog.Default(), service.Router()))
	if err != nil {
		serviceutil.Fatal("serve http", err)
	}
}
