package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"studiocheck/internal/aggregator"
	"studiocheck/internal/availability"
	"studiocheck/internal/components/chrono"
	"studiocheck/internal/components/telemetry"
	"studiocheck/internal/delegate"
	"studiocheck/internal/scrapers/buzz"
	"studiocheck/internal/scrapers/civichall"
	"studiocheck/internal/scrapers/crea"
	"studiocheck/lib/configutil"
	"studiocheck/lib/httputil"
	"studiocheck/lib/restyutil"
	"studiocheck/lib/serviceutil"
	libtelemetry "studiocheck/lib/telemetry"
	availabilitysvc "studiocheck/services/availability"
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

func newAdapters(cfg Config, verbose bool, tel telemetry.API) (map[availability.PayloadKind]aggregator.Adapter, delegate.Client) {
	delegateClient := delegate.NewClient(delegate.Options{
		BaseURL: cfg.Delegate.URL,
		Timeout: time.Duration(cfg.Delegate.TimeoutSeconds) * time.Second,
		Output:  restyOutput(verbose, "delegate"),
	}, tel)

	buzzClient, err := buzz.NewClient(buzz.Options{
		RequestsPerSecond: cfg.Buzz.RequestsPerSecond,
		BypassCloudflare:  cfg.Buzz.BypassCloudflare,
		Output:            restyOutput(verbose, "buzz"),
	}, tel)
	if err != nil {
		serviceutil.Fatal("init buzz client", err)
	}

	var rooms civichall.RoomFetcher = delegateClient
	if cfg.CivicHall.Strategy == StrategyForm {
		rooms, err = civichall.NewFormClient(civichall.FormOptions{
			RequestsPerSecond: cfg.CivicHall.RequestsPerSecond,
			BypassCloudflare:  cfg.CivicHall.BypassCloudflare,
			Output:            restyOutput(verbose, "civichall"),
		}, tel)
		if err != nil {
			serviceutil.Fatal("init civic hall client", err)
		}
	}

	var studios crea.StudioFetcher = delegateClient
	if cfg.Crea.Strategy == StrategyAPI {
		studios, err = crea.NewAPIClient(crea.APIOptions{
			RequestsPerSecond: cfg.Crea.RequestsPerSecond,
			BypassCloudflare:  cfg.Crea.BypassCloudflare,
			Output:            restyOutput(verbose, "crea"),
		}, tel)
		if err != nil {
			serviceutil.Fatal("init crea client", err)
		}
	}

	slog.Info(
		"adapters initialized",
		"civic_hall", cfg.CivicHall.Strategy,
		"crea", cfg.Crea.Strategy,
		"delegate", cfg.Delegate.URL,
	)

	return map[availability.PayloadKind]aggregator.Adapter{
		availability.PayloadTable:  buzzClient,
		availability.PayloadRange:  civichall.NewAdapter(rooms),
		availability.PayloadPriced: crea.NewAdapter(studios),
	}, delegateClient
}

func scheduleWarmup(cfg Config, client delegate.Client, tel telemetry.API) chrono.StandardCron {
	cron := chrono.NewStandardCron(tel)
	scoped := telemetry.NewScopedAPI("availability_server", tel)
	if !cfg.usesDelegate() || cfg.Delegate.WarmupCron == "" {
		return cron
	}

	err := cron.Cron(cfg.Delegate.WarmupCron, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Delegate.TimeoutSeconds)*time.Second)
		defer cancel()

		health, err := client.Health(ctx)
		if err != nil {
			scoped.ReportWarning("delegate.warmup", err)
			return
		}
		scoped.ReportDebug("delegate warm", health.Status, health.CreaStrategy, health.CivicHallStrategy)
	})
	if err != nil {
		serviceutil.Fatal("schedule delegate warmup", err)
	}
	return cron
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

	otel, err := libtelemetry.SetupFromEnv(ctx, "availability-server")
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
	adapters, delegateClient := newAdapters(cfg, *verbose, tel)

	agg, err := aggregator.New(aggregator.Options{
		Parallelism: cfg.Parallelism,
		Adapters:    adapters,
	}, tel)
	if err != nil {
		serviceutil.Fatal("init aggregator", err)
	}

	cron := scheduleWarmup(cfg, delegateClient, tel)
	defer cron.Stop()

	service := availabilitysvc.NewService(agg, chrono.NewStandardImpl(), tel)
	err = serviceutil.StartHttpServer(ctx, cfg.Port, httputil.Wrap(slog.Default(), service.Router()))
	if err != nil {
		serviceutil.Fatal("serve http", err)
	}
}
