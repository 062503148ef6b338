package buzz

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"studiocheck/internal/availability"
	"studiocheck/internal/components/assert"
	"studiocheck/internal/components/chrono"
	"studiocheck/internal/components/telemetry"
	"studiocheck/internal/registry"
	"studiocheck/internal/window"
	"studiocheck/lib/htmlutil"
	"studiocheck/lib/restyutil"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("studiocheck/internal/scrapers/buzz")

const (
	report_client_fetch_day = "client.fetch-day"
	report_parser_parse_day = "parser.parse-day"
)

type Options struct {
	RequestsPerSecond float64
	BypassCloudflare  bool
	Output            restyutil.InstrumentOutput
}

// Client fetches the day pages of BUZZ studios.
type Client struct {
	http *resty.Client
	tel  telemetry.API
}

func NewClient(opts Options, tel telemetry.API) (Client, error) {
	assert.NotNil(tel)
	tel = telemetry.NewScopedAPI("buzz_scraper", tel)

	http, err := restyutil.NewScraperClient(restyutil.ClientOptions{
		RequestsPerSecond: opts.RequestsPerSecond,
		BypassCloudflare:  opts.BypassCloudflare,
		Tracer:            tracer,
		Output:            opts.Output,
	})
	if err != nil {
		return Client{}, err
	}
	telemetry.InstrumentResty(http, tel)

	return Client{http: http, tel: tel}, nil
}

// FetchDay returns the time table of resource on date. An empty slice with a nil
// error means the page rendered no time rows at all.
func (c Client) FetchDay(ctx context.Context, resource registry.Resource, date time.Time) ([]availability.TimeSlot, error) {
	ctx, span := tracer.Start(ctx, "FetchDay")
	defer span.End()

	pageURL := fmt.Sprintf("%s/%s", strings.TrimSuffix(resource.URL, "/"), chrono.FormatDate(date))
	span.SetAttributes(
		attribute.String("resource", resource.ID),
		attribute.String("url", pageURL),
	)

	res, err := c.http.R().
		SetContext(ctx).
		Get(pageURL)
	if err != nil {
		err = fmt.Errorf("%w: %w", availability.ErrFetch, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch day page")
		c.tel.ReportBroken(report_client_fetch_day, err, resource.ID)
		return nil, err
	}
	if res.IsError() {
		err = fmt.Errorf("%w: HTTP error! status: %d", availability.ErrFetch, res.StatusCode())
		span.SetStatus(codes.Error, "unexpected status")
		c.tel.ReportBroken(report_client_fetch_day, err, resource.ID)
		return nil, err
	}

	doc, err := htmlutil.ParseDocument(ctx, resource.ID, bytes.NewReader(res.Body()))
	if err != nil {
		err = fmt.Errorf("%w: %w", availability.ErrParse, err)
		c.tel.ReportBroken(report_parser_parse_day, err, resource.ID)
		return nil, err
	}
	slots, err := ParseDay(doc)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		c.tel.ReportBroken(report_parser_parse_day, err, resource.ID)
		return nil, err
	}
	c.tel.ReportDebug("fetched day", resource.ID, len(slots))
	return slots, nil
}

// Fetch implements the aggregator adapter for table style resources, the window is
// applied later by the aggregator.
func (c Client) Fetch(ctx context.Context, resource registry.Resource, date time.Time, _ window.Window) (availability.Payload, error) {
	slots, err := c.FetchDay(ctx, resource, date)
	if err != nil {
		return nil, err
	}
	return availability.TablePayload{TimeSlots: slots}, nil
}
