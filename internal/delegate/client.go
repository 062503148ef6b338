package delegate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"studiocheck/internal/availability"
	"studiocheck/internal/components/assert"
	"studiocheck/internal/components/chrono"
	"studiocheck/internal/components/telemetry"
	"studiocheck/internal/window"
	"studiocheck/lib/restyutil"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("studiocheck/internal/delegate")

const (
	DefaultBaseURL = "https://studio-check-api.onrender.com"
	DefaultTimeout = 120 * time.Second
)

const (
	report_client_scrape = "client.scrape"
	report_client_health = "client.health"
)

type Options struct {
	// BaseURL defaults to DefaultBaseURL.
	BaseURL string
	// Timeout bounds every call, defaults to DefaultTimeout.
	Timeout time.Duration
	Output  restyutil.InstrumentOutput
}

// Client calls the delegate scraping service, which runs the browser heavy
// strategies on a separate host.
type Client struct {
	http *resty.Client
	tel  telemetry.API
}

func NewClient(opts Options, tel telemetry.API) Client {
	assert.NotNil(tel)
	tel = telemetry.NewScopedAPI("delegate", tel)

	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	http := resty.New().
		SetBaseURL(strings.TrimSuffix(opts.BaseURL, "/")).
		SetTimeout(opts.Timeout).
		SetHeader("content-type", "application/json")
	restyutil.InstrumentClient(http, tracer, opts.Output)
	telemetry.InstrumentResty(http, tel)

	return Client{http: http, tel: tel}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func (c Client) scrape(ctx context.Context, site string, date time.Time, ids []string, w window.Window) (ScrapeResponse, error) {
	ctx, span := tracer.Start(ctx, "Client.scrape")
	defer span.End()
	span.SetAttributes(
		attribute.String("site", site),
		attribute.String("date", chrono.FormatDate(date)),
	)

	req := c.http.R().
		SetContext(ctx).
		SetPathParam("site", site).
		SetQueryParam("date", chrono.FormatDate(date))
	if len(ids) > 0 {
		req.SetQueryParam("ids", strings.Join(ids, ","))
	}
	if !w.IsFull() {
		req.SetQueryParam("window", fmt.Sprintf("%s,%s", window.FormatMinutes(w.Start), window.FormatMinutes(w.End)))
	}

	res, err := req.Get("/scrape/{site}")
	if err != nil {
		if isTimeout(err) {
			err = fmt.Errorf("%w: %w", availability.ErrDelegateTimeout, err)
		} else {
			err = fmt.Errorf("%w: %w", availability.ErrFetch, err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "delegate call failed")
		c.tel.ReportBroken(report_client_scrape, err, site)
		return ScrapeResponse{}, err
	}

	var body ScrapeResponse
	decodeErr := json.Unmarshal(res.Body(), &body)
	if res.IsError() || !body.Success {
		message := body.Error
		if decodeErr != nil || message == "" {
			message = fmt.Sprintf("HTTP error! status: %d", res.StatusCode())
		}
		sentinel := availability.ErrFetch
		if body.ErrorKind != "" {
			if s := availability.Sentinel(body.ErrorKind); s != nil {
				sentinel = s
			}
		}
		err = fmt.Errorf("%w: %s", sentinel, message)
		span.SetStatus(codes.Error, message)
		c.tel.ReportBroken(report_client_scrape, err, site, res.StatusCode())
		return ScrapeResponse{}, err
	}
	if decodeErr != nil {
		err = fmt.Errorf("%w: delegate response: %w", availability.ErrParse, decodeErr)
		c.tel.ReportBroken(report_client_scrape, err, site)
		return ScrapeResponse{}, err
	}
	return body, nil
}

// FetchRooms asks the delegate for the civic hall rooms named by ids.
func (c Client) FetchRooms(ctx context.Context, date time.Time, ids []string) ([]availability.Room, error) {
	body, err := c.scrape(ctx, SiteCivicHall, date, ids, window.Full())
	if err != nil {
		return nil, err
	}
	if body.Rooms == nil {
		return []availability.Room{}, nil
	}
	return body.Rooms, nil
}

// FetchStudios asks the delegate for the CREA studios named by ids, the window
// decides which weekday evening slots apply.
func (c Client) FetchStudios(ctx context.Context, date time.Time, ids []string, w window.Window) ([]availability.Studio, error) {
	body, err := c.scrape(ctx, SiteCrea, date, ids, w)
	if err != nil {
		return nil, err
	}
	if body.Studios == nil {
		return []availability.Studio{}, nil
	}
	return body.Studios, nil
}

// Health pings the delegate, waking it up when the host idles it.
func (c Client) Health(ctx context.Context) (Health, error) {
	var health Health
	res, err := c.http.R().
		SetContext(ctx).
		SetResult(&health).
		Get("/health")
	if err != nil {
		c.tel.ReportWarning(report_client_health, err)
		return Health{}, err
	}
	if res.IsError() {
		err = fmt.Errorf("HTTP error! status: %d", res.StatusCode())
		c.tel.ReportWarning(report_client_health, err)
		return Health{}, err
	}
	return health, nil
}
