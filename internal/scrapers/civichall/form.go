package civichall

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"studiocheck/internal/availability"
	"studiocheck/internal/components/assert"
	"studiocheck/internal/components/telemetry"
	"studiocheck/lib/htmlutil"
	"studiocheck/lib/restyutil"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("studiocheck/internal/scrapers/civichall")

const DefaultBaseURL = "https://k3.p-kashikan.jp/fukuoka-kyotenbunka"

const (
	report_form_client_fetch_rooms    = "form-client.fetch-rooms"
	report_browser_client_fetch_rooms = "browser-client.fetch-rooms"
	report_browser_client_navigate    = "browser-client.navigate"
	report_parser_parse_rooms         = "parser.parse-rooms"
)

// shisetsuCode is the facility code of the civic hall on the booking portal
const shisetsuCode = "001"

type FormOptions struct {
	// BaseURL defaults to DefaultBaseURL.
	BaseURL           string
	RequestsPerSecond float64
	BypassCloudflare  bool
	Output            restyutil.InstrumentOutput
}

// FormClient reads the facility page by replaying the search form POST.
type FormClient struct {
	http *resty.Client
	tel  telemetry.API
}

func NewFormClient(opts FormOptions, tel telemetry.API) (FormClient, error) {
	assert.NotNil(tel)
	tel = telemetry.NewScopedAPI("civichall_scraper", tel)

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	http, err := restyutil.NewScraperClient(restyutil.ClientOptions{
		BaseURL:           baseURL,
		RequestsPerSecond: opts.RequestsPerSecond,
		BypassCloudflare:  opts.BypassCloudflare,
		Tracer:            tracer,
		Output:            opts.Output,
	})
	if err != nil {
		return FormClient{}, err
	}
	http.SetHeader("accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	http.SetHeader("accept-language", "ja,en-US;q=0.9,en;q=0.8")
	telemetry.InstrumentResty(http, tel)

	return FormClient{http: http, tel: tel}, nil
}

func searchForm(date time.Time) map[string]string {
	return map[string]string{
		"op":           "srch_sst",
		"UseYM":        date.Format("200601"),
		"UseDay":       strconv.Itoa(date.Day()),
		"UseDate":      date.Format("20060102"),
		"ShisetsuCode": shisetsuCode,
	}
}

func (c FormClient) FetchRooms(ctx context.Context, date time.Time, ids []string) ([]availability.Room, error) {
	ctx, span := tracer.Start(ctx, "FormClient.FetchRooms")
	defer span.End()
	span.SetAttributes(attribute.String("date", date.Format(time.DateOnly)))

	res, err := c.http.R().
		SetContext(ctx).
		SetFormData(searchForm(date)).
		Post("/index.php")
	if err != nil {
		err = fmt.Errorf("%w: %w", availability.ErrFetch, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to post search form")
		c.tel.ReportBroken(report_form_client_fetch_rooms, err)
		return nil, err
	}
	if res.IsError() {
		err = fmt.Errorf("%w: HTTP error: %s", availability.ErrFetch, res.Status())
		span.SetStatus(codes.Error, "unexpected status")
		c.tel.ReportBroken(report_form_client_fetch_rooms, err)
		return nil, err
	}

	doc, err := htmlutil.ParseDocument(ctx, FacilityID, bytes.NewReader(res.Body()))
	if err != nil {
		err = fmt.Errorf("%w: %w", availability.ErrParse, err)
		c.tel.ReportBroken(report_parser_parse_rooms, err)
		return nil, err
	}
	rooms, err := ParseRooms(doc, date)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		c.tel.ReportBroken(report_parser_parse_rooms, err)
		return nil, err
	}
	return FilterRooms(rooms, ids), nil
}
