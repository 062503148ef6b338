package crea

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"strconv"
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

var tracer = otel.Tracer("studiocheck/internal/scrapers/crea")

const DefaultAPIBaseURL = "https://coubic.com/api/v2"

const (
	report_api_client_fetch_studios = "api-client.fetch-studios"
	report_api_client_group_events  = "api-client.group-events"
)

// slot names known to appear in event titles, "平日夜・土日" has to be tried before
// "土日" and the spaced names before their unspaced forms.
var titleSlotNames = []string{"平日夜・土日", "平日 昼", "平日 夜", "平日昼", "朝活", "土日"}

// display order of slot groups
var canonicalSlotOrder = []string{"朝活", "平日昼", "平日 昼", "平日 夜", "平日夜・土日", "土日"}

var priceRegex = regexp.MustCompile(`[¥￥]\s*([\d,]+)`)

// ParseTitle extracts the slot name and the yen price from an event title, the price
// is fallbackPrice when the title carries none.
func ParseTitle(title string, fallbackPrice int) (string, int) {
	price := fallbackPrice
	if groups := priceRegex.FindStringSubmatch(title); groups != nil {
		parsed, err := strconv.Atoi(strings.ReplaceAll(groups[1], ",", ""))
		if err == nil {
			price = parsed
		}
	}

	for _, name := range titleSlotNames {
		if strings.Contains(title, name) {
			return name, price
		}
	}
	return strings.TrimSpace(priceRegex.ReplaceAllString(title, "")), price
}

// publicID accepts both string and numeric ids.
type publicID string

func (p *publicID) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*p = publicID(text)
		return nil
	}
	var number json.Number
	if err := json.Unmarshal(data, &number); err != nil {
		return err
	}
	*p = publicID(number.String())
	return nil
}

type bookingEvent struct {
	PublicID   publicID `json:"public_id"`
	Title      string   `json:"title"`
	StartAt    int64    `json:"start_at"`
	EndAt      int64    `json:"end_at"`
	Reservable bool     `json:"reservable"`
	Full       bool     `json:"full"`
}

type bookingEventsResponse struct {
	Data []bookingEvent `json:"data"`
}

type APIOptions struct {
	// BaseURL defaults to DefaultAPIBaseURL.
	BaseURL           string
	RequestsPerSecond float64
	BypassCloudflare  bool
	Output            restyutil.InstrumentOutput
}

// APIClient reads availability from the booking platform's public events endpoint.
type APIClient struct {
	http *resty.Client
	tel  telemetry.API
}

func NewAPIClient(opts APIOptions, tel telemetry.API) (APIClient, error) {
	assert.NotNil(tel)
	tel = telemetry.NewScopedAPI("crea_scraper", tel)

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultAPIBaseURL
	}
	http, err := restyutil.NewScraperClient(restyutil.ClientOptions{
		BaseURL:           baseURL,
		RequestsPerSecond: opts.RequestsPerSecond,
		BypassCloudflare:  opts.BypassCloudflare,
		Tracer:            tracer,
		Output:            opts.Output,
	})
	if err != nil {
		return APIClient{}, err
	}
	http.SetHeader("accept", "application/json")
	telemetry.InstrumentResty(http, tel)

	return APIClient{http: http, tel: tel}, nil
}

func (c APIClient) fetchEvents(ctx context.Context, date time.Time) ([]bookingEvent, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetPathParam("merchant", MerchantID).
		SetQueryParams(map[string]string{
			"start": chrono.StartOfDay(date).Format(time.RFC3339),
			"end":   chrono.EndOfDay(date).Format(time.RFC3339),
		}).
		Get("/merchants/{merchant}/booking_events")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", availability.ErrFetch, err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("%w: HTTP error! status: %d", availability.ErrFetch, res.StatusCode())
	}

	var body bookingEventsResponse
	err = json.Unmarshal(res.Body(), &body)
	if err != nil {
		return nil, fmt.Errorf("%w: booking events: %w", availability.ErrParse, err)
	}
	return body.Data, nil
}

// FetchStudios returns the studios named by ids (every studio when empty) with their
// bookable start times on date. The window does not narrow the query, it is applied
// downstream.
func (c APIClient) FetchStudios(ctx context.Context, date time.Time, ids []string, _ window.Window) ([]availability.Studio, error) {
	ctx, span := tracer.Start(ctx, "APIClient.FetchStudios")
	defer span.End()
	span.SetAttributes(
		attribute.String("date", chrono.FormatDate(date)),
		attribute.StringSlice("studios", ids),
	)

	events, err := c.fetchEvents(ctx, date)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch booking events")
		c.tel.ReportBroken(report_api_client_fetch_studios, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("events", len(events)))

	return groupEvents(events, date, selectStudios(ids), c.tel), nil
}

type groupKey struct {
	studioID string
	publicID string
}

// groupEvents turns booking events into per studio slot groups. Events whose id is
// not in the catalogue are dropped with a warning.
func groupEvents(events []bookingEvent, date time.Time, selected []StudioSpec, tel telemetry.API) []availability.Studio {
	day := chrono.FormatDate(date)

	groups := map[groupKey]*availability.PricedSlot{}
	var order []groupKey
	for _, event := range events {
		studio, slot, ok := LookupMenu(string(event.PublicID))
		if !ok {
			tel.ReportWarning(report_api_client_group_events, "unknown event id", string(event.PublicID), event.Title)
			continue
		}
		start := time.Unix(event.StartAt, 0).In(chrono.Tokyo())
		if chrono.FormatDate(start) != day {
			continue
		}

		key := groupKey{studioID: studio.ID, publicID: string(event.PublicID)}
		group, exists := groups[key]
		if !exists {
			name, price := ParseTitle(event.Title, slot.Price)
			group = &availability.PricedSlot{
				SlotType:  slot.Type,
				SlotName:  name,
				Price:     price,
				Hours:     slot.Hours,
				TimeSlots: []availability.Entry{},
			}
			groups[key] = group
			order = append(order, key)
		}
		group.TimeSlots = append(group.TimeSlots, availability.Entry{
			Time:      start.Format("15:04"),
			Available: event.Reservable && !event.Full,
		})
	}

	out := make([]availability.Studio, 0, len(selected))
	for _, spec := range selected {
		studio := newStudio(spec, date)
		for _, key := range order {
			if key.studioID != spec.ID {
				continue
			}
			group := *groups[key]
			slices.SortStableFunc(group.TimeSlots, func(a, b availability.Entry) int {
				return strings.Compare(a.Time, b.Time)
			})
			studio.Slots = append(studio.Slots, group)
		}
		slices.SortStableFunc(studio.Slots, func(a, b availability.PricedSlot) int {
			return canonicalRank(a.SlotName) - canonicalRank(b.SlotName)
		})
		out = append(out, studio)
	}
	return out
}

func canonicalRank(name string) int {
	idx := slices.Index(canonicalSlotOrder, name)
	if idx < 0 {
		return len(canonicalSlotOrder)
	}
	return idx
}

func newStudio(spec StudioSpec, date time.Time) availability.Studio {
	return availability.Studio{
		StudioID:   spec.ID,
		StudioName: spec.Name,
		Floor:      spec.Floor,
		Size:       spec.Size,
		Date:       chrono.FormatDate(date),
		DayOfWeek:  chrono.DayOfWeek(date),
		Slots:      []availability.PricedSlot{},
	}
}
