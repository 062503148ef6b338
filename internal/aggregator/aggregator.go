package aggregator

import (
	"context"
	"fmt"
	"studiocheck/internal/availability"
	"studiocheck/internal/components/assert"
	"studiocheck/internal/components/chrono"
	"studiocheck/internal/components/telemetry"
	"studiocheck/internal/pool"
	"studiocheck/internal/registry"
	"studiocheck/internal/window"
	"studiocheck/lib/textutil"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

var tracer = otel.Tracer("studiocheck/internal/aggregator")
var meter = otel.Meter("studiocheck/internal/aggregator")

const (
	report_fetch_resource = "aggregator.fetch-resource"
	report_handle         = "aggregator.handle"
)

// Adapter turns one resource on one date into a payload. Adapters may return a
// partial payload together with an error.
type Adapter interface {
	Fetch(ctx context.Context, resource registry.Resource, date time.Time, w window.Window) (availability.Payload, error)
}

type Options struct {
	// Parallelism caps how many resources are fetched at the same time, 0 starts
	// every resource at once. Browser driven adapters bound their own tabs.
	Parallelism int
	Adapters    map[availability.PayloadKind]Adapter
}

type Aggregator struct {
	parallelism int
	adapters    map[availability.PayloadKind]Adapter
	tel         telemetry.API

	fetchCounter  metric.Int64Counter
	fetchDuration metric.Float64Histogram
}

func New(opts Options, tel telemetry.API) (Aggregator, error) {
	assert.NotNil(tel)
	if opts.Parallelism != 0 {
		assert.Positive(opts.Parallelism)
	}

	fetchCounter, err := meter.Int64Counter(
		"aggregator_fetch_total",
		metric.WithDescription("The total amount of resource fetches by outcome."),
	)
	if err != nil {
		return Aggregator{}, err
	}
	fetchDuration, err := meter.Float64Histogram(
		"aggregator_fetch_duration_seconds",
		metric.WithDescription("How long a single resource fetch took."),
		metric.WithUnit("s"),
	)
	if err != nil {
		return Aggregator{}, err
	}

	adapters := make(map[availability.PayloadKind]Adapter, len(opts.Adapters))
	for kind, adapter := range opts.Adapters {
		adapters[kind] = adapter
	}

	return Aggregator{
		parallelism:   opts.Parallelism,
		adapters:      adapters,
		tel:           telemetry.NewScopedAPI("aggregator", tel),
		fetchCounter:  fetchCounter,
		fetchDuration: fetchDuration,
	}, nil
}

type Request struct {
	ResourceIDs []string
	Date        time.Time
	Window      window.Window
}

type Response struct {
	Date            string                  `json:"date"`
	DayOfWeek       string                  `json:"dayOfWeek"`
	Window          window.Window           `json:"window"`
	Results         []availability.Record   `json:"results"`
	ResourceCatalog []registry.CatalogEntry `json:"resourceCatalog"`
}

// SplitIDs splits a comma separated id list, fragments are trimmed and empty ones
// dropped. Duplicates are kept.
func SplitIDs(raw string) []string {
	return textutil.SplitList(raw)
}

// ParseRequest builds a request out of the textual query parameters.
func ParseRequest(ids, date, windowSpec string) (Request, error) {
	req := Request{ResourceIDs: SplitIDs(ids)}
	if len(req.ResourceIDs) == 0 {
		return Request{}, fmt.Errorf("%w: no resource ids given", availability.ErrInvalidRequest)
	}

	parsed, err := chrono.ParseDate(date)
	if err != nil {
		return Request{}, fmt.Errorf("%w: %w", availability.ErrInvalidRequest, err)
	}
	req.Date = parsed

	req.Window, err = window.Parse(windowSpec)
	if err != nil {
		return Request{}, fmt.Errorf("%w: %w", availability.ErrInvalidRequest, err)
	}
	return req, nil
}

func (req Request) normalize() (Request, error) {
	var ids []string
	for _, id := range req.ResourceIDs {
		ids = append(ids, SplitIDs(id)...)
	}
	if len(ids) == 0 {
		return Request{}, fmt.Errorf("%w: no resource ids given", availability.ErrInvalidRequest)
	}
	if req.Date.IsZero() {
		return Request{}, fmt.Errorf("%w: missing date", availability.ErrInvalidRequest)
	}
	if req.Window == (window.Window{}) {
		req.Window = window.Full()
	}
	err := req.Window.Validate()
	if err != nil {
		return Request{}, fmt.Errorf("%w: %w", availability.ErrInvalidRequest, err)
	}
	req.ResourceIDs = ids
	return req, nil
}

// Handle fetches every requested resource and returns one record per id in request
// order. A failing resource only ever fails its own record.
func (a Aggregator) Handle(ctx context.Context, req Request) (Response, error) {
	ctx, span := tracer.Start(ctx, "aggregator:handle")
	defer span.End()

	req, err := req.normalize()
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Response{}, err
	}
	date := chrono.StartOfDay(req.Date)

	span.SetAttributes(
		attribute.String("date", chrono.FormatDate(date)),
		attribute.String("window", req.Window.String()),
		attribute.StringSlice("resource_ids", req.ResourceIDs),
	)

	tasks := make([]pool.Task[availability.Record], len(req.ResourceIDs))
	for i, id := range req.ResourceIDs {
		tasks[i] = func(ctx context.Context) (availability.Record, error) {
			return a.fetchResource(ctx, id, date, req.Window), nil
		}
	}
	limit := a.parallelism
	if limit == 0 {
		limit = len(tasks)
	}
	results := pool.Run(ctx, limit, tasks)

	records := make([]availability.Record, len(results))
	failed := 0
	for i, res := range results {
		record := res.Value
		if res.Err != nil {
			// only reachable when a task panicked
			a.tel.ReportBroken(report_handle, res.Err, req.ResourceIDs[i])
			record = a.failedRecord(req.ResourceIDs[i], date, res.Err)
		}
		if record.Status == availability.StatusError {
			failed++
		}
		records[i] = window.Apply(record, req.Window)
	}
	a.tel.ReportCount(report_handle, int64(failed))

	return Response{
		Date:            chrono.FormatDate(date),
		DayOfWeek:       chrono.DayOfWeek(date),
		Window:          req.Window,
		Results:         records,
		ResourceCatalog: registry.Catalog(),
	}, nil
}

func (a Aggregator) failedRecord(id string, date time.Time, err error) availability.Record {
	resource, ok := registry.Lookup(id)
	if !ok {
		return unknownRecord(id, date)
	}
	return availability.NewRecord(resource.ID, resource.Name, date).
		WithPayload(emptyPayload(resource.Kind)).
		WithError(err)
}

func unknownRecord(id string, date time.Time) availability.Record {
	record := availability.NewRecord(id, availability.UnknownResourceName, date).
		WithError(fmt.Errorf("%w: %s", availability.ErrUnknownResource, id))
	record.Error = availability.UnknownResourceError
	record.Suggestion, _ = registry.Suggest(id)
	return record
}

func emptyPayload(kind availability.PayloadKind) availability.Payload {
	switch kind {
	case availability.PayloadTable:
		return availability.TablePayload{}
	case availability.PayloadRange:
		return availability.RangePayload{}
	case availability.PayloadPriced:
		return availability.PricedPayload{}
	}
	return nil
}

func (a Aggregator) fetchResource(ctx context.Context, id string, date time.Time, w window.Window) availability.Record {
	resource, ok := registry.Lookup(id)
	if !ok {
		a.tel.ReportWarning(report_fetch_resource, "unknown resource id", id)
		return unknownRecord(id, date)
	}

	ctx, span := tracer.Start(ctx, "aggregator:fetch-resource")
	defer span.End()
	span.SetAttributes(
		attribute.String("resource_id", resource.ID),
		attribute.String("kind", string(resource.Kind)),
	)

	record := availability.NewRecord(resource.ID, resource.Name, date)

	adapter, ok := a.adapters[resource.Kind]
	if !ok {
		err := fmt.Errorf("no adapter registered for %q resources", resource.Kind)
		a.tel.ReportBroken(report_fetch_resource, err, resource.ID)
		span.SetStatus(codes.Error, err.Error())
		return record.WithPayload(emptyPayload(resource.Kind)).WithError(err)
	}

	start := time.Now()
	payload, err := adapter.Fetch(ctx, resource, date, w)
	elapsed := time.Since(start)

	if payload == nil {
		payload = emptyPayload(resource.Kind)
	}
	record = record.WithPayload(payload)
	if err != nil {
		a.tel.ReportBroken(report_fetch_resource, err, resource.ID)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		record = record.WithError(err)
	}

	outcome := metric.WithAttributes(
		attribute.String("kind", string(resource.Kind)),
		attribute.String("status", string(record.Status)),
	)
	a.fetchCounter.Add(ctx, 1, outcome)
	a.fetchDuration.Record(ctx, elapsed.Seconds(), outcome)

	return record
}
