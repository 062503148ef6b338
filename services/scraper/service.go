package scraper

import (
	"context"
	"net/http"
	"studiocheck/internal/availability"
	"studiocheck/internal/components/assert"
	"studiocheck/internal/components/chrono"
	"studiocheck/internal/components/telemetry"
	"studiocheck/internal/delegate"
	"studiocheck/internal/scrapers/civichall"
	"studiocheck/internal/scrapers/crea"
	"studiocheck/internal/window"
	"studiocheck/lib/httputil"
	"studiocheck/lib/textutil"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("studiocheck/services/scraper")

const (
	report_scrape_civic_hall = "service.scrape-civic-hall"
	report_scrape_crea       = "service.scrape-crea"
)

const (
	msgMissingDate = "date パラメータが必要です"
	msgNotFound    = "Not Found"
	msgFailed      = "スクレイピングに失敗しました"
)

type Options struct {
	Rooms   civichall.RoomFetcher
	Studios crea.StudioFetcher

	// RoomStrategy and StudioStrategy are reported by the health check.
	RoomStrategy   string
	StudioStrategy string
}

// Service runs the browser heavy scrapes on behalf of the availability service.
type Service struct {
	opts  Options
	clock chrono.API
	tel   telemetry.API
}

func NewService(opts Options, clock chrono.API, tel telemetry.API) Service {
	assert.NotNil(opts.Rooms)
	assert.NotNil(opts.Studios)
	assert.NotNil(clock)
	assert.NotNil(tel)
	return Service{
		opts:  opts,
		clock: clock,
		tel:   telemetry.NewScopedAPI("scraper_service", tel),
	}
}

func (s Service) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", s.health).Methods(http.MethodGet)
	r.HandleFunc("/health", s.health).Methods(http.MethodGet)

	r.HandleFunc("/scrape/{site}", s.scrape).Methods(http.MethodGet)
	r.HandleFunc("/api/scrape/civic-hall", s.legacy(delegate.SiteCivicHall, "rooms")).Methods(http.MethodGet)
	r.HandleFunc("/api/scrape/crea", s.legacy(delegate.SiteCrea, "studios")).Methods(http.MethodGet)

	notFound := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteError(w, http.StatusNotFound, msgNotFound)
	})
	r.NotFoundHandler = notFound
	r.MethodNotAllowedHandler = notFound
	return r
}

type scrapeParams struct {
	date   time.Time
	ids    []string
	window window.Window
}

func (s Service) scrape(w http.ResponseWriter, r *http.Request) {
	site := mux.Vars(r)["site"]
	if site != delegate.SiteCivicHall && site != delegate.SiteCrea {
		httputil.WriteError(w, http.StatusNotFound, msgNotFound)
		return
	}
	s.serve(w, r, site, r.URL.Query().Get("ids"))
}

func (s Service) legacy(site, idsParam string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		ids := query.Get(idsParam)
		if ids == "" {
			ids = query.Get("ids")
		}
		s.serve(w, r, site, ids)
	}
}

func (s Service) serve(w http.ResponseWriter, r *http.Request, site, ids string) {
	query := r.URL.Query()
	rawDate := query.Get("date")
	if rawDate == "" {
		httputil.WriteError(w, http.StatusBadRequest, msgMissingDate)
		return
	}
	date, err := chrono.ParseDate(rawDate)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	win, err := window.Parse(query.Get("window"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	params := scrapeParams{date: date, ids: textutil.SplitList(ids), window: win}
	switch site {
	case delegate.SiteCivicHall:
		s.scrapeCivicHall(r.Context(), w, params)
	case delegate.SiteCrea:
		s.scrapeCrea(r.Context(), w, params)
	}
}

func (s Service) fail(w http.ResponseWriter, id string, err error) {
	s.tel.ReportBroken(id, err)

	message := err.Error()
	if message == "" {
		message = msgFailed
	}
	httputil.WriteJSON(w, http.StatusInternalServerError, delegate.ScrapeResponse{
		Success:   false,
		Error:     message,
		ErrorKind: availability.Classify(err),
	})
}

func (s Service) scrapeCivicHall(ctx context.Context, w http.ResponseWriter, params scrapeParams) {
	ctx, span := tracer.Start(ctx, "service:scrape-civic-hall")
	defer span.End()
	span.SetAttributes(
		attribute.String("date", chrono.FormatDate(params.date)),
		attribute.StringSlice("ids", params.ids),
	)

	start := time.Now()
	rooms, err := s.opts.Rooms.FetchRooms(ctx, params.date, params.ids)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "civic hall scrape failed")
		s.fail(w, report_scrape_civic_hall, err)
		return
	}
	s.tel.ReportDebug("civic hall scraped", len(rooms), time.Since(start).String())
	if rooms == nil {
		rooms = []availability.Room{}
	}

	httputil.WriteJSON(w, http.StatusOK, delegate.ScrapeResponse{
		Success:    true,
		StudioID:   civichall.FacilityID,
		StudioName: civichall.FacilityName,
		Date:       chrono.FormatDate(params.date),
		DayOfWeek:  chrono.DayOfWeek(params.date),
		Rooms:      rooms,
	})
}

func (s Service) scrapeCrea(ctx context.Context, w http.ResponseWriter, params scrapeParams) {
	ctx, span := tracer.Start(ctx, "service:scrape-crea")
	defer span.End()
	span.SetAttributes(
		attribute.String("date", chrono.FormatDate(params.date)),
		attribute.StringSlice("ids", params.ids),
		attribute.String("window", params.window.String()),
	)

	start := time.Now()
	studios, err := s.opts.Studios.FetchStudios(ctx, params.date, params.ids, params.window)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "crea scrape failed")
		s.fail(w, report_scrape_crea, err)
		return
	}
	s.tel.ReportDebug("crea scraped", len(studios), time.Since(start).String())
	if studios == nil {
		studios = []availability.Studio{}
	}

	httputil.WriteJSON(w, http.StatusOK, delegate.ScrapeResponse{
		Success:    true,
		StudioID:   delegate.SiteCrea,
		StudioName: crea.MerchantName,
		Date:       chrono.FormatDate(params.date),
		DayOfWeek:  chrono.DayOfWeek(params.date),
		Studios:    studios,
	})
}

func (s Service) health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, delegate.Health{
		Status:                  "ok",
		Timestamp:               s.clock.Now(),
		Service:                 delegate.ServiceName,
		AvailableCreaStudios:    crea.StudioIDs(),
		AvailableCivicHallRooms: civichall.RoomIDs(),
		CreaStrategy:            s.opts.StudioStrategy,
		CivicHallStrategy:       s.opts.RoomStrategy,
	})
}
