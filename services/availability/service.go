package availability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"studiocheck/internal/aggregator"
	avail "studiocheck/internal/availability"
	"studiocheck/internal/components/assert"
	"studiocheck/internal/components/chrono"
	"studiocheck/internal/components/telemetry"
	"studiocheck/internal/registry"
	"studiocheck/lib/httputil"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("studiocheck/services/availability")

const ServiceName = "studio-check"

const (
	report_get_availability = "service.get-availability"
)

const (
	msgMissingParams = "%s と date パラメータが必要です"
	msgNoResources   = "少なくとも1つのスタジオを指定してください"
	msgFailed        = "スクレイピングに失敗しました"
)

// Aggregator is implemented by aggregator.Aggregator.
type Aggregator interface {
	Handle(ctx context.Context, req aggregator.Request) (aggregator.Response, error)
}

type Service struct {
	aggregator Aggregator
	clock      chrono.API
	tel        telemetry.API
}

func NewService(agg Aggregator, clock chrono.API, tel telemetry.API) Service {
	assert.NotNil(agg)
	assert.NotNil(clock)
	assert.NotNil(tel)
	return Service{
		aggregator: agg,
		clock:      clock,
		tel:        telemetry.NewScopedAPI("availability_service", tel),
	}
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
}

type CatalogResponse struct {
	Resources []registry.CatalogEntry `json:"resources"`
}

// Router registers every route of the service, the returned handler is not wrapped
// with any middleware.
func (s Service) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/availability", s.availability("resources")).Methods(http.MethodGet)
	r.HandleFunc("/api/availability", s.availability("studios")).Methods(http.MethodGet)
	r.HandleFunc("/catalog", s.catalog).Methods(http.MethodGet)
	r.HandleFunc("/health", s.health).Methods(http.MethodGet)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteError(w, http.StatusNotFound, "Not Found")
	})
	return r
}

func (s Service) availability(idsParam string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "service:availability")
		defer span.End()

		query := r.URL.Query()
		ids := query.Get(idsParam)
		date := query.Get("date")
		if ids == "" || date == "" {
			httputil.WriteError(w, http.StatusBadRequest, fmt.Sprintf(msgMissingParams, idsParam))
			return
		}
		if len(aggregator.SplitIDs(ids)) == 0 {
			httputil.WriteError(w, http.StatusBadRequest, msgNoResources)
			return
		}

		req, err := aggregator.ParseRequest(ids, date, query.Get("window"))
		if err != nil {
			httputil.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		span.SetAttributes(attribute.Int("resource_count", len(req.ResourceIDs)))

		res, err := s.aggregator.Handle(ctx, req)
		if errors.Is(err, avail.ErrInvalidRequest) {
			httputil.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err != nil {
			s.tel.ReportBroken(report_get_availability, err, ids, date)
			span.RecordError(err)
			span.SetStatus(codes.Error, "aggregation failed")
			httputil.WriteError(w, http.StatusInternalServerError, msgFailed)
			return
		}

		httputil.WriteJSON(w, http.StatusOK, res)
	}
}

func (s Service) catalog(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, CatalogResponse{Resources: registry.Catalog()})
}

func (s Service) health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: s.clock.Now(),
		Service:   ServiceName,
	})
}
