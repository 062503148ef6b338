package buzz

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"studiocheck/internal/availability"
	"studiocheck/internal/components/chrono"
	"studiocheck/internal/components/telemetry"
	"studiocheck/internal/registry"
	"studiocheck/internal/window"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFetchDay(t *testing.T) {
	var requestedPath, userAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestedPath = r.URL.Path
		userAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(dayPage))
	}))
	defer server.Close()

	tel := &telemetry.RecorderAPI{}
	client, err := NewClient(Options{}, tel)
	require.NoError(t, err)

	date, err := chrono.ParseDate("2026-01-20")
	require.NoError(t, err)

	resource := registry.Resource{ID: "fukuokahonten", URL: server.URL + "/fukuokahonten"}
	payload, err := client.Fetch(context.Background(), resource, date, window.Full())
	require.NoError(t, err)

	require.Equal(t, "/fukuokahonten/2026-01-20", requestedPath)
	require.True(t, strings.Contains(userAgent, "Chrome"), userAgent)

	table, ok := payload.(availability.TablePayload)
	require.True(t, ok)
	require.Len(t, table.TimeSlots, 2)
	require.Equal(t, "09:00", table.TimeSlots[0].Time)
	require.True(t, table.TimeSlots[0].Studios[0].IsAvailable)
	require.Empty(t, tel.Reports(slog.LevelWarn))
}

func TestFetchDayStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	tel := &telemetry.RecorderAPI{}
	client, err := NewClient(Options{}, tel)
	require.NoError(t, err)

	date, err := chrono.ParseDate("2026-01-20")
	require.NoError(t, err)

	_, err = client.FetchDay(context.Background(), registry.Resource{ID: "fukuokatenjin", URL: server.URL}, date)
	require.True(t, errors.Is(err, availability.ErrFetch))
	require.Equal(t, "fetch failed: HTTP error! status: 503", err.Error())

	broken := tel.Reports(slog.LevelError)
	require.Len(t, broken, 1)
	require.Equal(t, "buzz_scraper: client.fetch-day", broken[0].ID)
}
