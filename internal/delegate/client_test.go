package delegate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"studiocheck/internal/availability"
	"studiocheck/internal/components/chrono"
	"studiocheck/internal/components/telemetry"
	"studiocheck/internal/window"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func mustDate(t *testing.T, value string) time.Time {
	date, err := chrono.ParseDate(value)
	require.NoError(t, err)
	return date
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func TestFetchRooms(t *testing.T) {
	var path string
	var query url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		query = r.URL.Query()
		writeJSON(w, http.StatusOK, ScrapeResponse{
			Success:    true,
			StudioID:   "fukuokacivichall",
			StudioName: "福岡市民会館",
			Date:       "2026-01-20",
			DayOfWeek:  "火",
			Rooms: []availability.Room{{
				RoomName: "リハーサル室",
				Slots: []availability.RangeSlot{
					{Status: "○", State: availability.StateAvailable, Date: "2026/01/20", SlotID: "0", TimeRange: "9:00-12:30"},
				},
			}},
		})
	}))
	defer server.Close()

	client := NewClient(Options{BaseURL: server.URL}, &telemetry.RecorderAPI{})
	rooms, err := client.FetchRooms(context.Background(), mustDate(t, "2026-01-20"), []string{"rehearsal", "practice1"})
	require.NoError(t, err)

	require.Equal(t, "/scrape/civic-hall", path)
	require.Equal(t, "2026-01-20", query.Get("date"))
	require.Equal(t, "rehearsal,practice1", query.Get("ids"))
	require.False(t, query.Has("window"))
	require.Len(t, rooms, 1)
	require.Equal(t, availability.StateAvailable, rooms[0].Slots[0].State)
}

func TestFetchStudiosSendsWindow(t *testing.T) {
	var query url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		writeJSON(w, http.StatusOK, ScrapeResponse{Success: true})
	}))
	defer server.Close()

	client := NewClient(Options{BaseURL: server.URL + "/"}, &telemetry.RecorderAPI{})
	studios, err := client.FetchStudios(
		context.Background(),
		mustDate(t, "2026-01-20"),
		[]string{"crea-daimyo"},
		window.Window{Start: 18 * 60, End: 22 * 60},
	)
	require.NoError(t, err)
	require.NotNil(t, studios)
	require.Empty(t, studios)
	require.Equal(t, "18:00,22:00", query.Get("window"))
	require.Equal(t, "crea-daimyo", query.Get("ids"))
}

func TestScrapeErrors(t *testing.T) {
	cases := []struct {
		name     string
		handler  http.HandlerFunc
		sentinel error
		message  string
	}{
		{
			name: "failure body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusInternalServerError, ScrapeResponse{Error: "browser crashed"})
			},
			sentinel: availability.ErrFetch,
			message:  "fetch failed: browser crashed",
		},
		{
			name: "classified failure",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusInternalServerError, ScrapeResponse{
					Error:     "could not navigate to 2026-12-31 within 60 steps",
					ErrorKind: availability.KindNavigationTimeout,
				})
			},
			sentinel: availability.ErrNavigationTimeout,
		},
		{
			name: "html error page",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
				w.Write([]byte("<html>Bad Gateway</html>"))
			},
			sentinel: availability.ErrFetch,
			message:  "fetch failed: HTTP error! status: 502",
		},
	}

	for _, test := range cases {
		server := httptest.NewServer(test.handler)
		client := NewClient(Options{BaseURL: server.URL}, &telemetry.RecorderAPI{})

		_, err := client.FetchRooms(context.Background(), mustDate(t, "2026-01-20"), nil)
		server.Close()

		require.True(t, errors.Is(err, test.sentinel), test.name)
		if test.message != "" {
			require.Equal(t, test.message, err.Error(), test.name)
		}
	}
}

func TestScrapeTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := NewClient(Options{BaseURL: server.URL, Timeout: 50 * time.Millisecond}, &telemetry.RecorderAPI{})
	_, err := client.FetchStudios(context.Background(), mustDate(t, "2026-01-20"), nil, window.Full())
	require.True(t, errors.Is(err, availability.ErrDelegateTimeout), err)
	require.Equal(t, availability.KindDelegateTimeout, availability.Classify(err))
}

func TestHealth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/health", r.URL.Path)
		writeJSON(w, http.StatusOK, Health{
			Status:               "ok",
			Service:              ServiceName,
			AvailableCreaStudios: []string{"crea-daimyo"},
		})
	}))
	defer server.Close()

	client := NewClient(Options{BaseURL: server.URL}, &telemetry.RecorderAPI{})
	health, err := client.Health(context.Background())
	require.NoError(t, err)
	require.Equal(t, "ok", health.Status)
	require.Equal(t, ServiceName, health.Service)
	require.Equal(t, []string{"crea-daimyo"}, health.AvailableCreaStudios)
}
