package civichall

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"studiocheck/internal/availability"
	"studiocheck/internal/components/chrono"
	"studiocheck/internal/components/telemetry"
	"studiocheck/internal/registry"
	"studiocheck/internal/window"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFormClientPostsSearchForm(t *testing.T) {
	var form map[string]string
	var method, path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		path = r.URL.Path
		require.NoError(t, r.ParseForm())
		form = map[string]string{}
		for key := range r.PostForm {
			form[key] = r.PostForm.Get(key)
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(facilityPage))
	}))
	defer server.Close()

	client, err := NewFormClient(FormOptions{BaseURL: server.URL}, &telemetry.RecorderAPI{})
	require.NoError(t, err)

	date, err := chrono.ParseDate("2026-02-05")
	require.NoError(t, err)

	rooms, err := client.FetchRooms(context.Background(), date, nil)
	require.NoError(t, err)
	require.Len(t, rooms, 2)

	rooms, err = client.FetchRooms(context.Background(), date, []string{"rehearsal"})
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	require.Equal(t, "リハーサル室", rooms[0].RoomName)

	require.Equal(t, http.MethodPost, method)
	require.Equal(t, "/index.php", path)
	require.Equal(t, map[string]string{
		"op":           "srch_sst",
		"UseYM":        "202602",
		"UseDay":       "5",
		"UseDate":      "20260205",
		"ShisetsuCode": "001",
	}, form)
}

func TestFormClientStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	tel := &telemetry.RecorderAPI{}
	client, err := NewFormClient(FormOptions{BaseURL: server.URL}, tel)
	require.NoError(t, err)

	date, err := chrono.ParseDate("2026-02-05")
	require.NoError(t, err)

	_, err = client.FetchRooms(context.Background(), date, nil)
	require.True(t, errors.Is(err, availability.ErrFetch))
	require.Len(t, tel.Reports(slog.LevelError), 1)
}

type staticFetcher struct {
	rooms []availability.Room
	err   error
}

func (f staticFetcher) FetchRooms(context.Context, time.Time, []string) ([]availability.Room, error) {
	return f.rooms, f.err
}

func TestAdapterKeepsOnlyTheResourceRoom(t *testing.T) {
	adapter := NewAdapter(staticFetcher{rooms: []availability.Room{
		{RoomName: "リハーサル室"},
		{RoomName: "練習室①"},
	}})
	resource, ok := registry.Lookup("civichall-practice1")
	require.True(t, ok)

	payload, err := adapter.Fetch(context.Background(), resource, time.Now(), window.Full())
	require.NoError(t, err)
	require.Equal(t, availability.RangePayload{Rooms: []availability.Room{{RoomName: "練習室①"}}}, payload)

	failing := NewAdapter(staticFetcher{err: availability.ErrParse})
	_, err = failing.Fetch(context.Background(), resource, time.Now(), window.Full())
	require.ErrorIs(t, err, availability.ErrParse)
}
