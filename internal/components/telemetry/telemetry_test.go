package telemetry

import (
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

func TestScopedAPI(t *testing.T) {
	recorder := &RecorderAPI{}
	scoped := NewScopedAPI("buzz_scraper", recorder)

	scoped.ReportBroken("client.fetch-day", errors.New("boom"))
	scoped.ReportWarning("parser.parse-table", "no rows")
	scoped.ReportDebug("fetching", "fukuokahonten")

	broken := recorder.Reports(slog.LevelError)
	require.Len(t, broken, 1)
	require.Equal(t, "buzz_scraper: client.fetch-day", broken[0].ID)

	warnings := recorder.Reports(slog.LevelWarn)
	require.Len(t, warnings, 2)
	require.Equal(t, "buzz_scraper: parser.parse-table", warnings[1].ID)

	require.Len(t, recorder.Reports(slog.LevelDebug), 3)
}

func TestInstrumentResty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	recorder := &RecorderAPI{}
	client := resty.New()
	InstrumentResty(client, recorder)

	_, err := client.R().Get(server.URL)
	if err != nil {
		t.Fatal(err)
	}

	debug := recorder.Reports(slog.LevelDebug)
	require.Len(t, debug, 2)
	require.Equal(t, report_resty_request, debug[0].ID)
	require.Equal(t, report_resty_response, debug[1].ID)
	require.Empty(t, recorder.Reports(slog.LevelError))
}
