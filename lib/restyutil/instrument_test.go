package restyutil

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

func TestInstrumentClientDumpsExchanges(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("空き"))
	}))
	defer server.Close()

	dir := filepath.Join(t.TempDir(), "dumps")
	output, err := NewFilesystemOutput(dir)
	require.NoError(t, err)

	client := resty.New().SetBaseURL(server.URL)
	InstrumentClient(client, nil, output)

	res, err := client.R().
		SetFormData(map[string]string{"date": "2026-01-20"}).
		Post("/search")
	require.NoError(t, err)
	require.Equal(t, "空き", res.String())

	contents, err := os.ReadFile(filepath.Join(dir, "1.txt"))
	require.NoError(t, err)
	dump := string(contents)
	require.True(t, strings.Contains(dump, "---- REQUEST ----"))
	require.True(t, strings.Contains(dump, "date=2026-01-20"))
	require.True(t, strings.Contains(dump, "200"))
	require.True(t, strings.Contains(dump, "空き"))
}

func TestInstrumentClientWithoutOutput(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := resty.New().SetBaseURL(server.URL)
	InstrumentClient(client, nil, nil)

	res, err := client.R().Get("/missing")
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, res.StatusCode())
}
