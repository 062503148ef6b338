package commands

import (
	"fmt"
	"log/slog"
	"os"
	"studiocheck/internal/delegate"
	"studiocheck/internal/scrapers/civichall"
	"studiocheck/internal/scrapers/crea"
)

const (
	strategyDelegate = "delegate"
	strategyForm     = "form"
	strategyAPI      = "api"
	strategyBrowser  = "browser"
)

func newDelegate() delegate.Client {
	return delegate.NewClient(delegate.Options{
		BaseURL: delegateURL,
		Output:  restyOutput("delegate"),
	}, tel())
}

func newRoomFetcher(strategy string, showBrowser bool) (civichall.RoomFetcher, func(), error) {
	switch strategy {
	case strategyDelegate:
		return newDelegate(), func() {}, nil
	case strategyForm:
		client, err := civichall.NewFormClient(civichall.FormOptions{
			Output: restyOutput("civichall"),
		}, tel())
		return client, func() {}, err
	case strategyBrowser:
		client := civichall.NewBrowserClient(civichall.BrowserOptions{
			ShowBrowser: showBrowser,
		}, tel())
		return client, client.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown civic hall strategy %q (delegate, form or browser)", strategy)
}

func newStudioFetcher(strategy, authFile string, showBrowser bool) (crea.StudioFetcher, func(), error) {
	switch strategy {
	case strategyDelegate:
		return newDelegate(), func() {}, nil
	case strategyAPI:
		client, err := crea.NewAPIClient(crea.APIOptions{
			Output: restyOutput("crea"),
		}, tel())
		return client, func() {}, err
	case strategyBrowser:
		auth := crea.NewAuthStore(crea.AuthOptions{
			JSON: os.Getenv("CREA_AUTH_JSON"),
			File: authFile,
		}, tel())
		err := auth.Reload()
		if err != nil {
			slog.Warn("crea session state unavailable, crea studios will report auth_unavailable", "err", err)
		}
		client := crea.NewBrowserClient(crea.BrowserOptions{
			ShowBrowser: showBrowser,
		}, auth, tel())
		return client, client.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown crea strategy %q (delegate, api or browser)", strategy)
}
