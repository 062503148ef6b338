package crea

import (
	"context"
	"fmt"
	"studiocheck/internal/availability"
	"studiocheck/internal/registry"
	"studiocheck/internal/window"
	"time"
)

// StudioFetcher is implemented by both APIClient and BrowserClient.
type StudioFetcher interface {
	FetchStudios(ctx context.Context, date time.Time, ids []string, w window.Window) ([]availability.Studio, error)
}

// Adapter serves one CREA studio per resource.
type Adapter struct {
	fetcher StudioFetcher
}

func NewAdapter(fetcher StudioFetcher) Adapter {
	return Adapter{fetcher: fetcher}
}

// Fetch returns the studio's slots. A studio level error is returned alongside
// whatever slots could still be read.
func (a Adapter) Fetch(ctx context.Context, resource registry.Resource, date time.Time, w window.Window) (availability.Payload, error) {
	studios, err := a.fetcher.FetchStudios(ctx, date, []string{resource.SubID}, w)
	if err != nil {
		return nil, err
	}
	payload := availability.PricedPayload{Studios: studios}
	for _, studio := range studios {
		if studio.Error != "" {
			return payload, fmt.Errorf("%w: %s", availability.ErrFetch, studio.Error)
		}
	}
	return payload, nil
}
