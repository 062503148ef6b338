package civichall

import (
	"context"
	"studiocheck/internal/availability"
	"studiocheck/internal/registry"
	"studiocheck/internal/window"
	"time"
)

// RoomFetcher is implemented by both FormClient and BrowserClient, they produce
// identical rooms for the same page. An empty ids list asks for every room.
type RoomFetcher interface {
	FetchRooms(ctx context.Context, date time.Time, ids []string) ([]availability.Room, error)
}

// Adapter serves one civic hall room per resource.
type Adapter struct {
	fetcher RoomFetcher
}

func NewAdapter(fetcher RoomFetcher) Adapter {
	return Adapter{fetcher: fetcher}
}

func (a Adapter) Fetch(ctx context.Context, resource registry.Resource, date time.Time, _ window.Window) (availability.Payload, error) {
	ids := []string{resource.SubID}
	rooms, err := a.fetcher.FetchRooms(ctx, date, ids)
	if err != nil {
		return nil, err
	}
	return availability.RangePayload{Rooms: FilterRooms(rooms, ids)}, nil
}
