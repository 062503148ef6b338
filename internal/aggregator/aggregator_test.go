package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"studiocheck/internal/availability"
	"studiocheck/internal/components/chrono"
	"studiocheck/internal/components/telemetry"
	"studiocheck/internal/registry"
	"studiocheck/internal/window"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

type adapterFunc func(ctx context.Context, resource registry.Resource, date time.Time, w window.Window) (availability.Payload, error)

func (f adapterFunc) Fetch(ctx context.Context, resource registry.Resource, date time.Time, w window.Window) (availability.Payload, error) {
	return f(ctx, resource, date, w)
}

func mustDate(t *testing.T, value string) time.Time {
	date, err := chrono.ParseDate(value)
	require.NoError(t, err)
	return date
}

func tableAdapter(fail map[string]error) adapterFunc {
	return func(ctx context.Context, resource registry.Resource, date time.Time, w window.Window) (availability.Payload, error) {
		if err, ok := fail[resource.ID]; ok {
			return nil, err
		}
		return availability.TablePayload{TimeSlots: []availability.TimeSlot{
			{Time: "09:00", Studios: []availability.SubUnit{{StudioNumber: 1, IsAvailable: true}}},
			{Time: "10:00", Studios: []availability.SubUnit{{StudioNumber: 1}}},
		}}, nil
	}
}

func newAggregator(t *testing.T, tel telemetry.API, adapters map[availability.PayloadKind]Adapter) Aggregator {
	agg, err := New(Options{Parallelism: 3, Adapters: adapters}, tel)
	require.NoError(t, err)
	return agg
}

func resultIDs(res Response) []string {
	ids := make([]string, len(res.Results))
	for i, record := range res.Results {
		ids[i] = record.ResourceID
	}
	return ids
}

func TestSplitIDs(t *testing.T) {
	require.Equal(t, []string{"a", "b", "a"}, SplitIDs(" a,,b , a,"))
	require.Empty(t, SplitIDs(" , "))
}

func TestParseRequest(t *testing.T) {
	req, err := ParseRequest("fukuokahonten, crea-daimyo", "2026-01-20", "18:00,22:00")
	require.NoError(t, err)
	require.Equal(t, []string{"fukuokahonten", "crea-daimyo"}, req.ResourceIDs)
	require.Equal(t, "2026-01-20", chrono.FormatDate(req.Date))
	require.Equal(t, window.Window{Start: 18 * 60, End: 22 * 60}, req.Window)

	invalid := [][3]string{
		{"", "2026-01-20", ""},
		{"fukuokahonten", "", ""},
		{"fukuokahonten", "2026-02-30", ""},
		{"fukuokahonten", "2026-01-20", "22:00,18:00"},
	}
	for _, params := range invalid {
		_, err := ParseRequest(params[0], params[1], params[2])
		require.ErrorIs(t, err, availability.ErrInvalidRequest, params)
	}
}

func TestHandleKeepsOrderAndDuplicates(t *testing.T) {
	agg := newAggregator(t, &telemetry.RecorderAPI{}, map[availability.PayloadKind]Adapter{
		availability.PayloadTable: tableAdapter(nil),
	})

	ids := []string{"fukuokahakata", " fukuokahonten ", "", "fukuokahakata", "fukuokatenjin"}
	res, err := agg.Handle(context.Background(), Request{ResourceIDs: ids, Date: mustDate(t, "2026-01-20")})
	require.NoError(t, err)

	require.Equal(t, []string{"fukuokahakata", "fukuokahonten", "fukuokahakata", "fukuokatenjin"}, resultIDs(res))
	require.Equal(t, "2026-01-20", res.Date)
	require.Equal(t, "火", res.DayOfWeek)
	require.Equal(t, window.Full(), res.Window)
	require.Len(t, res.ResourceCatalog, 12)
	for _, record := range res.Results {
		require.Equal(t, availability.StatusOK, record.Status)
	}
}

func TestHandleWindowWithoutSlots(t *testing.T) {
	agg := newAggregator(t, &telemetry.RecorderAPI{}, map[availability.PayloadKind]Adapter{
		availability.PayloadTable: tableAdapter(nil),
	})

	res, err := agg.Handle(context.Background(), Request{
		ResourceIDs: []string{"fukuokahonten"},
		Date:        mustDate(t, "2026-01-20"),
		Window:      window.Window{Start: 23 * 60, End: 24 * 60},
	})
	require.NoError(t, err)

	record := res.Results[0]
	require.Equal(t, availability.StatusNoSlots, record.Status)
	require.Empty(t, record.Error)
	require.True(t, record.Payload.Empty())
}

func TestHandleStartsEveryResourceAtOnce(t *testing.T) {
	ids := []string{
		"fukuokahonten", "fukuokatenjin", "fukuokatenjin2nd", "fukuokahakata",
		"fukuokahakataekimae", "fukuokahonten", "fukuokatenjin", "fukuokahakata",
	}

	var started sync.WaitGroup
	started.Add(len(ids))
	allStarted := make(chan struct{})
	go func() {
		started.Wait()
		close(allStarted)
	}()

	barrier := adapterFunc(func(ctx context.Context, resource registry.Resource, date time.Time, w window.Window) (availability.Payload, error) {
		started.Done()
		select {
		case <-allStarted:
		case <-time.After(2 * time.Second):
			return nil, fmt.Errorf("%w: not every fetch was started", availability.ErrFetch)
		}
		return tableAdapter(nil)(ctx, resource, date, w)
	})

	agg, err := New(Options{Adapters: map[availability.PayloadKind]Adapter{
		availability.PayloadTable: barrier,
	}}, &telemetry.RecorderAPI{})
	require.NoError(t, err)

	res, err := agg.Handle(context.Background(), Request{ResourceIDs: ids, Date: mustDate(t, "2026-01-20")})
	require.NoError(t, err)
	require.Len(t, res.Results, len(ids))
	for _, record := range res.Results {
		require.Equal(t, availability.StatusOK, record.Status, record.Error)
	}
}

func TestHandleUnknownResource(t *testing.T) {
	tel := &telemetry.RecorderAPI{}
	agg := newAggregator(t, tel, nil)

	res, err := agg.Handle(context.Background(), Request{
		ResourceIDs: []string{"fukuokahonte"},
		Date:        mustDate(t, "2026-01-20"),
	})
	require.NoError(t, err)
	require.Len(t, res.Results, 1)

	record := res.Results[0]
	require.Equal(t, "fukuokahonte", record.ResourceID)
	require.Equal(t, "不明", record.ResourceName)
	require.Equal(t, "スタジオが見つかりません", record.Error)
	require.Equal(t, availability.KindUnknownResource, record.ErrorKind)
	require.Equal(t, availability.StatusError, record.Status)
	require.Equal(t, "fukuokahonten", record.Suggestion)
	require.Equal(t, availability.PayloadUnknown, record.Kind())

	data, err := json.Marshal(record)
	require.NoError(t, err)
	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	require.Equal(t, "unknown_resource", fields["errorKind"])
	require.Equal(t, "unknown", fields["kind"])
}

func TestHandleIsolatesFailures(t *testing.T) {
	tel := &telemetry.RecorderAPI{}
	agg := newAggregator(t, tel, map[availability.PayloadKind]Adapter{
		availability.PayloadTable: tableAdapter(map[string]error{
			"fukuokahakata": fmt.Errorf("%w: HTTP error! status: 503", availability.ErrFetch),
		}),
	})

	ids := registry.IDs()[:5]
	res, err := agg.Handle(context.Background(), Request{ResourceIDs: ids, Date: mustDate(t, "2026-01-20")})
	require.NoError(t, err)
	require.Equal(t, ids, resultIDs(res))

	failed := 0
	for _, record := range res.Results {
		if record.ResourceID != "fukuokahakata" {
			require.Equal(t, availability.StatusOK, record.Status, record.ResourceID)
			continue
		}
		failed++
		require.Equal(t, availability.StatusError, record.Status)
		require.Equal(t, availability.KindFetchError, record.ErrorKind)
		require.Equal(t, "fetch failed: HTTP error! status: 503", record.Error)
		require.Equal(t, availability.PayloadTable, record.Kind())
	}
	require.Equal(t, 1, failed)

	broken := tel.Reports(slog.LevelError)
	require.Len(t, broken, 1)
	require.Equal(t, "aggregator: aggregator.fetch-resource", broken[0].ID)
}

func TestHandleRecoversPanics(t *testing.T) {
	agg := newAggregator(t, &telemetry.RecorderAPI{}, map[availability.PayloadKind]Adapter{
		availability.PayloadTable: adapterFunc(func(ctx context.Context, resource registry.Resource, date time.Time, w window.Window) (availability.Payload, error) {
			if resource.ID == "fukuokatenjin" {
				panic("selector exploded")
			}
			return availability.TablePayload{}, nil
		}),
	})

	res, err := agg.Handle(context.Background(), Request{
		ResourceIDs: []string{"fukuokahonten", "fukuokatenjin"},
		Date:        mustDate(t, "2026-01-20"),
	})
	require.NoError(t, err)

	require.Equal(t, availability.StatusNoSlots, res.Results[0].Status)
	require.Equal(t, availability.StatusError, res.Results[1].Status)
	require.Equal(t, availability.KindInternal, res.Results[1].ErrorKind)
	require.Equal(t, "BUZZ福岡天神", res.Results[1].ResourceName)
}

func TestHandleRejectsInvalidRequests(t *testing.T) {
	var calls atomic.Int32
	agg := newAggregator(t, &telemetry.RecorderAPI{}, map[availability.PayloadKind]Adapter{
		availability.PayloadTable: adapterFunc(func(ctx context.Context, resource registry.Resource, date time.Time, w window.Window) (availability.Payload, error) {
			calls.Add(1)
			return availability.TablePayload{}, nil
		}),
	})

	requests := []Request{
		{Date: mustDate(t, "2026-01-20")},
		{ResourceIDs: []string{" ", ","}, Date: mustDate(t, "2026-01-20")},
		{ResourceIDs: []string{"fukuokahonten"}},
		{ResourceIDs: []string{"fukuokahonten"}, Date: mustDate(t, "2026-01-20"), Window: window.Window{Start: 600, End: 600}},
	}
	for _, req := range requests {
		_, err := agg.Handle(context.Background(), req)
		require.ErrorIs(t, err, availability.ErrInvalidRequest)
		require.Equal(t, availability.KindInvalidRequest, availability.Classify(err))
	}
	require.Zero(t, calls.Load())
}

func TestHandleMixedRequest(t *testing.T) {
	date := mustDate(t, "2026-01-20")
	w := window.Window{Start: 10 * 60, End: 22 * 60}

	var seen atomic.Value
	agg := newAggregator(t, &telemetry.RecorderAPI{}, map[availability.PayloadKind]Adapter{
		availability.PayloadTable: tableAdapter(nil),
		availability.PayloadRange: adapterFunc(func(ctx context.Context, resource registry.Resource, date time.Time, w window.Window) (availability.Payload, error) {
			return availability.RangePayload{Rooms: []availability.Room{{
				RoomName: "リハーサル室",
				Slots: []availability.RangeSlot{
					{Status: "○", State: availability.StateAvailable, Date: "2026/01/20", SlotID: "0", TimeRange: "9:00-12:30"},
					{Status: "×", State: availability.StateReserved, Date: "2026/01/20", SlotID: "1", TimeRange: "13:00-15:30"},
				},
			}}}, nil
		}),
		availability.PayloadPriced: adapterFunc(func(ctx context.Context, resource registry.Resource, date time.Time, w window.Window) (availability.Payload, error) {
			seen.Store(w)
			return availability.PricedPayload{Studios: []availability.Studio{{
				StudioID:   resource.SubID,
				StudioName: resource.Name,
				Error:      "page timed out",
				Slots: []availability.PricedSlot{{
					SlotType:  "morning",
					SlotName:  "朝活",
					Price:     500,
					TimeSlots: []availability.Entry{{Time: "06:00", Available: true}},
				}},
			}}}, fmt.Errorf("%w: page timed out", availability.ErrFetch)
		}),
	})

	res, err := agg.Handle(context.Background(), Request{
		ResourceIDs: []string{"fukuokahonten", "civichall-rehearsal", "doesnotexist", "crea-daimyo"},
		Date:        date,
		Window:      w,
	})
	require.NoError(t, err)
	require.Equal(t, []string{"fukuokahonten", "civichall-rehearsal", "doesnotexist", "crea-daimyo"}, resultIDs(res))
	require.Equal(t, w, seen.Load())

	table := res.Results[0].Payload.(availability.TablePayload)
	expectedTable := []availability.TimeSlot{{Time: "10:00", Studios: []availability.SubUnit{{StudioNumber: 1}}}}
	if diff := cmp.Diff(expectedTable, table.TimeSlots); diff != "" {
		t.Fatalf("table slots (-want +got):\n%s", diff)
	}

	rooms := res.Results[1].Payload.(availability.RangePayload)
	require.Len(t, rooms.Rooms[0].Slots, 2)
	require.Equal(t, availability.StatusOK, res.Results[1].Status)

	require.Equal(t, availability.KindUnknownResource, res.Results[2].ErrorKind)

	crea := res.Results[3]
	require.Equal(t, availability.StatusError, crea.Status)
	require.Equal(t, availability.KindFetchError, crea.ErrorKind)
	studios := crea.Payload.(availability.PricedPayload)
	require.Len(t, studios.Studios, 1)
	require.Empty(t, studios.Studios[0].Slots[0].TimeSlots)
}
