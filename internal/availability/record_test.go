package availability

import (
	"encoding/json"
	"errors"
	"fmt"
	"studiocheck/internal/components/chrono"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		err      error
		expected ErrorKind
	}{
		{err: nil, expected: KindNone},
		{err: fmt.Errorf("%w: status 503", ErrFetch), expected: KindFetchError},
		{err: fmt.Errorf("parse: %w", ErrParse), expected: KindParseError},
		{err: fmt.Errorf("%w: %w", ErrDelegateTimeout, ErrFetch), expected: KindDelegateTimeout},
		{err: ErrNavigationTimeout, expected: KindNavigationTimeout},
		{err: ErrAuthUnavailable, expected: KindAuthUnavailable},
		{err: ErrUnknownResource, expected: KindUnknownResource},
		{err: ErrInvalidRequest, expected: KindInvalidRequest},
		{err: errors.New("something else"), expected: KindInternal},
	}

	for _, test := range cases {
		require.Equal(t, test.expected, Classify(test.err))
		if test.expected != KindNone && test.expected != KindInternal {
			require.ErrorIs(t, test.err, Sentinel(test.expected))
		}
	}
}

func TestRecordStatus(t *testing.T) {
	date, err := chrono.ParseDate("2026-01-20")
	if err != nil {
		t.Fatal(err)
	}

	base := NewRecord("fukuokahonten", "BUZZ福岡本店", date)
	require.Equal(t, "2026-01-20", base.Date)
	require.Equal(t, "火", base.DayOfWeek)
	require.Equal(t, PayloadUnknown, base.Kind())

	empty := base.WithPayload(TablePayload{})
	require.Equal(t, StatusNoSlots, empty.Status)
	require.Equal(t, PayloadTable, empty.Kind())

	filled := base.WithPayload(TablePayload{TimeSlots: []TimeSlot{{Time: "09:00"}}})
	require.Equal(t, StatusOK, filled.Status)

	failed := filled.WithError(fmt.Errorf("%w: status 500", ErrFetch))
	require.Equal(t, StatusError, failed.Status)
	require.Equal(t, KindFetchError, failed.ErrorKind)
	require.NotNil(t, failed.Payload)
}

func TestRecordJSON(t *testing.T) {
	date, err := chrono.ParseDate("2026-01-20")
	if err != nil {
		t.Fatal(err)
	}

	records := []Record{
		NewRecord("fukuokahonten", "BUZZ福岡本店", date).WithPayload(TablePayload{
			TimeSlots: []TimeSlot{{Time: "09:00", Studios: []SubUnit{{StudioNumber: 1, IsAvailable: true}}}},
		}),
		NewRecord("civichall-rehearsal", "福岡市民会館 リハーサル室", date).WithPayload(RangePayload{
			Rooms: []Room{{RoomName: "リハーサル室", Slots: []RangeSlot{{
				Status: "○", State: StateAvailable, Date: "2026/01/20", SlotID: "0", TimeRange: "9:00-12:30",
			}}}},
		}),
		NewRecord("crea-daimyo", "CREA大名", date).WithPayload(PricedPayload{
			Studios: []Studio{{StudioID: "crea-daimyo", Slots: []PricedSlot{{
				SlotType: "morning", SlotName: "朝活", Price: 500, TimeSlots: []Entry{{Time: "06:00", Available: true}},
			}}}},
		}),
	}

	for _, record := range records {
		data, err := json.Marshal(record)
		if err != nil {
			t.Fatal(err)
		}
		var decoded Record
		err = json.Unmarshal(data, &decoded)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(record, decoded); diff != "" {
			t.Fatalf("record changed after json (-want +got):\n%s", diff)
		}
	}
}

func TestRecordJSONShape(t *testing.T) {
	date, _ := chrono.ParseDate("2026-01-20")

	unknown := NewRecord("doesnotexist", UnknownResourceName, date).
		WithError(fmt.Errorf("%w: %s", ErrUnknownResource, UnknownResourceError))
	data, err := json.Marshal(unknown)
	if err != nil {
		t.Fatal(err)
	}

	var fields map[string]any
	err = json.Unmarshal(data, &fields)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, "unknown", fields["kind"])
	require.Equal(t, "不明", fields["resourceName"])
	require.Equal(t, "unknown_resource", fields["errorKind"])
	require.NotContains(t, fields, "timeSlots")

	empty := NewRecord("fukuokahonten", "BUZZ福岡本店", date).WithPayload(TablePayload{})
	data, err = json.Marshal(empty)
	if err != nil {
		t.Fatal(err)
	}
	require.Contains(t, string(data), `"timeSlots":[]`)
	require.Contains(t, string(data), `"status":"no_slots"`)
}
