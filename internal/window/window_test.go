package window

import (
	"studiocheck/internal/availability"
	"studiocheck/internal/components/chrono"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	cases := []struct {
		input    string
		expected Window
		fails    bool
	}{
		{input: "", expected: Full()},
		{input: "10:00,22:00", expected: Window{Start: 600, End: 1320}},
		{input: "9:30, 12:00", expected: Window{Start: 570, End: 720}},
		{input: "00:00,24:00", expected: Full()},
		{input: "22:00,10:00", fails: true},
		{input: "10:00,10:00", fails: true},
		{input: "10:00", fails: true},
		{input: "25:00,26:00", fails: true},
		{input: "10:60,11:00", fails: true},
		{input: "ten,eleven", fails: true},
	}

	for _, test := range cases {
		w, err := Parse(test.input)
		if test.fails {
			require.Error(t, err, test.input)
			continue
		}
		require.NoError(t, err, test.input)
		require.Equal(t, test.expected, w, test.input)
	}
}

func TestPredicates(t *testing.T) {
	w := Window{Start: 600, End: 720}

	require.True(t, w.ContainsPoint(600))
	require.True(t, w.ContainsPoint(719))
	require.False(t, w.ContainsPoint(720))
	require.False(t, w.ContainsPoint(599))

	require.True(t, w.Overlaps(540, 601))
	require.True(t, w.Overlaps(719, 800))
	require.False(t, w.Overlaps(540, 600))
	require.False(t, w.Overlaps(720, 780))
	require.True(t, w.Overlaps(0, 1440))

	require.Equal(t, "10:00-12:00", w.String())
}

func sampleRecords(t *testing.T) []availability.Record {
	date, err := chrono.ParseDate("2026-01-20")
	if err != nil {
		t.Fatal(err)
	}

	return []availability.Record{
		availability.NewRecord("fukuokahonten", "BUZZ福岡本店", date).WithPayload(availability.TablePayload{
			TimeSlots: []availability.TimeSlot{
				{Time: "09:00", Studios: []availability.SubUnit{{StudioNumber: 1, IsAvailable: true}}},
				{Time: "10:00", Studios: []availability.SubUnit{{StudioNumber: 1}}},
				{Time: "21:30", Studios: []availability.SubUnit{{StudioNumber: 1, IsAvailable: true}}},
				{Time: "22:00"},
			},
		}),
		availability.NewRecord("civichall-rehearsal", "福岡市民会館 リハーサル室", date).WithPayload(availability.RangePayload{
			Rooms: []availability.Room{{
				RoomName: "リハーサル室",
				Slots: []availability.RangeSlot{
					{Status: "○", SlotID: "0", TimeRange: "9:00-12:30"},
					{Status: "×", SlotID: "1", TimeRange: "13:00-15:30"},
					{Status: "●", SlotID: "2", TimeRange: "16:00-18:30"},
					{Status: "-", SlotID: "3", TimeRange: "19:00-22:00"},
				},
			}},
		}),
		availability.NewRecord("crea-daimyo", "CREA大名", date).WithPayload(availability.PricedPayload{
			Studios: []availability.Studio{{
				StudioID: "crea-daimyo",
				Slots: []availability.PricedSlot{
					{SlotType: "morning", TimeSlots: []availability.Entry{{Time: "06:00", Available: true}, {Time: "08:00"}}},
					{SlotType: "weekdayDay", TimeSlots: []availability.Entry{{Time: "10:00", Available: true}, {Time: "16:00"}}},
				},
			}},
		}),
	}
}

func TestApplyFullWindowKeepsEverything(t *testing.T) {
	for _, record := range sampleRecords(t) {
		filtered := Apply(record, Full())
		if diff := cmp.Diff(record, filtered, cmpopts.EquateEmpty()); diff != "" {
			t.Fatalf("full window changed %s (-want +got):\n%s", record.ResourceID, diff)
		}
	}
}

func TestApplyWindow(t *testing.T) {
	records := sampleRecords(t)
	w := Window{Start: 600, End: 1320}

	table := Apply(records[0], w).Payload.(availability.TablePayload)
	var times []string
	for _, slot := range table.TimeSlots {
		times = append(times, slot.Time)
	}
	require.Equal(t, []string{"10:00", "21:30"}, times)

	rooms := Apply(records[1], w).Payload.(availability.RangePayload)
	var slotIDs []string
	for _, slot := range rooms.Rooms[0].Slots {
		slotIDs = append(slotIDs, slot.SlotID)
	}
	// 9:00-12:30 still overlaps 10:00, 19:00-22:00 overlaps the end.
	require.Equal(t, []string{"0", "1", "2", "3"}, slotIDs)

	narrow := Apply(records[1], Window{Start: 13 * 60, End: 16 * 60}).Payload.(availability.RangePayload)
	slotIDs = nil
	for _, slot := range narrow.Rooms[0].Slots {
		slotIDs = append(slotIDs, slot.SlotID)
	}
	require.Equal(t, []string{"1"}, slotIDs)

	studios := Apply(records[2], w).Payload.(availability.PricedPayload)
	require.Empty(t, studios.Studios[0].Slots[0].TimeSlots)
	require.Equal(t, []availability.Entry{{Time: "10:00", Available: true}, {Time: "16:00"}}, studios.Studios[0].Slots[1].TimeSlots)
}

func TestApplyNeverLeaksOutsideWindow(t *testing.T) {
	windows := []Window{
		{Start: 0, End: 60},
		{Start: 6 * 60, End: 9 * 60},
		{Start: 12*60 + 30, End: 13 * 60},
		{Start: 15 * 60, End: 24 * 60},
	}

	for _, w := range windows {
		for _, record := range sampleRecords(t) {
			switch p := Apply(record, w).Payload.(type) {
			case availability.TablePayload:
				for _, slot := range p.TimeSlots {
					minute, err := ParseClock(slot.Time)
					require.NoError(t, err)
					require.True(t, w.ContainsPoint(minute), "%s outside %s", slot.Time, w)
				}
			case availability.RangePayload:
				for _, room := range p.Rooms {
					for _, slot := range room.Slots {
						start, end, err := ParseRange(slot.TimeRange)
						require.NoError(t, err)
						require.True(t, w.Overlaps(start, end), "%s outside %s", slot.TimeRange, w)
					}
				}
			case availability.PricedPayload:
				for _, studio := range p.Studios {
					for _, slot := range studio.Slots {
						for _, entry := range slot.TimeSlots {
							minute, err := ParseClock(entry.Time)
							require.NoError(t, err)
							require.True(t, w.ContainsPoint(minute), "%s outside %s", entry.Time, w)
						}
					}
				}
			}
		}
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	records := sampleRecords(t)
	original := sampleRecords(t)

	for _, record := range records {
		Apply(record, Window{Start: 0, End: 1})
	}
	if diff := cmp.Diff(original, records); diff != "" {
		t.Fatalf("input changed (-want +got):\n%s", diff)
	}
}

func TestApplyDerivesNoSlots(t *testing.T) {
	records := sampleRecords(t)
	late := Window{Start: 23 * 60, End: 24 * 60}

	for _, record := range records {
		require.Equal(t, availability.StatusOK, record.Status, record.ResourceID)
		filtered := Apply(record, late)
		require.True(t, filtered.Payload.Empty(), record.ResourceID)
		require.Equal(t, availability.StatusNoSlots, filtered.Status, record.ResourceID)
	}

	failed := records[0].WithError(availability.ErrFetch)
	require.Equal(t, availability.StatusError, Apply(failed, late).Status)

	kept := Apply(records[0], Window{Start: 21 * 60, End: 24 * 60})
	require.Equal(t, availability.StatusOK, kept.Status)
}
