package window

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"studiocheck/internal/availability"
)

const minutesPerDay = 24 * 60

// Window is a half-open [Start, End) interval in minutes of the day.
type Window struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Full is 00:00-24:00, filtering with it keeps everything.
func Full() Window {
	return Window{Start: 0, End: minutesPerDay}
}

func (w Window) IsFull() bool {
	return w.Start <= 0 && w.End >= minutesPerDay
}

func (w Window) Validate() error {
	if w.Start < 0 || w.End > minutesPerDay {
		return fmt.Errorf("window %s is outside of 00:00-24:00", w)
	}
	if w.Start >= w.End {
		return fmt.Errorf("window %s must start before it ends", w)
	}
	return nil
}

func (w Window) String() string {
	return fmt.Sprintf("%s-%s", FormatMinutes(w.Start), FormatMinutes(w.End))
}

// ContainsPoint reports start <= t < end.
func (w Window) ContainsPoint(minute int) bool {
	return w.Start <= minute && minute < w.End
}

// Overlaps reports whether [start, end) shares any minute with the window.
func (w Window) Overlaps(start, end int) bool {
	return end > w.Start && start < w.End
}

var clockRegex = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)

// ParseClock parses "H:MM" or "HH:MM" into minutes of day, "24:00" is accepted as the
// end of the day.
func ParseClock(value string) (int, error) {
	groups := clockRegex.FindStringSubmatch(strings.TrimSpace(value))
	if len(groups) < 3 {
		return 0, fmt.Errorf("invalid time %q", value)
	}
	hours, _ := strconv.Atoi(groups[1])
	minutes, _ := strconv.Atoi(groups[2])
	if minutes >= 60 || hours > 24 || (hours == 24 && minutes != 0) {
		return 0, fmt.Errorf("invalid time %q", value)
	}
	return hours*60 + minutes, nil
}

// ParseRange parses "H:MM-HH:MM" into its start and end minutes.
func ParseRange(value string) (int, int, error) {
	parts := strings.SplitN(value, "-", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time range %q", value)
	}
	start, err := ParseClock(parts[0])
	if err != nil {
		return 0, 0, err
	}
	end, err := ParseClock(parts[1])
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

func FormatMinutes(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// Parse reads the "start,end" form of the window query parameter, an empty value is
// the full day.
func Parse(value string) (Window, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Full(), nil
	}
	parts := strings.Split(value, ",")
	if len(parts) != 2 {
		return Window{}, fmt.Errorf("window %q must look like HH:MM,HH:MM", value)
	}
	start, err := ParseClock(parts[0])
	if err != nil {
		return Window{}, err
	}
	end, err := ParseClock(parts[1])
	if err != nil {
		return Window{}, err
	}
	w := Window{Start: start, End: end}
	return w, w.Validate()
}

// Apply returns a copy of the record holding only the slots inside the window. The
// input record is never modified. A successful record left without slots becomes
// no_slots.
func Apply(record availability.Record, w Window) availability.Record {
	switch p := record.Payload.(type) {
	case availability.TablePayload:
		record.Payload = availability.TablePayload{TimeSlots: filterTable(p.TimeSlots, w)}
	case availability.RangePayload:
		record.Payload = availability.RangePayload{Rooms: filterRooms(p.Rooms, w)}
	case availability.PricedPayload:
		record.Payload = availability.PricedPayload{Studios: filterStudios(p.Studios, w)}
	}
	if record.Status == availability.StatusOK && record.Payload != nil && record.Payload.Empty() {
		record.Status = availability.StatusNoSlots
	}
	return record
}

func keepPoint(value string, w Window) bool {
	if w.IsFull() {
		return true
	}
	minute, err := ParseClock(value)
	if err != nil {
		return false
	}
	return w.ContainsPoint(minute)
}

func keepRange(value string, w Window) bool {
	if w.IsFull() {
		return true
	}
	start, end, err := ParseRange(value)
	if err != nil {
		return false
	}
	return w.Overlaps(start, end)
}

func filterTable(slots []availability.TimeSlot, w Window) []availability.TimeSlot {
	out := make([]availability.TimeSlot, 0, len(slots))
	for _, slot := range slots {
		if !keepPoint(slot.Time, w) {
			continue
		}
		slot.Studios = append([]availability.SubUnit(nil), slot.Studios...)
		out = append(out, slot)
	}
	return out
}

func filterRooms(rooms []availability.Room, w Window) []availability.Room {
	out := make([]availability.Room, 0, len(rooms))
	for _, room := range rooms {
		slots := make([]availability.RangeSlot, 0, len(room.Slots))
		for _, slot := range room.Slots {
			if keepRange(slot.TimeRange, w) {
				slots = append(slots, slot)
			}
		}
		out = append(out, availability.Room{RoomName: room.RoomName, Slots: slots})
	}
	return out
}

func filterStudios(studios []availability.Studio, w Window) []availability.Studio {
	out := make([]availability.Studio, 0, len(studios))
	for _, studio := range studios {
		slots := make([]availability.PricedSlot, 0, len(studio.Slots))
		for _, slot := range studio.Slots {
			entries := make([]availability.Entry, 0, len(slot.TimeSlots))
			for _, entry := range slot.TimeSlots {
				if keepPoint(entry.Time, w) {
					entries = append(entries, entry)
				}
			}
			slot.TimeSlots = entries
			slots = append(slots, slot)
		}
		studio.Slots = slots
		out = append(out, studio)
	}
	return out
}
