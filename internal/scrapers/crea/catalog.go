package crea

import (
	"slices"
	"studiocheck/internal/components/chrono"
	"studiocheck/internal/window"
	"time"
)

const (
	MerchantID   = "rentalstudiocrea"
	MerchantName = "レンタルスタジオCREA"
	MenuBaseURL  = "https://coubic.com/" + MerchantID
)

// Days says on which days a slot type can be booked.
type Days string

const (
	DaysAll                 Days = "all"
	DaysWeekday             Days = "weekday"
	DaysWeekend             Days = "weekend"
	DaysWeekdayNightWeekend Days = "weekdayNight_weekend"
)

// eveningStart is when the weekday part of a weekdayNight_weekend slot begins.
const eveningStart = 17 * 60

// Applicable reports whether a slot bookable on days can be booked on date.
// Weekday evenings only count when the window reaches past 17:00.
func Applicable(days Days, date time.Time, w window.Window) bool {
	switch days {
	case DaysWeekday:
		return chrono.IsWeekday(date)
	case DaysWeekend:
		return chrono.IsWeekend(date)
	case DaysWeekdayNightWeekend:
		if chrono.IsWeekend(date) {
			return true
		}
		return w.IsFull() || w.End > eveningStart
	default:
		return true
	}
}

// SlotSpec is one booking menu of a studio.
type SlotSpec struct {
	Type   string
	Name   string
	Price  int
	Hours  string
	MenuID string
	Days   Days
}

func (s SlotSpec) MenuURL() string {
	return MenuBaseURL + "/" + s.MenuID
}

func (s SlotSpec) BookingURL() string {
	return s.MenuURL() + "/book/event_type"
}

type StudioSpec struct {
	ID    string
	Name  string
	Floor string
	Size  string
	Slots []SlotSpec
}

const eveningAndWeekendHours = "17:00-23:00 (平日) / 9:00-23:00 (土日)"

var studios = []StudioSpec{
	{
		ID:    "crea-daimyo",
		Name:  "CREA大名",
		Floor: "2F",
		Size:  "77㎡",
		Slots: []SlotSpec{
			{Type: "morning", Name: "朝活", Price: 500, Hours: "6:00-9:00", MenuID: "960818", Days: DaysAll},
			{Type: "weekdayDay", Name: "平日昼", Price: 1980, Hours: "9:00-17:00", MenuID: "968953", Days: DaysWeekday},
			{Type: "weekdayNightWeekend", Name: "平日夜・土日", Price: 2420, Hours: eveningAndWeekendHours, MenuID: "506244", Days: DaysWeekdayNightWeekend},
		},
	},
	{
		ID:    "crea-plus",
		Name:  "CREA+",
		Floor: "4F",
		Size:  "100㎡",
		Slots: []SlotSpec{
			{Type: "weekdayDay", Name: "平日 昼", Price: 2530, Hours: "6:00-17:00", MenuID: "802390", Days: DaysWeekday},
			{Type: "weekdayNight", Name: "平日 夜", Price: 2860, Hours: "17:00-23:00", MenuID: "592262", Days: DaysWeekday},
			{Type: "weekend", Name: "土日", Price: 3410, Hours: "6:00-23:00", MenuID: "419056", Days: DaysWeekend},
		},
	},
	{
		ID:    "crea-daimyo2",
		Name:  "CREA大名Ⅱ",
		Floor: "3F",
		Size:  "49㎡",
		Slots: []SlotSpec{
			{Type: "morning", Name: "朝活", Price: 500, Hours: "6:00-9:00", MenuID: "563872", Days: DaysAll},
			{Type: "weekdayDay", Name: "平日昼", Price: 1650, Hours: "9:00-17:00", MenuID: "519534", Days: DaysWeekday},
			{Type: "weekdayNightWeekend", Name: "平日夜・土日", Price: 2200, Hours: eveningAndWeekendHours, MenuID: "782437", Days: DaysWeekdayNightWeekend},
		},
	},
	{
		ID:    "crea-music",
		Name:  "CREA music",
		Floor: "3F",
		Size:  "28.6㎡",
		Slots: []SlotSpec{
			{Type: "morning", Name: "朝活", Price: 1000, Hours: "6:00-9:00", MenuID: "972917", Days: DaysAll},
		},
	},
}

type menuRef struct {
	studio int
	slot   int
}

var menus = func() map[string]menuRef {
	index := map[string]menuRef{}
	for i, studio := range studios {
		for j, slot := range studio.Slots {
			index[slot.MenuID] = menuRef{studio: i, slot: j}
		}
	}
	return index
}()

func cloneStudio(s StudioSpec) StudioSpec {
	s.Slots = slices.Clone(s.Slots)
	return s
}

// Studios returns a copy of the studio catalogue.
func Studios() []StudioSpec {
	out := make([]StudioSpec, len(studios))
	for i, s := range studios {
		out[i] = cloneStudio(s)
	}
	return out
}

func StudioIDs() []string {
	ids := make([]string, len(studios))
	for i, s := range studios {
		ids[i] = s.ID
	}
	return ids
}

func LookupStudio(id string) (StudioSpec, bool) {
	for _, s := range studios {
		if s.ID == id {
			return cloneStudio(s), true
		}
	}
	return StudioSpec{}, false
}

// LookupMenu maps a booking menu id back to its studio and slot.
func LookupMenu(menuID string) (StudioSpec, SlotSpec, bool) {
	ref, ok := menus[menuID]
	if !ok {
		return StudioSpec{}, SlotSpec{}, false
	}
	studio := studios[ref.studio]
	return cloneStudio(studio), studio.Slots[ref.slot], true
}

// selectStudios resolves requested ids in request order, unknown ids are dropped and
// no ids selects every studio.
func selectStudios(ids []string) []StudioSpec {
	if len(ids) == 0 {
		return Studios()
	}
	var out []StudioSpec
	for _, id := range ids {
		if s, ok := LookupStudio(id); ok {
			out = append(out, s)
		}
	}
	return out
}
