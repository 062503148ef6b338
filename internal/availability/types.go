package availability

// SubUnit is one studio column of a table style site.
type SubUnit struct {
	StudioNumber int  `json:"studioNumber"`
	IsAvailable  bool `json:"isAvailable"`
}

// TimeSlot is one row of a table style site, keyed by its "HH:MM" start.
type TimeSlot struct {
	Time    string    `json:"time"`
	Studios []SubUnit `json:"studios"`
}

// SlotState is the normalized meaning of a range slot status glyph.
type SlotState string

const (
	StateAvailable   SlotState = "available"
	StateReserved    SlotState = "reserved"
	StateOutOfWindow SlotState = "outOfWindow"
	StateUnknown     SlotState = "unknown"
)

// RangeSlot is one of the fixed daily ranges of a facility room.
type RangeSlot struct {
	// Status is the glyph as the site renders it: ○, ●, × or -.
	Status    string    `json:"status"`
	State     SlotState `json:"state"`
	Date      string    `json:"date"`
	SlotID    string    `json:"slotId"`
	TimeRange string    `json:"timeRange"`
}

type Room struct {
	RoomName string      `json:"roomName"`
	Slots    []RangeSlot `json:"slots"`
}

// Entry is a bookable start time of a priced slot.
type Entry struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

// PricedSlot is a priced booking product (morning, weekday daytime, ...) of a studio.
type PricedSlot struct {
	SlotType  string  `json:"slotType"`
	SlotName  string  `json:"slotName"`
	Price     int     `json:"price"`
	Hours     string  `json:"hours"`
	TimeSlots []Entry `json:"timeSlots"`
}

type Studio struct {
	StudioID   string       `json:"studioId"`
	StudioName string       `json:"studioName"`
	Floor      string       `json:"floor"`
	Size       string       `json:"size"`
	Date       string       `json:"date"`
	DayOfWeek  string       `json:"dayOfWeek"`
	Slots      []PricedSlot `json:"slots"`
	Error      string       `json:"error,omitempty"`
}
