package availability

import (
	"encoding/json"
	"fmt"
	"studiocheck/internal/components/chrono"
	"time"
)

// PayloadKind tags which payload a record carries, it doubles as the adapter kind of
// a registry entry.
type PayloadKind string

const (
	PayloadTable   PayloadKind = "table"
	PayloadRange   PayloadKind = "range"
	PayloadPriced  PayloadKind = "priced"
	PayloadUnknown PayloadKind = "unknown"
)

// Payload is the closed set of per-site result shapes.
type Payload interface {
	Kind() PayloadKind
	// Empty reports whether the payload holds no bookable entries at all.
	Empty() bool

	isPayload()
}

type TablePayload struct {
	TimeSlots []TimeSlot
}

func (TablePayload) Kind() PayloadKind { return PayloadTable }
func (p TablePayload) Empty() bool     { return len(p.TimeSlots) == 0 }
func (TablePayload) isPayload()        {}

type RangePayload struct {
	Rooms []Room
}

func (RangePayload) Kind() PayloadKind { return PayloadRange }
func (RangePayload) isPayload()        {}

func (p RangePayload) Empty() bool {
	for _, room := range p.Rooms {
		if len(room.Slots) > 0 {
			return false
		}
	}
	return true
}

type PricedPayload struct {
	Studios []Studio
}

func (PricedPayload) Kind() PayloadKind { return PayloadPriced }
func (PricedPayload) isPayload()        {}

func (p PricedPayload) Empty() bool {
	for _, studio := range p.Studios {
		for _, slot := range studio.Slots {
			if len(slot.TimeSlots) > 0 {
				return false
			}
		}
	}
	return true
}

// Status separates a confirmed empty day from a failed lookup.
type Status string

const (
	StatusOK      Status = "ok"
	StatusNoSlots Status = "no_slots"
	StatusError   Status = "error"
)

// UnknownResourceName and UnknownResourceError are what callers see for ids missing
// from the registry.
const (
	UnknownResourceName  = "不明"
	UnknownResourceError = "スタジオが見つかりません"
)

// Record is the normalized availability of one requested resource.
type Record struct {
	ResourceID   string
	ResourceName string
	Date         string
	DayOfWeek    string
	Status       Status
	Error        string
	ErrorKind    ErrorKind
	// Suggestion is the closest known id when ResourceID is unknown.
	Suggestion string
	Payload    Payload
}

func NewRecord(resourceID, resourceName string, date time.Time) Record {
	return Record{
		ResourceID:   resourceID,
		ResourceName: resourceName,
		Date:         chrono.FormatDate(date),
		DayOfWeek:    chrono.DayOfWeek(date),
	}
}

// WithPayload attaches a payload and derives the status from it.
func (r Record) WithPayload(payload Payload) Record {
	r.Payload = payload
	r.Status = StatusOK
	if payload.Empty() {
		r.Status = StatusNoSlots
	}
	return r
}

// WithError marks the record as failed, any payload already attached is kept so the
// caller still sees partial data.
func (r Record) WithError(err error) Record {
	r.Status = StatusError
	r.Error = err.Error()
	r.ErrorKind = Classify(err)
	return r
}

// Kind returns the payload kind, PayloadUnknown when no payload is attached.
func (r Record) Kind() PayloadKind {
	if r.Payload == nil {
		return PayloadUnknown
	}
	return r.Payload.Kind()
}

type recordJSON struct {
	ResourceID   string      `json:"resourceId"`
	ResourceName string      `json:"resourceName"`
	Date         string      `json:"date"`
	DayOfWeek    string      `json:"dayOfWeek"`
	Kind         PayloadKind `json:"kind"`
	Status       Status      `json:"status"`
	Error        string      `json:"error,omitempty"`
	ErrorKind    ErrorKind   `json:"errorKind,omitempty"`
	Suggestion   string      `json:"suggestion,omitempty"`
	TimeSlots    *[]TimeSlot `json:"timeSlots,omitempty"`
	Rooms        *[]Room     `json:"rooms,omitempty"`
	Studios      *[]Studio   `json:"studios,omitempty"`
}

func (r Record) MarshalJSON() ([]byte, error) {
	out := recordJSON{
		ResourceID:   r.ResourceID,
		ResourceName: r.ResourceName,
		Date:         r.Date,
		DayOfWeek:    r.DayOfWeek,
		Kind:         r.Kind(),
		Status:       r.Status,
		Error:        r.Error,
		ErrorKind:    r.ErrorKind,
		Suggestion:   r.Suggestion,
	}

	switch p := r.Payload.(type) {
	case TablePayload:
		slots := p.TimeSlots
		if slots == nil {
			slots = []TimeSlot{}
		}
		out.TimeSlots = &slots
	case RangePayload:
		rooms := p.Rooms
		if rooms == nil {
			rooms = []Room{}
		}
		out.Rooms = &rooms
	case PricedPayload:
		studios := p.Studios
		if studios == nil {
			studios = []Studio{}
		}
		out.Studios = &studios
	case nil:
	default:
		return nil, fmt.Errorf("unsupported payload %T", p)
	}

	return json.Marshal(out)
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var in recordJSON
	err := json.Unmarshal(data, &in)
	if err != nil {
		return err
	}

	*r = Record{
		ResourceID:   in.ResourceID,
		ResourceName: in.ResourceName,
		Date:         in.Date,
		DayOfWeek:    in.DayOfWeek,
		Status:       in.Status,
		Error:        in.Error,
		ErrorKind:    in.ErrorKind,
		Suggestion:   in.Suggestion,
	}

	switch in.Kind {
	case PayloadTable:
		p := TablePayload{}
		if in.TimeSlots != nil {
			p.TimeSlots = *in.TimeSlots
		}
		r.Payload = p
	case PayloadRange:
		p := RangePayload{}
		if in.Rooms != nil {
			p.Rooms = *in.Rooms
		}
		r.Payload = p
	case PayloadPriced:
		p := PricedPayload{}
		if in.Studios != nil {
			p.Studios = *in.Studios
		}
		r.Payload = p
	case PayloadUnknown, "":
	default:
		return fmt.Errorf("unknown record kind %q", in.Kind)
	}
	return nil
}
