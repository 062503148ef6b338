package civichall

import (
	"fmt"
	"regexp"
	"strconv"
	"studiocheck/internal/availability"
	"studiocheck/lib/htmlutil"
	"studiocheck/lib/textutil"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// the facility rents rooms in four fixed ranges a day, their status cells sit at
// every other td after the room name
var timeRanges = []string{"9:00-12:30", "13:00-15:30", "16:00-18:30", "19:00-22:00"}
var statusCellIndices = []int{1, 3, 5, 7}

var cellIDRegex = regexp.MustCompile(`#(\d{4}/\d{2}/\d{2})#(\d+)$`)

// NormalizeStatus maps a status glyph to its meaning.
func NormalizeStatus(glyph string) availability.SlotState {
	switch glyph {
	case "○", "●":
		return availability.StateAvailable
	case "×":
		return availability.StateReserved
	case "-", "":
		return availability.StateOutOfWindow
	default:
		return availability.StateUnknown
	}
}

// ParseRooms reads every koma-table of a facility page and returns the whitelisted
// rooms in page order.
func ParseRooms(doc *goquery.Document, date time.Time) ([]availability.Room, error) {
	tables := doc.Find("table.koma-table")
	if tables.Length() == 0 {
		return nil, fmt.Errorf("%w: no koma-table on page", availability.ErrParse)
	}

	defaultDate := date.Format("2006/01/02")
	rooms := []availability.Room{}
	tables.Each(func(_ int, table *goquery.Selection) {
		cells := table.Find("td")
		if cells.Length() == 0 {
			return
		}

		roomName := textutil.StripParenthesized(htmlutil.CleanText(cells.First()))
		if !isTargetRoom(roomName) {
			return
		}

		slots := []availability.RangeSlot{}
		for slotIdx, cellIdx := range statusCellIndices {
			if cellIdx >= cells.Length() {
				continue
			}
			cell := cells.Eq(cellIdx)

			status := htmlutil.CleanText(cell)
			if status == "" {
				status = "-"
			}
			slot := availability.RangeSlot{
				Status:    status,
				State:     NormalizeStatus(status),
				Date:      defaultDate,
				SlotID:    strconv.Itoa(slotIdx),
				TimeRange: timeRanges[slotIdx],
			}
			if id, ok := cell.Attr("id"); ok {
				if groups := cellIDRegex.FindStringSubmatch(id); groups != nil {
					slot.Date = groups[1]
					slot.SlotID = groups[2]
				}
			}
			slots = append(slots, slot)
		}

		rooms = append(rooms, availability.Room{
			RoomName: roomName,
			Slots:    slots,
		})
	})

	return rooms, nil
}
