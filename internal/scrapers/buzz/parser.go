package buzz

import (
	"fmt"
	"regexp"
	"strings"
	"studiocheck/internal/availability"

	"github.com/PuerkitoBio/goquery"
)

var timeCellRegex = regexp.MustCompile(`^\d{2}:\d{2}$`)

// ParseDay reads the reservation table of a day page. Every row whose first cell is
// an "HH:MM" start time becomes a TimeSlot, each further cell is a studio numbered by
// its column, available when it holds a reserve button.
func ParseDay(doc *goquery.Document) ([]availability.TimeSlot, error) {
	if doc.Find("table").Length() == 0 {
		return nil, fmt.Errorf("%w: no reservation table on page", availability.ErrParse)
	}

	slots := []availability.TimeSlot{}
	doc.Find("table tbody tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.ChildrenFiltered("td")
		if cells.Length() == 0 {
			return
		}
		start := strings.TrimSpace(cells.First().Text())
		if !timeCellRegex.MatchString(start) {
			return
		}

		studios := []availability.SubUnit{}
		cells.Each(func(idx int, cell *goquery.Selection) {
			if idx == 0 {
				return
			}
			studios = append(studios, availability.SubUnit{
				StudioNumber: idx,
				IsAvailable:  cell.Find("button.reserve_modal_trigger").Length() > 0,
			})
		})
		slots = append(slots, availability.TimeSlot{
			Time:    start,
			Studios: studios,
		})
	})

	return slots, nil
}
