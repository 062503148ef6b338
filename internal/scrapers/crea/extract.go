package crea

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"studiocheck/internal/availability"
)

var slotRangeRegex = regexp.MustCompile(`(\d{1,2}):(\d{2})\s*-\s*\d{1,2}:\d{2}`)

func formatStart(hour, minute string) string {
	h, _ := strconv.Atoi(hour)
	return fmt.Sprintf("%02d:%s", h, minute)
}

// ExtractTimes reads the start times of the "H:MM - H:MM" ranges listed on a booking
// page. When no list item holds a range the whole page text is scanned instead,
// keeping starts between 6:00 and 23:59. Every listed range is bookable.
func ExtractTimes(listTexts []string, bodyText string) []availability.Entry {
	var starts []string
	for _, text := range listTexts {
		groups := slotRangeRegex.FindStringSubmatch(text)
		if groups == nil {
			continue
		}
		start := formatStart(groups[1], groups[2])
		if !slices.Contains(starts, start) {
			starts = append(starts, start)
		}
	}

	if len(starts) == 0 {
		for _, groups := range slotRangeRegex.FindAllStringSubmatch(bodyText, -1) {
			hour, _ := strconv.Atoi(groups[1])
			if hour < 6 || hour > 23 {
				continue
			}
			start := formatStart(groups[1], groups[2])
			if !slices.Contains(starts, start) {
				starts = append(starts, start)
			}
		}
	}

	slices.Sort(starts)
	entries := make([]availability.Entry, len(starts))
	for i, start := range starts {
		entries[i] = availability.Entry{Time: start, Available: true}
	}
	return entries
}
