package chrono

import (
	"fmt"
	"time"
)

// DateLayout is the only date format accepted across the http interfaces.
const DateLayout = "2006-01-02"

var tokyo *time.Location

func init() {
	var err error
	tokyo, err = time.LoadLocation("Asia/Tokyo")
	if err != nil {
		// Japan has not observed daylight saving since 1951, a fixed zone is exact.
		tokyo = time.FixedZone("Asia/Tokyo", 9*60*60)
	}
}

// Tokyo returns the [*time.Location] every booking site in this module operates in.
func Tokyo() *time.Location {
	return tokyo
}

// API is the interface that anything depending on the system clock should use.
type API interface {
	// Now returns the current time in Asia/Tokyo.
	Now() time.Time
	Location() *time.Location
}

// StandardImpl is the standard implementation of API using the system clock.
type StandardImpl struct{}

func NewStandardImpl() StandardImpl {
	return StandardImpl{}
}

func (StandardImpl) Now() time.Time {
	return time.Now().In(tokyo)
}

func (StandardImpl) Location() *time.Location {
	return tokyo
}

// FixedImpl always returns the same instant, it is meant for tests.
type FixedImpl struct {
	At time.Time
}

func (f FixedImpl) Now() time.Time {
	return f.At.In(tokyo)
}

func (FixedImpl) Location() *time.Location {
	return tokyo
}

// ParseDate parses a YYYY-MM-DD date as local midnight in Asia/Tokyo.
func ParseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("date is empty")
	}
	date, err := time.ParseInLocation(DateLayout, value, tokyo)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", value, err)
	}
	return date, nil
}

// FormatDate is the inverse of ParseDate.
func FormatDate(date time.Time) string {
	return date.In(tokyo).Format(DateLayout)
}

var dayOfWeekLabels = [7]string{"日", "月", "火", "水", "木", "金", "土"}

// DayOfWeek returns the single kanji weekday label of the date.
func DayOfWeek(date time.Time) string {
	return dayOfWeekLabels[date.In(tokyo).Weekday()]
}

func IsWeekend(date time.Time) bool {
	switch date.In(tokyo).Weekday() {
	case time.Saturday, time.Sunday:
		return true
	}
	return false
}

func IsWeekday(date time.Time) bool {
	return !IsWeekend(date)
}

// StartOfDay returns local midnight of the given date.
func StartOfDay(date time.Time) time.Time {
	local := date.In(tokyo)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, tokyo)
}

// EndOfDay returns the last second of the given date.
func EndOfDay(date time.Time) time.Time {
	return StartOfDay(date).AddDate(0, 0, 1).Add(-time.Second)
}

// DaysBetween returns the whole calendar days from `from` to `to`.
func DaysBetween(from, to time.Time) int {
	a := StartOfDay(from)
	b := StartOfDay(to)
	// both are local midnights in a zone without DST, so the division is exact.
	return int(b.Sub(a).Hours() / 24)
}

// MonthsBetween returns the calendar month difference from (fromYear, fromMonth) to
// (toYear, toMonth).
func MonthsBetween(fromYear, fromMonth, toYear, toMonth int) int {
	return (toYear-fromYear)*12 + (toMonth - fromMonth)
}
