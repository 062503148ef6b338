package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"studiocheck/internal/availability"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

func printJSON(value any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

func mark(available bool) string {
	if available {
		return text.FgGreen.Sprint("○")
	}
	return text.FgRed.Sprint("×")
}

func stateMark(slot availability.RangeSlot) string {
	switch slot.State {
	case availability.StateAvailable:
		return text.FgGreen.Sprint(slot.Status)
	case availability.StateReserved:
		return text.FgRed.Sprint(slot.Status)
	}
	return slot.Status
}

func printTimeSlots(slots []availability.TimeSlot) {
	t := newTable()
	columns := 0
	for _, slot := range slots {
		columns = max(columns, len(slot.Studios))
	}
	header := table.Row{"Time"}
	for i := 1; i <= columns; i++ {
		header = append(header, fmt.Sprintf("#%d", i))
	}
	t.AppendHeader(header)

	for _, slot := range slots {
		row := table.Row{slot.Time}
		for _, studio := range slot.Studios {
			row = append(row, mark(studio.IsAvailable))
		}
		t.AppendRow(row)
	}
	t.Render()
}

func printRooms(rooms []availability.Room) {
	t := newTable()
	t.AppendHeader(table.Row{"Room", "Time", "Status", "Date", "Slot"})
	for _, room := range rooms {
		for _, slot := range room.Slots {
			t.AppendRow(table.Row{room.RoomName, slot.TimeRange, stateMark(slot), slot.Date, slot.SlotID})
		}
		t.AppendSeparator()
	}
	t.Render()
}

func printStudios(studios []availability.Studio) {
	t := newTable()
	t.AppendHeader(table.Row{"Studio", "Slot", "Price", "Hours", "Times"})
	for _, studio := range studios {
		name := fmt.Sprintf("%s (%s %s)", studio.StudioName, studio.Floor, studio.Size)
		if len(studio.Slots) == 0 {
			t.AppendRow(table.Row{name, "-", "", "", ""})
		}
		for _, slot := range studio.Slots {
			times := make([]string, len(slot.TimeSlots))
			for i, entry := range slot.TimeSlots {
				times[i] = fmt.Sprintf("%s %s", entry.Time, mark(entry.Available))
			}
			t.AppendRow(table.Row{name, slot.SlotName, fmt.Sprintf("¥%d", slot.Price), slot.Hours, strings.Join(times, "  ")})
		}
		if studio.Error != "" {
			t.AppendRow(table.Row{name, text.FgRed.Sprint("error"), "", "", studio.Error})
		}
		t.AppendSeparator()
	}
	t.Render()
}

func printRecord(record availability.Record) {
	fmt.Printf("%s (%s) %s(%s) [%s]\n", record.ResourceName, record.ResourceID, record.Date, record.DayOfWeek, record.Status)
	if record.Error != "" {
		fmt.Println(text.FgRed.Sprintf("  %s: %s", record.ErrorKind, record.Error))
	}
	if record.Suggestion != "" {
		fmt.Printf("  did you mean %q?\n", record.Suggestion)
	}

	switch p := record.Payload.(type) {
	case availability.TablePayload:
		if len(p.TimeSlots) > 0 {
			printTimeSlots(p.TimeSlots)
		}
	case availability.RangePayload:
		if !p.Empty() {
			printRooms(p.Rooms)
		}
	case availability.PricedPayload:
		if len(p.Studios) > 0 {
			printStudios(p.Studios)
		}
	}
	fmt.Println()
}
