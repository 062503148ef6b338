package civichall

import (
	"slices"
	"strings"
	"studiocheck/internal/availability"
	"studiocheck/lib/textutil"
)

const (
	FacilityID   = "fukuokacivichall"
	FacilityName = "福岡市民会館"
)

// room ids in display order
var roomIDs = []string{"rehearsal", "practice1", "practice3"}

var roomNames = map[string]string{
	"rehearsal": "リハーサル室",
	"practice1": "練習室①",
	"practice3": "練習室③",
}

// RoomIDs returns the ids of the rooms this package reports on.
func RoomIDs() []string {
	return slices.Clone(roomIDs)
}

// RoomName returns the name the booking site gives to a room id.
func RoomName(id string) (string, bool) {
	name, ok := roomNames[id]
	return name, ok
}

var targetRoomNames = func() []string {
	names := make([]string, len(roomIDs))
	for i, id := range roomIDs {
		names[i] = roomNames[id]
	}
	return names
}()

func isTargetRoom(name string) bool {
	_, ok := textutil.ContainsAny(name, targetRoomNames)
	return ok
}

// FilterRooms keeps the rooms named by ids, an empty id list keeps everything and
// unknown ids match nothing.
func FilterRooms(rooms []availability.Room, ids []string) []availability.Room {
	if len(ids) == 0 {
		return rooms
	}

	var names []string
	for _, id := range ids {
		if name, ok := roomNames[strings.TrimSpace(id)]; ok {
			names = append(names, name)
		}
	}

	out := []availability.Room{}
	for _, room := range rooms {
		for _, name := range names {
			if strings.Contains(room.RoomName, name) {
				out = append(out, room)
				break
			}
		}
	}
	return out
}
