// Package server derives private room identifiers from participant names
// and validates display names against the room-id encoding.
package server

import "strings"

// roomSeparator joins the two participant names of a private room id.
// Names containing it are rejected at enterApp so a room id always splits
// back into exactly two names.
const roomSeparator = "_"

// PrivateRoomID derives the deterministic identifier of the 1:1 room shared
// by two display names: the names sorted lexicographically and joined with
// the separator. PrivateRoomID(a, b) == PrivateRoomID(b, a).
func PrivateRoomID(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + roomSeparator + b
}

// CounterpartName returns the other participant of a private room id, given
// one participant's name. It returns false if the room id does not parse
// into two names or the given name is not a participant.
func CounterpartName(room, name string) (string, bool) {
	first, second, found := strings.Cut(room, roomSeparator)
	if !found {
		return "", false
	}
	switch name {
	case first:
		return second, true
	case second:
		return first, true
	}
	return "", false
}

// ValidDisplayName reports whether a name is usable as an addressing key:
// non-empty and free of the room separator.
func ValidDisplayName(name string) bool {
	return name != "" && !strings.Contains(name, roomSeparator)
}
