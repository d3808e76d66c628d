package chatline

import "sync"

// Room is one of the fixed chat rooms.
type Room string

const (
	RoomBlue Room = "blue"
	RoomRed  Room = "red"
)

// Rooms lists every room the server knows about.
func Rooms() []Room {
	return []Room{RoomBlue, RoomRed}
}

// Valid reports whether r is one of the fixed rooms.
func (r Room) Valid() bool {
	for _, known := range Rooms() {
		if r == known {
			return true
		}
	}
	return false
}

// roomSelector holds the single active room. The selection is bundled
// into the registration request; whether it may still change is the
// caller's decision (the Client gates on session state).
type roomSelector struct {
	mu     sync.Mutex
	active Room
}

func newRoomSelector() *roomSelector {
	return &roomSelector{active: RoomBlue}
}

func (r *roomSelector) Active() Room {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

func (r *roomSelector) Select(room Room) error {
	if !room.Valid() {
		return NewError(ErrorInvalidRoom, "unknown room "+string(room))
	}
	r.mu.Lock()
	r.active = room
	r.mu.Unlock()
	return nil
}

// Toggle flips between the two rooms and returns the new selection.
func (r *roomSelector) Toggle() Room {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == RoomBlue {
		r.active = RoomRed
	} else {
		r.active = RoomBlue
	}
	return r.active
}
