package chatline

import "sync"

// history is the ordered message log for the active room. Order is
// arrival order at this client, not global timestamp order.
//
// Append reads the live slice under the lock on every call. Capturing
// the slice once and appending to the captured value would silently
// drop all but the first message when events arrive back to back.
type history struct {
	mu   sync.Mutex
	msgs []Message
}

func newHistory() *history {
	return &history{}
}

// Replace seeds the log wholesale with the room backlog.
func (h *history) Replace(msgs []Message) {
	h.mu.Lock()
	h.msgs = append([]Message(nil), msgs...)
	h.mu.Unlock()
}

// Append adds one message to the end of the log.
func (h *history) Append(msg Message) {
	h.mu.Lock()
	h.msgs = append(h.msgs, msg)
	h.mu.Unlock()
}

// Messages returns a copy of the log in arrival order.
func (h *history) Messages() []Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Message(nil), h.msgs...)
}

// Len returns the number of messages in the log.
func (h *history) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.msgs)
}
