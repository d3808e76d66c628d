package chatline

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"
)

// fakeChannel is an in-memory Channel: pushes dispatch synchronously on
// the caller's goroutine and emits are recorded instead of sent.
type fakeChannel struct {
	mu       sync.Mutex
	state    ConnectionState
	id       string
	handlers map[string][]Handler
	emitted  []Envelope
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		id:       "conn-test",
		handlers: make(map[string][]Handler),
	}
}

func (f *fakeChannel) Connect(context.Context) error {
	f.mu.Lock()
	f.state = StateConnected
	f.mu.Unlock()
	f.push(eventConnect, nil)
	return nil
}

func (f *fakeChannel) On(event string, fn Handler) {
	f.mu.Lock()
	f.handlers[event] = append(f.handlers[event], fn)
	f.mu.Unlock()
}

func (f *fakeChannel) Emit(_ context.Context, event string, data any) error {
	f.mu.Lock()
	if f.state != StateConnected {
		f.mu.Unlock()
		return NewError(ErrorNotConnected, "emit "+event)
	}
	f.mu.Unlock()

	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return err
		}
		raw = b
	}
	f.mu.Lock()
	f.emitted = append(f.emitted, Envelope{Event: event, Data: raw})
	f.mu.Unlock()
	return nil
}

func (f *fakeChannel) ID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.id
}

func (f *fakeChannel) State() ConnectionState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeChannel) Close() error {
	f.mu.Lock()
	f.state = StateClosed
	f.mu.Unlock()
	return nil
}

// push delivers a server event to every registered handler, in
// registration order, like the read loop would.
func (f *fakeChannel) push(event string, v any) {
	var raw json.RawMessage
	if v != nil {
		b, err := json.Marshal(v)
		if err != nil {
			panic(err)
		}
		raw = b
	}
	f.mu.Lock()
	fns := append([]Handler(nil), f.handlers[event]...)
	f.mu.Unlock()
	for _, fn := range fns {
		fn(raw)
	}
}

// drop simulates a connection loss.
func (f *fakeChannel) drop() {
	f.mu.Lock()
	f.state = StateDisconnected
	f.mu.Unlock()
	f.push(eventDisconnect, nil)
}

// emittedOf returns the recorded payloads for one event name.
func (f *fakeChannel) emittedOf(event string) []json.RawMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []json.RawMessage
	for _, env := range f.emitted {
		if env.Event == event {
			out = append(out, env.Data)
		}
	}
	return out
}

// stubRoster counts pulls and serves a fixed roster.
type stubRoster struct {
	mu    sync.Mutex
	users []User
	err   error
	calls int
}

func (s *stubRoster) OnlineUsers(context.Context) ([]User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return append([]User(nil), s.users...), nil
}

func (s *stubRoster) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// stubBacklog counts fetches and serves a fixed backlog.
type stubBacklog struct {
	mu    sync.Mutex
	msgs  []Message
	err   error
	calls int
}

func (s *stubBacklog) History(context.Context, Room) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return append([]Message(nil), s.msgs...), nil
}

func (s *stubBacklog) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// newTestClient wires a Client to a fake channel and stub fetchers and
// connects it.
func newTestClient(t *testing.T, cfg Config) (*Client, *fakeChannel, *stubRoster, *stubBacklog) {
	t.Helper()
	ch := newFakeChannel()
	c := newClientWithChannel(cfg, ch)
	roster := &stubRoster{}
	backlog := &stubBacklog{}
	c.roster = roster
	c.backlog = backlog
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	return c, ch, roster, backlog
}

// login submits an identity and confirms it, waiting for the seed
// fetches to settle.
func login(t *testing.T, c *Client, ch *fakeChannel, roster *stubRoster, backlog *stubBacklog, name string) {
	t.Helper()
	if err := c.SubmitIdentity(context.Background(), name); err != nil {
		t.Fatalf("submit identity: %v", err)
	}
	ch.push(eventLoggedIn, nil)
	waitFor(t, func() bool {
		return roster.callCount() >= 1 && backlog.callCount() >= 1 &&
			len(c.History()) == len(backlog.msgs) && len(c.Roster()) == len(roster.users)
	})
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within timeout")
}

// settle gives background goroutines a moment, for asserting that
// something did NOT happen.
func settle() {
	time.Sleep(50 * time.Millisecond)
}
