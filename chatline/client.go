// Package chatline is a client SDK for the chatline relay server: it
// connects over a duplex event channel, registers a display name in a
// room, seeds the room backlog, and keeps a live ordered view of
// messages and online users as events arrive.
package chatline

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/chatline/chatline-sdk-go/chatline/rest"

	"github.com/rs/zerolog"
)

// Client composes the channel, the login state machine, the room
// selector, the roster and the message log, and exposes the imperative
// surface a front end drives.
type Client struct {
	cfg     Config
	logger  zerolog.Logger
	channel Channel
	session *session
	room    *roomSelector
	present *presence
	log     *history

	// REST serves the request/response endpoints (roster pull, room
	// backlog). Exposed for out-of-band use, e.g. a one-shot roster
	// query without a live session.
	REST *rest.Client

	roster  RosterFetcher
	backlog BacklogFetcher

	wireOnce sync.Once

	cbMu           sync.Mutex
	onSessionState func(SessionState)
	onMessage      func(Message)
	onPresence     func([]User)
	onError        func(error)
}

// NewClient constructs a client with the provided config. Use
// DefaultConfig() as a starting point and modify as needed.
func NewClient(cfg Config) *Client {
	c := &Client{
		cfg:     cfg,
		logger:  zerolog.Nop(),
		session: newSession(),
		room:    newRoomSelector(),
		present: newPresence(),
		log:     newHistory(),
		REST:    rest.NewClient(cfg.RESTBaseURL),
	}
	c.roster = restRoster{c.REST}
	c.backlog = restBacklog{c.REST}
	return c
}

// newClientWithChannel injects a channel, used by tests to run the
// whole session flow without a network.
func newClientWithChannel(cfg Config, ch Channel) *Client {
	c := NewClient(cfg)
	c.channel = ch
	return c
}

// SetLogger overrides the logger (optional). Call before Connect.
func (c *Client) SetLogger(l zerolog.Logger) {
	c.logger = l
}

// OnSessionState registers a callback for session state changes.
func (c *Client) OnSessionState(fn func(SessionState)) {
	c.cbMu.Lock()
	c.onSessionState = fn
	c.cbMu.Unlock()
}

// OnMessage registers a callback fired for every message appended to
// the history, local and remote.
func (c *Client) OnMessage(fn func(Message)) {
	c.cbMu.Lock()
	c.onMessage = fn
	c.cbMu.Unlock()
}

// OnPresence registers a callback fired when the roster is replaced.
func (c *Client) OnPresence(fn func([]User)) {
	c.cbMu.Lock()
	c.onPresence = fn
	c.cbMu.Unlock()
}

// OnError registers a callback for background failures (roster pull,
// backlog fetch, malformed events, confirmation timeout).
func (c *Client) OnError(fn func(error)) {
	c.cbMu.Lock()
	c.onError = fn
	c.cbMu.Unlock()
}

// Connect establishes the channel and wires the event handlers. The
// handlers are registered exactly once per client, even across
// reconnects; their effects are gated on session state instead.
func (c *Client) Connect(ctx context.Context) error {
	if c.channel == nil {
		c.channel = newWSChannel(c.cfg, c.logger)
	}
	c.wireOnce.Do(c.wire)
	return c.channel.Connect(ctx)
}

// Close shuts down the client and the underlying channel.
func (c *Client) Close() error {
	if c.channel == nil {
		return nil
	}
	return c.channel.Close()
}

// SubmitIdentity sends the registration request carrying the display
// name and the active room, moving the session to pending. The session
// becomes active only once the server confirms. A second call before
// the current login resolves fails without emitting anything.
func (c *Client) SubmitIdentity(ctx context.Context, name string) error {
	if c.channel == nil || c.channel.State() != StateConnected {
		return NewError(ErrorNotConnected, "submit identity")
	}

	attempt, err := c.session.beginRegistration(name)
	if err != nil {
		return err
	}
	c.notifySessionState()

	payload := RegisterPayload{Username: name, Room: c.room.Active()}
	if err := c.channel.Emit(ctx, eventSetUsername, payload); err != nil {
		// Nothing reached the server; let the user retry.
		if c.session.expire(attempt) {
			c.notifySessionState()
		}
		return err
	}

	if c.cfg.ConfirmTimeout > 0 {
		time.AfterFunc(c.cfg.ConfirmTimeout, func() {
			if c.session.expire(attempt) {
				c.fireError(NewError(ErrorConfirmTimeout, "no confirmation within "+c.cfg.ConfirmTimeout.String()))
				c.notifySessionState()
			}
		})
	}
	return nil
}

// SubmitMessage stamps text with the registered identity, appends it to
// the local history immediately, and emits it for relay. The local
// append is optimistic: it does not wait for the server. The appended
// message is returned so a caller can clear its compose field.
func (c *Client) SubmitMessage(ctx context.Context, text string) (Message, error) {
	ident, ok := c.session.Identity()
	if !ok {
		return Message{}, NewError(ErrorNotLoggedIn, "submit message")
	}

	msg := Message{
		Text:      text,
		Sender:    ident.Name,
		Timestamp: time.Now().UnixMilli(),
		ID:        ident.ID,
	}

	c.log.Append(msg)
	c.notifyMessage(msg)

	err := c.channel.Emit(ctx, eventSendMessage, SendMessagePayload{Message: msg, Room: c.room.Active()})
	return msg, err
}

// SelectRoom changes the active room. The room is part of the
// registration payload, so it locks the moment an identity is
// submitted; afterwards selection fails with ErrorRoomLocked.
func (c *Client) SelectRoom(room Room) error {
	if c.session.State() != SessionAnonymous {
		return NewError(ErrorRoomLocked, "room is fixed after identity submission")
	}
	return c.room.Select(room)
}

// ToggleRoom flips between the two rooms, with the same pre-login gate
// as SelectRoom.
func (c *Client) ToggleRoom() (Room, error) {
	if c.session.State() != SessionAnonymous {
		return c.room.Active(), NewError(ErrorRoomLocked, "room is fixed after identity submission")
	}
	return c.room.Toggle(), nil
}

// SessionState returns the current login state.
func (c *Client) SessionState() SessionState {
	return c.session.State()
}

// ConnectionState returns the channel state.
func (c *Client) ConnectionState() ConnectionState {
	if c.channel == nil {
		return StateDisconnected
	}
	return c.channel.State()
}

// ActiveRoom returns the selected room.
func (c *Client) ActiveRoom() Room {
	return c.room.Active()
}

// Identity returns the confirmed identity; ok is false until active.
func (c *Client) Identity() (Identity, bool) {
	return c.session.Identity()
}

// History returns the message log in arrival order.
func (c *Client) History() []Message {
	return c.log.Messages()
}

// Roster returns the unfiltered roster of online users.
func (c *Client) Roster() []User {
	return c.present.All()
}

// OnlineUsers returns the roster filtered by the active room.
func (c *Client) OnlineUsers() []User {
	return c.present.InRoom(c.room.Active())
}

// wire registers the channel handlers. Registration is additive on the
// channel, so this must run once; state-dependent handlers gate their
// effect on the session instead of re-registering after login.
func (c *Client) wire() {
	c.channel.On(eventConnect, func(json.RawMessage) {
		c.logger.Debug().Msg("connection established")
	})
	c.channel.On(eventLoggedIn, c.handleLoggedIn)
	c.channel.On(eventMessage, c.handleMessage)
	c.channel.On(eventNewConnection, c.handleNewConnection)
	c.channel.On(eventDisconnect, c.handleDisconnect)
}

// handleLoggedIn confirms the pending registration and kicks off the
// roster pull and the backlog seed. The two fetches touch disjoint
// state and may resolve in either order. A duplicate confirmation is a
// no-op, so neither fetch runs twice per login.
func (c *Client) handleLoggedIn(json.RawMessage) {
	if !c.session.confirm(c.channel.ID()) {
		c.logger.Debug().Msg("ignoring duplicate login confirmation")
		return
	}
	c.logger.Info().Str("room", string(c.room.Active())).Msg("logged in")
	c.notifySessionState()

	go c.refreshPresence()
	go c.seedHistory()
}

// handleMessage appends one remote message to the history, sender
// included: the server relays to everyone in the room.
func (c *Client) handleMessage(data json.RawMessage) {
	var msg Message
	if err := UnmarshalData(data, &msg); err != nil {
		c.fireError(WrapError(ErrorSerialization, "decode message event", err))
		return
	}
	if msg.Sender == "" {
		c.fireError(NewError(ErrorSerialization, "message event without sender"))
		return
	}
	c.log.Append(msg)
	c.notifyMessage(msg)
}

// handleNewConnection reacts to the payload-less roster invalidation by
// pulling a fresh roster. Before login the push is irrelevant to this
// client and is dropped.
func (c *Client) handleNewConnection(json.RawMessage) {
	if c.session.State() != SessionActive {
		return
	}
	c.logger.Debug().Msg("roster invalidated, refreshing")
	go c.refreshPresence()
}

// handleDisconnect reverts the session to anonymous and clears the
// roster, disabling message submission until the user logs in again.
// The history stays readable; the next login replaces it wholesale.
func (c *Client) handleDisconnect(json.RawMessage) {
	c.logger.Warn().Msg("connection lost")
	c.session.reset()
	c.present.Clear()
	c.notifySessionState()
}

func (c *Client) refreshPresence() {
	if err := c.present.Refresh(context.Background(), c.roster); err != nil {
		c.logger.Warn().Err(err).Msg("online users refresh failed")
		c.fireError(err)
		return
	}
	c.notifyPresence()
}

func (c *Client) seedHistory() {
	msgs, err := c.backlog.History(context.Background(), c.room.Active())
	if err != nil {
		c.logger.Warn().Err(err).Msg("backlog fetch failed")
		c.fireError(WrapError(ErrorFetch, "fetch room backlog", err))
		return
	}
	c.log.Replace(msgs)
	c.logger.Debug().Int("messages", len(msgs)).Msg("backlog seeded")
}

// BacklogFetcher pulls a room's persisted message history, used once
// per login to seed the local log.
type BacklogFetcher interface {
	History(ctx context.Context, room Room) ([]Message, error)
}

// restRoster adapts the REST client to the RosterFetcher interface.
type restRoster struct {
	rc *rest.Client
}

func (r restRoster) OnlineUsers(ctx context.Context) ([]User, error) {
	users, err := r.rc.OnlineUsers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]User, 0, len(users))
	for _, u := range users {
		out = append(out, User{ID: u.ID, Username: u.Username, Room: Room(u.Room)})
	}
	return out, nil
}

// restBacklog adapts the REST client to the BacklogFetcher interface.
type restBacklog struct {
	rc *rest.Client
}

func (r restBacklog) History(ctx context.Context, room Room) ([]Message, error) {
	msgs, err := r.rc.History(ctx, string(room))
	if err != nil {
		return nil, err
	}
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, Message{Text: m.Text, Sender: m.Sender, Timestamp: m.Timestamp, ID: m.ID})
	}
	return out, nil
}

func (c *Client) notifySessionState() {
	c.cbMu.Lock()
	fn := c.onSessionState
	c.cbMu.Unlock()
	if fn != nil {
		fn(c.session.State())
	}
}

func (c *Client) notifyMessage(msg Message) {
	c.cbMu.Lock()
	fn := c.onMessage
	c.cbMu.Unlock()
	if fn != nil {
		fn(msg)
	}
}

func (c *Client) notifyPresence() {
	c.cbMu.Lock()
	fn := c.onPresence
	c.cbMu.Unlock()
	if fn != nil {
		fn(c.present.All())
	}
}

func (c *Client) fireError(err error) {
	c.cbMu.Lock()
	fn := c.onError
	c.cbMu.Unlock()
	if fn != nil && err != nil {
		fn(err)
	}
}
