package chatline

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/url"
	"sync"

	"github.com/chatline/chatline-sdk-go/chatline/internal"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Handler consumes one inbound event payload. Payload-less events pass
// nil data.
type Handler func(data json.RawMessage)

// Channel is one long-lived duplex event connection to the server.
//
// Registration is additive: every handler registered for an event name
// fires once per arrival, in registration order. Handlers are invoked
// from a single loop, so two handlers never run concurrently. Emit is
// fire-and-forget; any acknowledgment arrives as a separate event.
type Channel interface {
	Connect(ctx context.Context) error
	On(event string, fn Handler)
	Emit(ctx context.Context, event string, data any) error

	// ID is the opaque connection-scoped token, empty before Connect.
	ID() string
	State() ConnectionState
	Close() error
}

// wsChannel implements Channel over a websocket with a read loop for
// dispatch and a buffered write loop for emits.
type wsChannel struct {
	cfg    Config
	logger zerolog.Logger

	conn    *internal.Conn
	writeCh chan Envelope
	cancel  context.CancelFunc

	mu       sync.Mutex
	state    ConnectionState
	id       string
	handlers map[string][]Handler
}

func newWSChannel(cfg Config, logger zerolog.Logger) *wsChannel {
	return &wsChannel{
		cfg:      cfg,
		logger:   logger,
		writeCh:  make(chan Envelope, 16),
		handlers: make(map[string][]Handler),
	}
}

// Connect dials the server and starts the internal loops. On success
// the synthetic connect event fires before the method returns.
func (c *wsChannel) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateConnected {
		c.mu.Unlock()
		return NewError(ErrorConnection, "already connected")
	}
	c.mu.Unlock()

	if c.cfg.URL == "" {
		return NewError(ErrorInvalidConfig, "empty URL")
	}
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return WrapError(ErrorInvalidConfig, "parse URL", err)
	}

	dialCtx := ctx
	if c.cfg.HandshakeTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, c.cfg.HandshakeTimeout)
		defer cancel()
	}

	ws, _, err := websocket.Dial(dialCtx, u.String(), nil)
	if err != nil {
		return WrapError(ErrorConnection, "dial", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.conn = internal.NewConn(ws, c.cfg.ReadTimeout, c.cfg.WriteTimeout)
	c.cancel = cancel
	c.state = StateConnected
	c.id = uuid.New().String()
	c.mu.Unlock()

	c.dispatch(eventConnect, nil)

	go c.readLoop(runCtx)
	go c.writeLoop(runCtx)
	return nil
}

// On registers an additional handler for an event name.
func (c *wsChannel) On(event string, fn Handler) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	c.handlers[event] = append(c.handlers[event], fn)
	c.mu.Unlock()
}

// Emit queues one event for sending and returns without waiting for
// the server.
func (c *wsChannel) Emit(ctx context.Context, event string, data any) error {
	c.mu.Lock()
	connected := c.state == StateConnected
	c.mu.Unlock()
	if !connected {
		return NewError(ErrorNotConnected, "emit "+event)
	}

	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return WrapError(ErrorSerialization, "marshal "+event, err)
		}
		raw = b
	}

	select {
	case c.writeCh <- Envelope{Event: event, Data: raw}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *wsChannel) ID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id
}

func (c *wsChannel) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Close shuts the channel down without firing the disconnect event.
func (c *wsChannel) Close() error {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.state = StateClosed
	conn := c.conn
	c.mu.Unlock()
	if conn != nil {
		return conn.Close(websocket.StatusNormalClosure, "client close")
	}
	return nil
}

func (c *wsChannel) dispatch(event string, data json.RawMessage) {
	c.mu.Lock()
	fns := append([]Handler(nil), c.handlers[event]...)
	c.mu.Unlock()
	for _, fn := range fns {
		fn(data)
	}
}

func (c *wsChannel) readLoop(ctx context.Context) {
	for {
		var env Envelope
		if err := c.conn.ReadJSON(ctx, &env); err != nil {
			if c.markDisconnected() {
				if !isExpectedDisconnect(ctx, err) {
					c.logger.Warn().Err(err).Msg("read loop exit")
				}
				c.dispatch(eventDisconnect, nil)
			}
			return
		}
		c.dispatch(env.Event, env.Data)
	}
}

func (c *wsChannel) writeLoop(ctx context.Context) {
	for {
		select {
		case env := <-c.writeCh:
			if err := c.conn.WriteJSON(ctx, env); err != nil {
				c.logger.Warn().Err(err).Str("event", env.Event).Msg("write loop exit")
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// markDisconnected flips connected -> disconnected and reports whether
// this call did the flip. An explicit Close does not count: the state
// is already closed by then and no disconnect event should fire.
func (c *wsChannel) markDisconnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateConnected {
		return false
	}
	c.state = StateDisconnected
	if c.cancel != nil {
		c.cancel()
	}
	return true
}

func isExpectedDisconnect(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	if ctx != nil && ctx.Err() != nil {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		return true
	}
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	default:
		return false
	}
}
