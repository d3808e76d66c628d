package chatline

// ConnectionState represents the current state of the underlying channel.
type ConnectionState int

const (
	// StateDisconnected means the channel is not connected.
	StateDisconnected ConnectionState = iota

	// StateConnected means the channel is connected and events flow.
	StateConnected

	// StateClosed means the channel has been explicitly closed.
	StateClosed
)

// String returns the string representation of a ConnectionState.
func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// SessionState is the login lifecycle of this client.
type SessionState int

const (
	// SessionAnonymous means no identity has been submitted yet.
	// This is the initial state and the state after a disconnect.
	SessionAnonymous SessionState = iota

	// SessionPending means a registration request is in flight and the
	// client is waiting for the server's confirmation.
	SessionPending

	// SessionActive means the server confirmed the identity; the client
	// may send messages and reacts to roster invalidations.
	SessionActive
)

// String returns the string representation of a SessionState.
func (s SessionState) String() string {
	switch s {
	case SessionAnonymous:
		return "anonymous"
	case SessionPending:
		return "pending"
	case SessionActive:
		return "active"
	default:
		return "unknown"
	}
}
