package chatline

import "encoding/json"

const (
	// Synthetic events fired by the channel itself, never sent on the wire.
	eventConnect    = "connect"
	eventDisconnect = "disconnect"

	// Client -> server.
	eventSetUsername = "setUsername"
	eventSendMessage = "sendmessage"

	// Server -> client.
	eventLoggedIn      = "loggedin"
	eventNewConnection = "newConnection"
	eventMessage       = "message"
)

// Envelope frames every event on the wire in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// RegisterPayload carries the login request.
type RegisterPayload struct {
	Username string `json:"username"`
	Room     Room   `json:"room"`
}

// SendMessagePayload asks the server to relay a message to a room.
type SendMessagePayload struct {
	Message Message `json:"message"`
	Room    Room    `json:"room"`
}

// UnmarshalData decodes an envelope payload into target.
func UnmarshalData(data json.RawMessage, v any) error {
	return json.Unmarshal(data, v)
}
