package chatline

// Identity is the logged-in user as seen by this client.
// ID is the opaque connection-scoped token stamped at dial time;
// Name is the user-chosen display name (not guaranteed unique).
type Identity struct {
	ID   string `json:"id"`
	Name string `json:"username"`
}

// User is one entry of the online roster. The roster always carries
// every connected user regardless of room; filtering by the active
// room is a view concern.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Room     Room   `json:"room"`
}

// Message is a single chat message. Timestamp is milliseconds since
// epoch; ID is the sender's connection token, not a message id.
type Message struct {
	Text      string `json:"text"`
	Sender    string `json:"sender"`
	Timestamp int64  `json:"timestamp"`
	ID        string `json:"id"`
}
