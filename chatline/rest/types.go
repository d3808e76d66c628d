package rest

// User is one roster entry as returned by the online-users endpoint.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Room     string `json:"room"`
}

// OnlineUsersResponse wraps the roster payload.
type OnlineUsersResponse struct {
	OnlineUsers []User `json:"onlineUsers"`
}

// Message is one backlog entry as returned by the chat endpoint.
type Message struct {
	Text      string `json:"text"`
	Sender    string `json:"sender"`
	Timestamp int64  `json:"timestamp"`
	ID        string `json:"id"`
}

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error string `json:"error"`
}
