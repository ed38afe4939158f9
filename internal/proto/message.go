// Package proto defines the wire shapes exchanged with chat clients.
package proto

// TimestampFormat is the layout clients render verbatim.
const TimestampFormat = "2006-01-02 15:04:05"

// Inbound is what a client sends: just the message text. The pointer
// distinguishes a payload without the message key (malformed, dropped) from
// an empty message, which is broadcast like any other.
type Inbound struct {
	Message *string `json:"message"`
}

// Outbound is a chat message on its way to a client, live or replayed.
type Outbound struct {
	Message   string `json:"message"`
	Username  string `json:"username"`
	Timestamp string `json:"timestamp"`
}

// Notice is a non-fatal advisory addressed to a single client.
type Notice struct {
	Notice string `json:"notice"`
}
