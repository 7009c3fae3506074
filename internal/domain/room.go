package domain

// RoomCode identifies a room. It is derived from the client-supplied
// URL path, never generated server side.
type RoomCode string

// ChatEntry is one message in a room's in-memory chat log.
type ChatEntry struct {
	Sender string `json:"sender"`
	Body   string `json:"data"`
}
