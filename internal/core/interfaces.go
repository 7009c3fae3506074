package core

import "github.com/echolink/echolink/internal/domain"

// Frame is a marshaled outbound event or a raw binary payload.
type Frame []byte

// SessionID is the opaque per-socket identity established at connection time.
type SessionID string

// SignalConnection abstracts a system messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// ParticipantView is a read-only view for wire events (no transport fields).
type ParticipantView struct {
	ID          SessionID `json:"id"`
	Name        string    `json:"name"`
	LockedAudio bool      `json:"lockedAudio"`
	LockedVideo bool      `json:"lockedVideo"`
	Lang        string    `json:"lang"`
}

// RoomLocks is the room-wide lock snapshot sent to a joining participant.
type RoomLocks struct {
	ChatLock    bool      `json:"chatLock"`
	ScreenLock  bool      `json:"screenLock"`
	ScreenOwner SessionID `json:"screenOwner,omitempty"`
}

// RoomInfo is a lightweight listing entry for the rooms API.
type RoomInfo struct {
	Code        domain.RoomCode `json:"code"`
	MemberCount int             `json:"client_count"`
}
