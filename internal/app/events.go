package app

import (
	"encoding/json"

	"github.com/echolink/echolink/internal/core"
)

// Outbound wire events. Every frame carries a "type" tag; payload fields
// mirror what the web client consumes.

type evSimple struct {
	Type string `json:"type"`
}

type evHostStatus struct {
	Type   string `json:"type"`
	IsHost bool   `json:"isHost"`
}

type evExistingParticipants struct {
	Type         string                 `json:"type"`
	Participants []core.ParticipantView `json:"participants"`
}

type evNewParticipant struct {
	Type string         `json:"type"`
	ID   core.SessionID `json:"id"`
	Name string         `json:"name"`
}

type evRoomLocks struct {
	Type string `json:"type"`
	core.RoomLocks
}

type evParticipantsUpdate struct {
	Type         string                 `json:"type"`
	Participants []core.ParticipantView `json:"participants"`
}

type evSignal struct {
	Type    string          `json:"type"`
	From    core.SessionID  `json:"from"`
	Payload json.RawMessage `json:"payload"`
}

type evChatMessage struct {
	Type   string `json:"type"`
	Body   string `json:"data"`
	Sender string `json:"sender"`
}

type evUserLeft struct {
	Type string         `json:"type"`
	ID   core.SessionID `json:"id"`
}

type evLockStatus struct {
	Type string `json:"type"`
	Lock bool   `json:"lock"`
}

type evScreenShare struct {
	Type  string         `json:"type"`
	Owner core.SessionID `json:"owner"`
}

type evTranscriptionResult struct {
	Type       string         `json:"type"`
	Sender     string         `json:"sender"`
	SenderID   core.SessionID `json:"senderId"`
	Text       string         `json:"text"`
	Translated *string        `json:"translated"`
	Lang       string         `json:"lang"`
}
