package app

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/echolink/echolink/internal/core"
	"github.com/echolink/echolink/internal/domain"
)

// Coordinator is the orchestration layer: every inbound event mutates the
// RoomStore and emits outbound events to one, several, or all connections
// in a room. It owns host election side effects and disconnect cleanup.
type Coordinator struct {
	Registry   *Registry
	Store      *RoomStore
	Translator core.Translator
}

func NewCoordinator(reg *Registry, store *RoomStore, tr core.Translator) *Coordinator {
	return &Coordinator{Registry: reg, Store: store, Translator: tr}
}

func (c *Coordinator) emit(sid core.SessionID, v any) {
	conn, ok := c.Registry.Conn(sid)
	if !ok {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.coordinator").Msg("emit marshal")
		return
	}
	if err := conn.TrySend(core.Frame(b)); err != nil {
		log.Warn().Err(err).Str("module", "app.coordinator").Str("sid", string(sid)).Msg("emit dropped")
	}
}

func (c *Coordinator) broadcast(code domain.RoomCode, v any) {
	for _, sid := range c.Store.Members(code) {
		c.emit(sid, v)
	}
}

func (c *Coordinator) broadcastExcept(code domain.RoomCode, except core.SessionID, v any) {
	for _, sid := range c.Store.Members(code) {
		if sid == except {
			continue
		}
		c.emit(sid, v)
	}
}

func (c *Coordinator) updateParticipants(code domain.RoomCode) {
	snap, ok := c.Store.Snapshot(code)
	if !ok {
		return
	}
	c.broadcast(code, evParticipantsUpdate{Type: "participants-update", Participants: snap})
}

// Join places the connection into the room, creating it lazily. The creator
// becomes host. A connection already in a room is moved out of it first.
func (c *Coordinator) Join(sid core.SessionID, code domain.RoomCode, name string) {
	if _, ok := c.Registry.RoomOf(sid); ok {
		c.leaveRoom(sid)
	}

	res := c.Store.AddParticipant(code, sid, name)
	c.Registry.SetRoom(sid, code)
	log.Info().Str("module", "app.coordinator").Str("sid", string(sid)).Str("room", string(code)).Bool("host", res.IsHost).Msg("join")

	c.emit(sid, evHostStatus{Type: "host-status", IsHost: res.IsHost})
	c.emit(sid, evExistingParticipants{Type: "existing-participants", Participants: res.Others})
	joinedName, _ := c.Store.ParticipantName(code, sid)
	c.broadcastExcept(code, sid, evNewParticipant{Type: "new-participant", ID: sid, Name: joinedName})
	c.emit(sid, evRoomLocks{Type: "room-locks", RoomLocks: res.Locks})
	c.updateParticipants(code)
}

// Disconnect releases everything the connection owned in its room and
// removes it from the registry. Idempotent.
func (c *Coordinator) Disconnect(sid core.SessionID) {
	c.leaveRoom(sid)
	c.Registry.Unbind(sid)
}

// leaveRoom removes sid from its current room and notifies the remainder:
// departure, fresh snapshot, screen release, and host promotion. The store
// removal is a single atomic step, so no broadcast observes a half-cleaned
// room. Only the promoted participant learns about its promotion.
func (c *Coordinator) leaveRoom(sid core.SessionID) {
	code, ok := c.Registry.RoomOf(sid)
	if !ok {
		return
	}
	res, ok := c.Store.RemoveParticipant(code, sid)
	c.Registry.ClearRoom(sid)
	if !ok {
		return
	}
	log.Info().Str("module", "app.coordinator").Str("sid", string(sid)).Str("room", string(code)).Str("name", res.Name).Msg("left room")

	c.broadcast(code, evUserLeft{Type: "user-left", ID: sid})
	c.updateParticipants(code)
	if res.ScreenReleased {
		c.broadcast(code, evScreenShare{Type: "screen-share-stopped", Owner: sid})
	}
	if res.Promoted != "" {
		c.emit(res.Promoted, evHostStatus{Type: "host-status", IsHost: true})
	}
}

// SetLanguage records the participant's preferred transcript language.
func (c *Coordinator) SetLanguage(sid core.SessionID, lang string) {
	code, ok := c.Registry.RoomOf(sid)
	if !ok {
		return
	}
	if c.Store.SetLanguage(code, sid, lang) {
		c.updateParticipants(code)
	}
}

// Relay forwards an opaque negotiation payload to one peer. The payload is
// never parsed; a dead target drops the message silently.
func (c *Coordinator) Relay(from, to core.SessionID, payload json.RawMessage) {
	c.emit(to, evSignal{Type: "signal", From: from, Payload: payload})
}

// Chat appends to the room log and broadcasts to everyone else, unless chat
// is locked, in which case only the sender is told it was blocked.
func (c *Coordinator) Chat(sid core.SessionID, body string) {
	code, ok := c.Registry.RoomOf(sid)
	if !ok {
		return
	}
	sender, _ := c.Store.ParticipantName(code, sid)
	blocked, ok := c.Store.AppendChat(code, domain.ChatEntry{Sender: sender, Body: body})
	if !ok {
		return
	}
	if blocked {
		c.emit(sid, evSimple{Type: "chat-blocked"})
		return
	}
	c.broadcastExcept(code, sid, evChatMessage{Type: "chat-message", Body: body, Sender: sender})
}
