package app

import (
	"github.com/echolink/echolink/internal/core"
)

// Host authority state machine. Every entry point is gated inside the store
// on the actor being the current host; non-host events are silent no-ops.
// Per-participant transitions push a direct notification to the affected
// connection and then a full room snapshot; room-wide transitions broadcast
// to the whole room.

// MuteAll locks audio for every participant except the host.
func (c *Coordinator) MuteAll(sid core.SessionID) {
	code, ok := c.Registry.RoomOf(sid)
	if !ok {
		return
	}
	muted := c.Store.LockAudioAll(code, sid)
	if muted == nil {
		return
	}
	for _, id := range muted {
		c.emit(id, evSimple{Type: "force-mute"})
	}
	c.updateParticipants(code)
}

func (c *Coordinator) MuteUser(sid, target core.SessionID) {
	c.setFlag(sid, target, FlagAudio, true, "force-mute")
}

func (c *Coordinator) UnmuteUser(sid, target core.SessionID) {
	c.setFlag(sid, target, FlagAudio, false, "unlock-audio")
}

func (c *Coordinator) StopVideoUser(sid, target core.SessionID) {
	c.setFlag(sid, target, FlagVideo, true, "force-stop-video")
}

func (c *Coordinator) StartVideoUser(sid, target core.SessionID) {
	c.setFlag(sid, target, FlagVideo, false, "unlock-video")
}

func (c *Coordinator) setFlag(sid, target core.SessionID, flag FlagKind, locked bool, notify string) {
	code, ok := c.Registry.RoomOf(sid)
	if !ok {
		return
	}
	if !c.Store.SetParticipantFlag(code, sid, target, flag, locked) {
		return
	}
	c.emit(target, evSimple{Type: notify})
	c.updateParticipants(code)
}

// SetChatLock toggles the room-wide chat lock and tells the whole room.
func (c *Coordinator) SetChatLock(sid core.SessionID, lock bool) {
	code, ok := c.Registry.RoomOf(sid)
	if !ok {
		return
	}
	if !c.Store.SetRoomLock(code, sid, LockChat, lock) {
		return
	}
	c.broadcast(code, evLockStatus{Type: "chat-lock-status", Lock: lock})
}

// SetScreenLock toggles the room-wide screen lock and tells the whole room.
func (c *Coordinator) SetScreenLock(sid core.SessionID, lock bool) {
	code, ok := c.Registry.RoomOf(sid)
	if !ok {
		return
	}
	if !c.Store.SetRoomLock(code, sid, LockScreen, lock) {
		return
	}
	c.broadcast(code, evLockStatus{Type: "screen-lock-status", Lock: lock})
}
