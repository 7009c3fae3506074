package app

import (
	"github.com/echolink/echolink/internal/core"
)

// ScreenShareStart claims screen ownership. When the screen lock is on the
// requester alone gets a blocked notification and nothing changes; otherwise
// the claim displaces any previous owner without a compare-and-swap.
func (c *Coordinator) ScreenShareStart(sid core.SessionID) {
	code, ok := c.Registry.RoomOf(sid)
	if !ok {
		return
	}
	ok, blocked := c.Store.StartScreenShare(code, sid)
	if blocked {
		c.emit(sid, evSimple{Type: "screen-share-blocked"})
		return
	}
	if !ok {
		return
	}
	c.broadcast(code, evScreenShare{Type: "screen-share-started", Owner: sid})
}

// ScreenShareStop clears ownership only when the caller owns the screen,
// but always broadcasts the stopped event with the caller's id.
func (c *Coordinator) ScreenShareStop(sid core.SessionID) {
	code, ok := c.Registry.RoomOf(sid)
	if !ok {
		return
	}
	if !c.Store.StopScreenShare(code, sid) {
		return
	}
	c.broadcast(code, evScreenShare{Type: "screen-share-stopped", Owner: sid})
}
