package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/echolink/echolink/internal/core"
	"github.com/echolink/echolink/internal/transcribe"
)

type evSimple struct {
	Type string `json:"type"`
}

func (ctl *SignalWSController) writePump(ctx context.Context, c *wsConn) {
	var ping <-chan time.Time
	if ctl.Opts.PingPeriod > 0 {
		t := time.NewTicker(ctl.Opts.PingPeriod)
		defer t.Stop()
		ping = t.C
	}
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			return
		case <-ping:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump ping")
				return
			}
		case data, ok := <-c.send:
			if !ok {
				log.Warn().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

// readPump processes inbound events in arrival order. Its deferred cleanup
// is the single exit path for a connection: transcription session, room
// slot and screen ownership are released before anyone else can observe a
// partial state.
func (ctl *SignalWSController) readPump(ctx context.Context, sid core.SessionID, c *wsConn, sess *transcribe.Session) {
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump closing")
		sess.Stop()
		ctl.Coord.Registry.Cancel(sid)
		ctl.Coord.Disconnect(sid)
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump ctx done")
			return
		default:
			mt, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Info().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("readPump read error")
				return
			}
			if mt == websocket.BinaryMessage {
				sess.Push(data)
				continue
			}
			if !ctl.handleEvent(ctx, sid, c, sess, data) {
				return
			}
		}
	}
}

// handleEvent dispatches one inbound frame. Returns false when the
// connection asked to disconnect.
func (ctl *SignalWSController) handleEvent(ctx context.Context, sid core.SessionID, c *wsConn, sess *transcribe.Session, data []byte) bool {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		return true
	}

	switch env.Type {
	case "join":
		ctl.handleJoin(sid, data)
	case "set-language":
		ctl.handleSetLanguage(sid, data)
	case "signal":
		ctl.handleRelay(sid, data)
	case "chat-message":
		ctl.handleChat(sid, data)
	case "host-mute-all":
		ctl.Coord.MuteAll(sid)
	case "host-mute-user":
		ctl.handleTargeted(sid, data, ctl.Coord.MuteUser)
	case "host-unmute-user":
		ctl.handleTargeted(sid, data, ctl.Coord.UnmuteUser)
	case "host-stop-video":
		ctl.handleTargeted(sid, data, ctl.Coord.StopVideoUser)
	case "host-start-video":
		ctl.handleTargeted(sid, data, ctl.Coord.StartVideoUser)
	case "host-chat-lock":
		ctl.handleLockToggle(sid, data, ctl.Coord.SetChatLock)
	case "host-screen-lock":
		ctl.handleLockToggle(sid, data, ctl.Coord.SetScreenLock)
	case "screen-share-start":
		ctl.Coord.ScreenShareStart(sid)
	case "screen-share-stop":
		ctl.Coord.ScreenShareStop(sid)
	case "start-transcription":
		sess.Start(ctx)
	case "end-transcription":
		sess.Stop()
	case "audio-chunk":
		ctl.handleAudioChunk(sid, sess, data)
	case "disconnect":
		return false
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown signal")
	}
	return true
}

func (ctl *SignalWSController) sendJSON(c *wsConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}
