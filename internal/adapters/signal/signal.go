package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/echolink/echolink/internal/app"
	"github.com/echolink/echolink/internal/core"
	"github.com/echolink/echolink/internal/transcribe"
)

var ErrBackpressure = errors.New("backpressure")

// Options carries transport tunables from config.
type Options struct {
	ReadLimit  int64
	PingPeriod time.Duration
	QueueCap   int
	KeepAlive  time.Duration
}

// SignalWSController owns the websocket endpoint: one connection per
// participant, one read and one write pump each, events dispatched to the
// coordinator.
type SignalWSController struct {
	Coord      *app.Coordinator
	Recognizer core.Recognizer
	Opts       Options
}

func NewSignalWSController(coord *app.Coordinator, rec core.Recognizer, opts Options) *SignalWSController {
	return &SignalWSController{Coord: coord, Recognizer: rec, Opts: opts}
}

type wsConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *wsConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the request and runs the connection until it drops.
// The session id is per socket; the cookie token only identifies the client
// across page loads.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	sid := core.SessionID(uuid.NewString())
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("ct", c.GetString("client_token")).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Msg("ws upgrade")
		return
	}
	if ctl.Opts.ReadLimit > 0 {
		ws.SetReadLimit(ctl.Opts.ReadLimit)
	}

	conn := &wsConn{
		conn: ws,
		send: make(chan core.Frame, 32),
	}

	ctx, cancel := context.WithCancel(ctx)
	ctl.Coord.Registry.Bind(sid, conn, cancel)

	sess := transcribe.NewSession(
		sid,
		ctl.Recognizer,
		transcribe.Config{QueueCap: ctl.Opts.QueueCap, KeepAlive: ctl.Opts.KeepAlive},
		func() { ctl.sendJSON(conn, evSimple{Type: "transcription-started"}) },
		func(tctx context.Context, text string) { ctl.Coord.DeliverTranscript(tctx, sid, text) },
	)

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, sid, conn, sess)
}
