// Package transcribe owns the per-connection bridge between a participant's
// audio and the external speech recognizer.
package transcribe

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/echolink/echolink/internal/core"
)

type state int

const (
	stateIdle state = iota
	stateStarting
	stateStreaming
)

const (
	DefaultQueueCap  = 60
	DefaultKeepAlive = 15 * time.Second
)

// Config tunes the audio queue bound and the upstream keep-alive cadence.
type Config struct {
	QueueCap  int
	KeepAlive time.Duration
}

// TranscriptFunc receives one recognized utterance. ctx is the session
// context; it is cancelled on stop so late fan-out can be suppressed.
type TranscriptFunc func(ctx context.Context, text string)

// Session is the transcription state machine for one connection:
// idle -> starting -> streaming -> idle. It owns the upstream stream handle,
// the keep-alive loop and a bounded FIFO of audio chunks awaiting the
// stream. No other connection may observe or mutate it.
type Session struct {
	sid          core.SessionID
	rec          core.Recognizer
	queueCap     int
	keepAlive    time.Duration
	onStarted    func()
	onTranscript TranscriptFunc

	mu     sync.Mutex
	st     state
	gen    uint64
	stream core.RecognitionStream
	queue  [][]byte
	ctx    context.Context
	cancel context.CancelFunc
}

// streamHandler tags upstream callbacks with the lifecycle they belong to.
// A dial result or close event from a torn-down lifecycle must never touch
// a later one.
type streamHandler struct {
	s   *Session
	gen uint64
}

func (h streamHandler) OnTranscript(text string) { h.s.handleTranscript(h.gen, text) }
func (h streamHandler) OnClosed(err error)       { h.s.handleClosed(h.gen, err) }

func NewSession(sid core.SessionID, rec core.Recognizer, cfg Config, onStarted func(), onTranscript TranscriptFunc) *Session {
	if cfg.QueueCap <= 0 {
		cfg.QueueCap = DefaultQueueCap
	}
	if cfg.KeepAlive <= 0 {
		cfg.KeepAlive = DefaultKeepAlive
	}
	return &Session{
		sid:          sid,
		rec:          rec,
		queueCap:     cfg.QueueCap,
		keepAlive:    cfg.KeepAlive,
		onStarted:    onStarted,
		onTranscript: onTranscript,
	}
}

// Start opens the upstream stream asynchronously. Re-entrant starts while a
// session already exists are no-ops.
func (s *Session) Start(parent context.Context) {
	s.mu.Lock()
	if s.st != stateIdle {
		s.mu.Unlock()
		return
	}
	s.st = stateStarting
	s.gen++
	gen := s.gen
	s.queue = nil
	ctx, cancel := context.WithCancel(parent)
	s.ctx, s.cancel = ctx, cancel
	s.mu.Unlock()

	log.Info().Str("module", "transcribe").Str("sid", string(s.sid)).Msg("opening recognition stream")
	go s.open(ctx, gen)
}

func (s *Session) open(ctx context.Context, gen uint64) {
	stream, err := s.rec.OpenStream(ctx, streamHandler{s: s, gen: gen})
	if err != nil {
		log.Error().Err(err).Str("module", "transcribe").Str("sid", string(s.sid)).Msg("open recognition stream")
		s.mu.Lock()
		if gen == s.gen && s.st == stateStarting {
			s.teardownLocked()
		}
		s.mu.Unlock()
		return
	}

	s.mu.Lock()
	if gen != s.gen || s.st != stateStarting {
		// Stopped or restarted while dialing.
		s.mu.Unlock()
		_ = stream.Close()
		return
	}
	s.stream = stream
	for _, chunk := range s.queue {
		if err := stream.Send(chunk); err != nil {
			log.Warn().Err(err).Str("module", "transcribe").Str("sid", string(s.sid)).Msg("flush chunk")
			break
		}
	}
	s.queue = nil
	s.st = stateStreaming
	s.mu.Unlock()

	go s.keepAliveLoop(ctx, stream)
	log.Info().Str("module", "transcribe").Str("sid", string(s.sid)).Msg("recognition stream ready")
	if s.onStarted != nil {
		s.onStarted()
	}
}

// Push forwards one raw audio chunk when streaming; otherwise it enqueues
// it, dropping the oldest chunk past the queue cap.
func (s *Session) Push(chunk []byte) {
	s.mu.Lock()
	if s.st == stateStreaming && s.stream != nil {
		stream := s.stream
		s.mu.Unlock()
		if err := stream.Send(chunk); err != nil {
			log.Warn().Err(err).Str("module", "transcribe").Str("sid", string(s.sid)).Msg("send chunk")
		}
		return
	}
	s.queue = append(s.queue, chunk)
	if len(s.queue) > s.queueCap {
		s.queue = s.queue[1:]
	}
	s.mu.Unlock()
}

// Stop closes the upstream stream, cancels the keep-alive loop and any
// in-flight fan-out, and discards the buffer. Idempotent.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.st == stateIdle {
		s.mu.Unlock()
		return
	}
	s.teardownLocked()
	s.mu.Unlock()
	log.Info().Str("module", "transcribe").Str("sid", string(s.sid)).Msg("transcription ended")
}

func (s *Session) teardownLocked() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.stream != nil {
		_ = s.stream.Close()
		s.stream = nil
	}
	s.queue = nil
	s.st = stateIdle
}

// handleTranscript runs on the stream's read goroutine. Transcripts from a
// previous lifecycle are dropped.
func (s *Session) handleTranscript(gen uint64, text string) {
	s.mu.Lock()
	if gen != s.gen || s.st != stateStreaming {
		s.mu.Unlock()
		return
	}
	ctx := s.ctx
	s.mu.Unlock()
	if s.onTranscript == nil {
		return
	}
	s.onTranscript(ctx, text)
}

// handleClosed treats an upstream close or error as an unsolicited stop. The
// session does not restart itself; a close from a superseded lifecycle is a
// no-op.
func (s *Session) handleClosed(gen uint64, err error) {
	s.mu.Lock()
	if gen != s.gen || s.st == stateIdle {
		s.mu.Unlock()
		return
	}
	s.teardownLocked()
	s.mu.Unlock()
	if err != nil {
		log.Warn().Err(err).Str("module", "transcribe").Str("sid", string(s.sid)).Msg("recognition stream closed")
		return
	}
	log.Info().Str("module", "transcribe").Str("sid", string(s.sid)).Msg("recognition stream closed")
}

func (s *Session) keepAliveLoop(ctx context.Context, stream core.RecognitionStream) {
	t := time.NewTicker(s.keepAlive)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := stream.KeepAlive(); err != nil {
				log.Warn().Err(err).Str("module", "transcribe").Str("sid", string(s.sid)).Msg("keepalive")
				return
			}
		}
	}
}
