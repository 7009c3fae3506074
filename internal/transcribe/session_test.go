package transcribe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/echolink/echolink/internal/core"
)

type fakeStream struct {
	mu         sync.Mutex
	sent       [][]byte
	closed     bool
	keepalives int
}

func (f *fakeStream) Send(chunk []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("stream closed")
	}
	cp := make([]byte, len(chunk))
	copy(cp, chunk)
	f.sent = append(f.sent, cp)
	return nil
}

func (f *fakeStream) KeepAlive() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("stream closed")
	}
	f.keepalives++
	return nil
}

func (f *fakeStream) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeStream) sentChunks() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.sent))
	copy(out, f.sent)
	return out
}

func (f *fakeStream) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// fakeRecognizer blocks OpenStream until released, standing in for the
// upstream dial latency.
type fakeRecognizer struct {
	release chan struct{}
	dialErr error

	mu      sync.Mutex
	stream  *fakeStream
	handler core.StreamHandler
	opens   int
}

func newFakeRecognizer() *fakeRecognizer {
	return &fakeRecognizer{release: make(chan struct{})}
}

func (r *fakeRecognizer) OpenStream(ctx context.Context, h core.StreamHandler) (core.RecognitionStream, error) {
	select {
	case <-r.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if r.dialErr != nil {
		return nil, r.dialErr
	}
	st := &fakeStream{}
	r.mu.Lock()
	r.stream = st
	r.handler = h
	r.opens++
	r.mu.Unlock()
	return st, nil
}

func (r *fakeRecognizer) current() (*fakeStream, core.StreamHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stream, r.handler
}

func chunk(i int) []byte {
	return []byte(fmt.Sprintf("chunk-%02d", i))
}

func startedSession(rec *fakeRecognizer) (*Session, chan struct{}) {
	started := make(chan struct{}, 1)
	s := NewSession("p1", rec, Config{KeepAlive: time.Hour},
		func() { started <- struct{}{} },
		nil,
	)
	return s, started
}

func waitStarted(t *testing.T, started chan struct{}) {
	t.Helper()
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("session never reported started")
	}
}

func TestBufferSlidingWindowAndFlushOrder(t *testing.T) {
	rec := newFakeRecognizer()
	s, started := startedSession(rec)
	s.Start(context.Background())

	// Upstream not ready: 65 chunks arrive, the 60 most recent survive.
	for i := 0; i < 65; i++ {
		s.Push(chunk(i))
	}

	close(rec.release)
	waitStarted(t, started)

	st, _ := rec.current()
	sent := st.sentChunks()
	if len(sent) != 60 {
		t.Fatalf("flushed %d chunks, want 60", len(sent))
	}
	for i, got := range sent {
		if want := chunk(i + 5); !bytes.Equal(got, want) {
			t.Fatalf("flush[%d] = %q, want %q (no duplication or reorder)", i, got, want)
		}
	}

	// Newly arriving chunks go out after the flush, immediately.
	s.Push(chunk(99))
	sent = st.sentChunks()
	if len(sent) != 61 || !bytes.Equal(sent[60], chunk(99)) {
		t.Fatalf("post-flush chunk not forwarded in order, got %d frames", len(sent))
	}
}

func TestStartIsReentrantNoOp(t *testing.T) {
	rec := newFakeRecognizer()
	s, started := startedSession(rec)

	s.Start(context.Background())
	s.Start(context.Background())
	s.Start(context.Background())

	close(rec.release)
	waitStarted(t, started)

	rec.mu.Lock()
	opens := rec.opens
	rec.mu.Unlock()
	if opens != 1 {
		t.Fatalf("upstream opened %d times, want 1", opens)
	}
}

func TestStopIsIdempotentAndDiscardsBuffer(t *testing.T) {
	rec := newFakeRecognizer()
	s, started := startedSession(rec)

	// Stop while idle is a no-op.
	s.Stop()

	s.Start(context.Background())
	close(rec.release)
	waitStarted(t, started)
	st, _ := rec.current()

	s.Stop()
	s.Stop()

	if !st.isClosed() {
		t.Fatal("stop must close the upstream stream")
	}
	// After stop, chunks queue for a future start rather than hitting the
	// dead stream.
	s.Push(chunk(1))
	if len(st.sentChunks()) != 0 {
		t.Fatal("no chunk may be forwarded after stop")
	}
}

func TestStopWhileDialingAbortsOpen(t *testing.T) {
	rec := newFakeRecognizer()
	s, started := startedSession(rec)

	s.Start(context.Background())
	s.Stop()
	close(rec.release)

	select {
	case <-started:
		t.Fatal("stopped session must not report started")
	case <-time.After(100 * time.Millisecond):
	}
	// OpenStream aborts via context before producing a stream.
	rec.mu.Lock()
	opens := rec.opens
	rec.mu.Unlock()
	if opens != 0 {
		t.Fatalf("dial completed %d times after stop, want 0", opens)
	}
}

func TestUpstreamCloseIsUnsolicitedStop(t *testing.T) {
	rec := newFakeRecognizer()
	s, started := startedSession(rec)
	s.Start(context.Background())
	close(rec.release)
	waitStarted(t, started)

	_, h := rec.current()
	h.OnClosed(errors.New("upstream went away"))

	// Session is idle again: a fresh start opens a new stream.
	rec2 := rec
	rec2.release = make(chan struct{})
	s.Start(context.Background())
	close(rec2.release)
	waitStarted(t, started)

	rec.mu.Lock()
	opens := rec.opens
	rec.mu.Unlock()
	if opens != 2 {
		t.Fatalf("restart after upstream close opened %d streams, want 2", opens)
	}
}

func TestTranscriptsIgnoredWhenNotStreaming(t *testing.T) {
	rec := newFakeRecognizer()
	var got []string
	var mu sync.Mutex
	started := make(chan struct{}, 1)
	s := NewSession("p1", rec, Config{KeepAlive: time.Hour},
		func() { started <- struct{}{} },
		func(ctx context.Context, text string) {
			mu.Lock()
			got = append(got, text)
			mu.Unlock()
		})

	s.Start(context.Background())
	close(rec.release)
	waitStarted(t, started)
	_, h := rec.current()

	h.OnTranscript("live")
	s.Stop()
	h.OnTranscript("late")

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0] != "live" {
		t.Fatalf("delivered %v, want only the transcript that arrived while streaming", got)
	}
}

// sequencedRecognizer parks every dial until the test resolves it, so the
// test controls exactly when each lifecycle's dial result lands.
type sequencedRecognizer struct {
	mu    sync.Mutex
	dials []*dialCall
}

type dialCall struct {
	ctx     context.Context
	handler core.StreamHandler
	done    chan error
	stream  *fakeStream
}

func (r *sequencedRecognizer) OpenStream(ctx context.Context, h core.StreamHandler) (core.RecognitionStream, error) {
	d := &dialCall{ctx: ctx, handler: h, done: make(chan error, 1), stream: &fakeStream{}}
	r.mu.Lock()
	r.dials = append(r.dials, d)
	r.mu.Unlock()
	if err := <-d.done; err != nil {
		return nil, err
	}
	return d.stream, nil
}

func (r *sequencedRecognizer) dial(t *testing.T, i int) *dialCall {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		r.mu.Lock()
		if len(r.dials) > i {
			d := r.dials[i]
			r.mu.Unlock()
			return d
		}
		r.mu.Unlock()
		if time.Now().After(deadline) {
			t.Fatalf("dial %d never happened", i)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestStaleDialFailureDoesNotKillRestart(t *testing.T) {
	rec := &sequencedRecognizer{}
	started := make(chan struct{}, 1)
	s := NewSession("p1", rec, Config{KeepAlive: time.Hour}, func() { started <- struct{}{} }, nil)

	// First lifecycle: stop while the dial is still in flight.
	s.Start(context.Background())
	first := rec.dial(t, 0)
	s.Stop()

	// Second lifecycle begins before the first dial's failure lands.
	s.Start(context.Background())
	second := rec.dial(t, 1)

	first.done <- first.ctx.Err()
	time.Sleep(50 * time.Millisecond)
	second.done <- nil

	waitStarted(t, started)
	s.Push(chunk(1))
	if got := second.stream.sentChunks(); len(got) != 1 {
		t.Fatalf("restarted stream received %d chunks, want 1", len(got))
	}
}

func TestStaleUpstreamCloseIgnoredAfterRestart(t *testing.T) {
	rec := &sequencedRecognizer{}
	started := make(chan struct{}, 1)
	s := NewSession("p1", rec, Config{KeepAlive: time.Hour}, func() { started <- struct{}{} }, nil)

	s.Start(context.Background())
	first := rec.dial(t, 0)
	first.done <- nil
	waitStarted(t, started)

	s.Stop()
	s.Start(context.Background())
	second := rec.dial(t, 1)
	second.done <- nil
	waitStarted(t, started)

	// A close event from the first lifecycle must not touch the second.
	first.handler.OnClosed(errors.New("tcp reset"))

	s.Push(chunk(7))
	if got := second.stream.sentChunks(); len(got) != 1 {
		t.Fatalf("live stream received %d chunks after stale close, want 1", len(got))
	}
}

func TestDialErrorReturnsToIdle(t *testing.T) {
	rec := newFakeRecognizer()
	rec.dialErr = errors.New("recognizer unreachable")
	s, started := startedSession(rec)

	s.Start(context.Background())
	close(rec.release)

	select {
	case <-started:
		t.Fatal("failed dial must not report started")
	case <-time.After(100 * time.Millisecond):
	}

	// The failure is not retried automatically, but an explicit start may
	// try again.
	rec.dialErr = nil
	rec.release = make(chan struct{})
	s.Start(context.Background())
	close(rec.release)
	waitStarted(t, started)
}
