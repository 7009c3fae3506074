// Package stt bridges audio to a Deepgram-style live recognition endpoint
// over a websocket: one JSON control frame, then binary audio, JSON result
// frames back.
package stt

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/echolink/echolink/internal/core"
)

const writeWait = 5 * time.Second

type Config struct {
	URL    string
	APIKey string
}

// Client implements core.Recognizer.
type Client struct {
	cfg    Config
	dialer *websocket.Dialer
}

func NewClient(cfg Config) *Client {
	return &Client{cfg: cfg, dialer: websocket.DefaultDialer}
}

type startFrame struct {
	Type       string `json:"type"`
	Encoding   string `json:"encoding"`
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

// resultFrame mirrors the transcript path of upstream result messages.
type resultFrame struct {
	Channel struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"channel"`
}

// OpenStream dials the recognizer and sends the stream control frame. The
// returned stream accepts audio immediately; results and the close event
// arrive on h from the read goroutine.
func (c *Client) OpenStream(ctx context.Context, h core.StreamHandler) (core.RecognitionStream, error) {
	header := http.Header{}
	if c.cfg.APIKey != "" {
		header.Set("Authorization", "Token "+c.cfg.APIKey)
	}
	ws, _, err := c.dialer.DialContext(ctx, c.cfg.URL, header)
	if err != nil {
		return nil, fmt.Errorf("dial recognizer: %w", err)
	}

	st := &stream{ws: ws}
	start := startFrame{Type: "StartStream", Encoding: "webm", SampleRate: 48000, Channels: 1}
	if err := st.writeJSON(start); err != nil {
		_ = ws.Close()
		return nil, fmt.Errorf("send start frame: %w", err)
	}

	go st.readLoop(h)
	return st, nil
}

type stream struct {
	ws        *websocket.Conn
	wmu       sync.Mutex
	closeOnce sync.Once
}

func (s *stream) writeJSON(v any) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	_ = s.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return s.ws.WriteJSON(v)
}

func (s *stream) Send(chunk []byte) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	_ = s.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return s.ws.WriteMessage(websocket.BinaryMessage, chunk)
}

func (s *stream) KeepAlive() error {
	return s.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (s *stream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.ws.Close()
	})
	return err
}

// readLoop parses result frames and forwards non-empty transcripts in
// arrival order. Any read error ends the stream; OnClosed fires once.
func (s *stream) readLoop(h core.StreamHandler) {
	for {
		_, data, err := s.ws.ReadMessage()
		if err != nil {
			_ = s.Close()
			h.OnClosed(err)
			return
		}
		var res resultFrame
		if err := json.Unmarshal(data, &res); err != nil {
			continue
		}
		if len(res.Channel.Alternatives) == 0 {
			continue
		}
		text := strings.TrimSpace(res.Channel.Alternatives[0].Transcript)
		if text == "" {
			continue
		}
		h.OnTranscript(text)
	}
}
