package signal

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/echolink/echolink/internal/core"
	"github.com/echolink/echolink/internal/transcribe"
)

// handleAudioChunk decodes one audio payload and hands the raw bytes to the
// transcription session. Clients send either a bare base64 string or a data
// URL; undecodable input is dropped, never fatal to the connection.
func (ctl *SignalWSController) handleAudioChunk(sid core.SessionID, sess *transcribe.Session, data []byte) {
	type chunkPayload struct {
		Type string `json:"type"`
		Data string `json:"data"`
	}
	var p chunkPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Debug().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad audio-chunk payload")
		return
	}
	raw, ok := decodeAudio(p.Data)
	if !ok {
		log.Debug().Str("module", "signal").Str("sid", string(sid)).Msg("undecodable audio chunk dropped")
		return
	}
	sess.Push(raw)
}

func decodeAudio(payload string) ([]byte, bool) {
	if payload == "" {
		return nil, false
	}
	// Data URLs carry the base64 body after the comma.
	if i := strings.IndexByte(payload, ','); i >= 0 {
		payload = payload[i+1:]
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, false
	}
	return raw, true
}
