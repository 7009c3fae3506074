package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/echolink/echolink/internal/core"
	"github.com/echolink/echolink/internal/domain"
)

func (ctl *SignalWSController) handleJoin(sid core.SessionID, data []byte) {
	type joinPayload struct {
		Type        string `json:"type"`
		RoomCode    string `json:"roomCode"`
		DisplayName string `json:"displayName"`
	}
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad join payload")
		return
	}
	if p.RoomCode == "" {
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Msg("join without room code")
		return
	}
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("room", p.RoomCode).Str("name", p.DisplayName).Msg("join")
	ctl.Coord.Join(sid, domain.RoomCode(p.RoomCode), p.DisplayName)
}

func (ctl *SignalWSController) handleSetLanguage(sid core.SessionID, data []byte) {
	type langPayload struct {
		Type string `json:"type"`
		Lang string `json:"lang"`
	}
	var p langPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad set-language payload")
		return
	}
	ctl.Coord.SetLanguage(sid, p.Lang)
}

func (ctl *SignalWSController) handleRelay(sid core.SessionID, data []byte) {
	type signalPayload struct {
		Type    string          `json:"type"`
		To      string          `json:"to"`
		Payload json.RawMessage `json:"payload"`
	}
	var p signalPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad signal payload")
		return
	}
	if p.To == "" {
		return
	}
	ctl.Coord.Relay(sid, core.SessionID(p.To), p.Payload)
}

func (ctl *SignalWSController) handleChat(sid core.SessionID, data []byte) {
	type chatPayload struct {
		Type string `json:"type"`
		Body string `json:"data"`
	}
	var p chatPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad chat payload")
		return
	}
	ctl.Coord.Chat(sid, p.Body)
}

func (ctl *SignalWSController) handleTargeted(sid core.SessionID, data []byte, fn func(sid, target core.SessionID)) {
	type targetPayload struct {
		Type   string `json:"type"`
		UserID string `json:"userId"`
	}
	var p targetPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad host payload")
		return
	}
	if p.UserID == "" {
		return
	}
	fn(sid, core.SessionID(p.UserID))
}

func (ctl *SignalWSController) handleLockToggle(sid core.SessionID, data []byte, fn func(sid core.SessionID, lock bool)) {
	type lockPayload struct {
		Type string `json:"type"`
		Lock bool   `json:"lock"`
	}
	var p lockPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad lock payload")
		return
	}
	fn(sid, p.Lock)
}
