package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/echolink/echolink/internal/core"
	"github.com/echolink/echolink/internal/domain"
)

// DeliverTranscript fans one recognized utterance out to every participant
// of the speaker's room, the speaker included. Each recipient's translation
// runs as its own task under ctx; recipients complete in no particular
// order, but each delivery carries the full (sender, text) pair. A failed
// translation degrades that one recipient to translated=null. Cancelling
// ctx (transcription stop, disconnect) prevents further deliveries without
// surfacing an error. Returns after the whole fan-out settles, so results
// from one upstream stream reach each recipient in upstream order.
func (c *Coordinator) DeliverTranscript(ctx context.Context, sid core.SessionID, text string) {
	code, ok := c.Registry.RoomOf(sid)
	if !ok {
		return
	}
	sender, ok := c.Store.ParticipantName(code, sid)
	if !ok {
		return
	}
	snap, ok := c.Store.Snapshot(code)
	if !ok {
		return
	}

	var wg sync.WaitGroup
	for _, p := range snap {
		wg.Add(1)
		go func(p core.ParticipantView) {
			defer wg.Done()
			var translated *string
			if p.Lang != domain.DefaultLang && c.Translator != nil {
				t, err := c.Translator.Translate(ctx, text, p.Lang)
				if err != nil {
					log.Warn().Err(err).Str("module", "app.coordinator").Str("lang", p.Lang).Msg("translate degraded")
				} else if t != "" {
					translated = &t
				}
			}
			if ctx.Err() != nil {
				return
			}
			c.emit(p.ID, evTranscriptionResult{
				Type:       "transcription-result",
				Sender:     sender,
				SenderID:   sid,
				Text:       text,
				Translated: translated,
				Lang:       p.Lang,
			})
		}(p)
	}
	wg.Wait()
}
