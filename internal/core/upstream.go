package core

import "context"

// StreamHandler receives asynchronous events from a recognition stream.
// Callbacks run on the stream's read goroutine.
type StreamHandler interface {
	// OnTranscript delivers one non-empty transcript in upstream order.
	OnTranscript(text string)
	// OnClosed fires once when the upstream closes or errors.
	OnClosed(err error)
}

// RecognitionStream is one live audio stream to the speech recognizer.
type RecognitionStream interface {
	Send(chunk []byte) error
	KeepAlive() error
	Close() error
}

// Recognizer opens streaming connections to the external speech-to-text
// service. A returned stream is ready for audio immediately.
type Recognizer interface {
	OpenStream(ctx context.Context, h StreamHandler) (RecognitionStream, error)
}

// Translator converts English text to a target language via the external
// translation service. Failures degrade a single delivery, never more.
type Translator interface {
	Translate(ctx context.Context, text, targetLang string) (string, error)
}
