package ports

import (
	"context"
	"io"
)

type SpeechToText interface {
	// Transcribe converts the audio stream to text. The language hint is an
	// ISO-like code ("es", "en"). Errors wrap one of the typed sentinels so
	// the driver can log the failure class before scheduling a retry.
	Transcribe(ctx context.Context, audio io.Reader, language string) (string, error)
}
