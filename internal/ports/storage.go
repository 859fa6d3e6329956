package ports

import (
	"context"
	"io"
)

const (
	// AudioMimetype is the only content type accepted for uploads and the
	// content type declared on stored blobs.
	AudioMimetype = "audio/webm"

	// AudioFileExtension keys blobs on every backend: "{id}.webm".
	AudioFileExtension = ".webm"
)

type AudioStorage interface {
	// Get streams back the exact bytes stored under audioID.
	// Returns ErrNotFound if no blob exists.
	Get(ctx context.Context, audioID int) (io.ReadCloser, error)

	// Store drains r fully and persists it under audioID, returning the total
	// bytes written. A partially written blob is never observable by Get:
	// backends publish only after the stream is fully drained.
	Store(ctx context.Context, audioID int, r io.Reader) (int64, error)

	// Delete removes the blob. Returns ErrNotFound if no blob exists.
	Delete(ctx context.Context, audioID int) error
}
