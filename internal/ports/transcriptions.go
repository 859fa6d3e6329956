package ports

import "context"

// TranscriptionEvent is emitted after a transcription is persisted, so the
// delivery layer can notify the owner without polling.
type TranscriptionEvent struct {
	UserID  int
	AudioID int
	Text    string
}

type TranscriptionService interface {
	// Submit queues a freshly stored audio for transcription and returns once
	// the job is queued; the attempt itself runs on the worker pool. Blocks
	// when the queue is full.
	Submit(ctx context.Context, audioID int, language string) error

	// Resume re-enters the retry path for every ledger entry, sequentially,
	// pacing submissions so resumed retries do not stampede the backend.
	Resume(ctx context.Context) error

	Events() <-chan TranscriptionEvent

	// Close stops intake and pending retry timers, then waits for in-flight
	// attempts to finish. Scheduled retries that have not fired are dropped;
	// the ledger resumes them on next start.
	Close(ctx context.Context) error
}
