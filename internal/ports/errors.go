package ports

import "errors"

var (
	// ErrNotFound means the audio blob or record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrTranscriptionService means the remote speech API rejected or failed
	// the request.
	ErrTranscriptionService = errors.New("transcription service error")

	// ErrModelUnavailable means the per-language acoustic model could not be
	// downloaded into the cache.
	ErrModelUnavailable = errors.New("model unavailable")

	// ErrRepackageFailed means the container remux step exited non-zero.
	ErrRepackageFailed = errors.New("repackage failed")

	// ErrEngineError means the native speech engine failed on the clip.
	ErrEngineError = errors.New("engine error")

	// ErrRetryBudgetExhausted marks the terminal give-up after the last
	// allowed retry. Logged by the driver, never surfaced to the caller.
	ErrRetryBudgetExhausted = errors.New("retry budget exhausted")
)
