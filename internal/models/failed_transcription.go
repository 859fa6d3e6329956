package models

import "time"

// FailedTranscription is one row of the retry ledger. A row exists only while
// the audio's latest transcription attempt failed and the retry budget is not
// exhausted. Retries starts at 0: the row itself records the first failure.
type FailedTranscription struct {
	ID          int        `db:"id"`
	AudioID     int        `db:"audio_id"`
	Language    string     `db:"language"`
	Retries     int        `db:"retries"`
	CreatedAt   time.Time  `db:"created_at"`
	LastRetryAt *time.Time `db:"last_retry_at"` // nullable, absent until first retry
}
