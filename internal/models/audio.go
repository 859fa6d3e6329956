package models

import "time"

// Audio is one uploaded voice memo. UserID never leaves the service, the
// JSON shape is what the API returns.
type Audio struct {
	ID            int       `db:"id" json:"id"`
	UserID        int       `db:"user_id" json:"-"`
	Transcription *string   `db:"transcription" json:"transcription"` // nullable, set once when transcription succeeds
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
