package ports

import (
	"context"

	"github.com/zd4y/audionotes/internal/models"
)

// AudioRepository persists audio records and the transcription retry ledger.
// Single-row lookups return (nil, nil) when the row is missing.
// All operations are single-statement and safe to call concurrently for
// different audio ids; the driver never runs two operations for the same id
// at once.
type AudioRepository interface {
	// audios
	InsertAudio(ctx context.Context, userID int) (*models.Audio, error)
	GetAudio(ctx context.Context, audioID, userID int) (*models.Audio, error)
	GetAudioByID(ctx context.Context, audioID int) (*models.Audio, error)
	GetAudios(ctx context.Context, userID int) ([]models.Audio, error)
	UpdateTranscription(ctx context.Context, audioID int, text string) error
	DeleteAudio(ctx context.Context, userID, audioID int) (bool, error)

	// failed_audio_transcriptions (retry ledger)
	GetFailedTranscription(ctx context.Context, audioID int) (*models.FailedTranscription, error)
	GetFailedTranscriptions(ctx context.Context) ([]models.FailedTranscription, error)
	InsertFailedTranscription(ctx context.Context, audioID int, language string) (int, error)
	IncrementFailedTranscription(ctx context.Context, id int) (int, error)
	DeleteFailedTranscription(ctx context.Context, id int) (bool, error)
}
