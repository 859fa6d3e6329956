package infra

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/zd4y/audionotes/internal/models"
	"github.com/zd4y/audionotes/internal/ports"
)

type PostgresAudioRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresAudioRepo(pool *pgxpool.Pool) ports.AudioRepository {
	return &PostgresAudioRepo{pool: pool}
}

func (r *PostgresAudioRepo) InsertAudio(ctx context.Context, userID int) (*models.Audio, error) {
	query := `
		INSERT INTO audios (user_id)
		VALUES ($1)
		RETURNING id, created_at
	`
	audio := models.Audio{UserID: userID}
	row := r.pool.QueryRow(ctx, query, userID)
	if err := row.Scan(&audio.ID, &audio.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert audio: %w", err)
	}
	return &audio, nil
}

func (r *PostgresAudioRepo) GetAudio(ctx context.Context, audioID, userID int) (*models.Audio, error) {
	query := `
		SELECT id, user_id, transcription, created_at
		FROM audios
		WHERE id = $1 AND user_id = $2
	`

	var a models.Audio

	err := r.pool.QueryRow(ctx, query, audioID, userID).Scan(
		&a.ID,
		&a.UserID,
		&a.Transcription,
		&a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get audio: %w", err)
	}

	return &a, nil
}

func (r *PostgresAudioRepo) GetAudioByID(ctx context.Context, audioID int) (*models.Audio, error) {
	query := `
		SELECT id, user_id, transcription, created_at
		FROM audios
		WHERE id = $1
	`

	var a models.Audio

	err := r.pool.QueryRow(ctx, query, audioID).Scan(
		&a.ID,
		&a.UserID,
		&a.Transcription,
		&a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get audio by id: %w", err)
	}

	return &a, nil
}

func (r *PostgresAudioRepo) GetAudios(ctx context.Context, userID int) ([]models.Audio, error) {
	query := `
		SELECT id, user_id, transcription, created_at
		FROM audios
		WHERE user_id = $1
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("get audios: %w", err)
	}
	defer rows.Close()

	var audios []models.Audio
	for rows.Next() {
		var a models.Audio
		if err := rows.Scan(&a.ID, &a.UserID, &a.Transcription, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audio: %w", err)
		}
		audios = append(audios, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get audios: %w", err)
	}

	return audios, nil
}

func (r *PostgresAudioRepo) UpdateTranscription(ctx context.Context, audioID int, text string) error {
	query := `
		UPDATE audios
		SET transcription = $1
		WHERE id = $2
	`
	_, err := r.pool.Exec(ctx, query, text, audioID)
	if err != nil {
		return fmt.Errorf("update transcription: %w", err)
	}
	return nil
}

func (r *PostgresAudioRepo) DeleteAudio(ctx context.Context, userID, audioID int) (bool, error) {
	query := `
		DELETE FROM audios
		WHERE user_id = $1 AND id = $2
	`
	tag, err := r.pool.Exec(ctx, query, userID, audioID)
	if err != nil {
		return false, fmt.Errorf("delete audio: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PostgresAudioRepo) GetFailedTranscription(ctx context.Context, audioID int) (*models.FailedTranscription, error) {
	query := `
		SELECT id, audio_id, language, retries, created_at, last_retry_at
		FROM failed_audio_transcriptions
		WHERE audio_id = $1
	`

	var f models.FailedTranscription

	err := r.pool.QueryRow(ctx, query, audioID).Scan(
		&f.ID,
		&f.AudioID,
		&f.Language,
		&f.Retries,
		&f.CreatedAt,
		&f.LastRetryAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get failed transcription: %w", err)
	}

	return &f, nil
}

func (r *PostgresAudioRepo) GetFailedTranscriptions(ctx context.Context) ([]models.FailedTranscription, error) {
	query := `
		SELECT id, audio_id, language, retries, created_at, last_retry_at
		FROM failed_audio_transcriptions
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get failed transcriptions: %w", err)
	}
	defer rows.Close()

	var failed []models.FailedTranscription
	for rows.Next() {
		var f models.FailedTranscription
		if err := rows.Scan(&f.ID, &f.AudioID, &f.Language, &f.Retries, &f.CreatedAt, &f.LastRetryAt); err != nil {
			return nil, fmt.Errorf("scan failed transcription: %w", err)
		}
		failed = append(failed, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get failed transcriptions: %w", err)
	}

	return failed, nil
}

func (r *PostgresAudioRepo) InsertFailedTranscription(ctx context.Context, audioID int, language string) (int, error) {
	query := `
		INSERT INTO failed_audio_transcriptions (audio_id, language)
		VALUES ($1, $2)
		RETURNING id
	`
	var id int
	if err := r.pool.QueryRow(ctx, query, audioID, language).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert failed transcription: %w", err)
	}
	return id, nil
}

func (r *PostgresAudioRepo) IncrementFailedTranscription(ctx context.Context, id int) (int, error) {
	query := `
		UPDATE failed_audio_transcriptions
		SET retries = retries + 1,
		    last_retry_at = now()
		WHERE id = $1
		RETURNING retries
	`
	var retries int
	if err := r.pool.QueryRow(ctx, query, id).Scan(&retries); err != nil {
		return 0, fmt.Errorf("increment failed transcription: %w", err)
	}
	return retries, nil
}

func (r *PostgresAudioRepo) DeleteFailedTranscription(ctx context.Context, id int) (bool, error) {
	query := `
		DELETE FROM failed_audio_transcriptions
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("delete failed transcription: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
