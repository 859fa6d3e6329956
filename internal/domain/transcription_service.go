package domain

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zd4y/audionotes/internal/models"
	"github.com/zd4y/audionotes/internal/ports"
)

// TranscriptionConfig tunes the background pipeline. Zero values fall back
// to the production defaults.
type TranscriptionConfig struct {
	Workers     int           // concurrent attempts
	MaxRetries  int           // retries recorded before a clip is abandoned
	BaseDelay   time.Duration // backoff unit, waits grow linearly with the retry count
	ResumeDelay time.Duration // pacing between resumed entries at startup
	QueueSize   int           // pending submissions buffered before Submit blocks
}

type transcriptionJob struct {
	audioID  int
	language string
}

// TranscriptionService owns every transcription attempt in the process: fresh
// uploads, timed retries and entries resumed from the failure ledger all pass
// through one queue into a bounded worker pool. A retry is only scheduled
// once its predecessor has finished, so each audio id has at most one attempt
// in flight.
type TranscriptionService struct {
	repo    ports.AudioRepository
	storage ports.AudioStorage
	stt     ports.SpeechToText
	cfg     TranscriptionConfig

	jobs   chan transcriptionJob
	events chan ports.TranscriptionEvent
	quit   chan struct{}

	workers  errgroup.Group
	timers   sync.WaitGroup
	done     chan struct{} // dispatcher exited
	drained  chan struct{} // full shutdown finished
	shutdown sync.Once
}

func NewTranscriptionService(
	repo ports.AudioRepository,
	storage ports.AudioStorage,
	stt ports.SpeechToText,
	cfg TranscriptionConfig,
) *TranscriptionService {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = time.Minute
	}
	if cfg.ResumeDelay <= 0 {
		cfg.ResumeDelay = time.Minute
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 128
	}

	s := &TranscriptionService{
		repo:    repo,
		storage: storage,
		stt:     stt,
		cfg:     cfg,
		jobs:    make(chan transcriptionJob, cfg.QueueSize),
		events:  make(chan ports.TranscriptionEvent, 100),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
		drained: make(chan struct{}),
	}
	s.workers.SetLimit(cfg.Workers)

	go s.dispatch()
	return s
}

func (s *TranscriptionService) Events() <-chan ports.TranscriptionEvent { return s.events }

// ========================================================================
// SUBMIT / RESUME
// ========================================================================

func (s *TranscriptionService) Submit(ctx context.Context, audioID int, language string) error {
	select {
	case <-s.quit:
		return errors.New("transcription service closed")
	default:
	}

	select {
	case s.jobs <- transcriptionJob{audioID: audioID, language: language}:
		return nil
	case <-s.quit:
		return errors.New("transcription service closed")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Resume requeues every ledger entry left over from a previous run, oldest
// first, pausing between submissions so a long backlog does not stampede the
// transcription backend right after boot.
func (s *TranscriptionService) Resume(ctx context.Context) error {
	entries, err := s.repo.GetFailedTranscriptions(ctx)
	if err != nil {
		return fmt.Errorf("list failed transcriptions: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}

	log.Printf("[transcriber][RESUME] entries=%d", len(entries))
	for _, entry := range entries {
		if err := s.Submit(ctx, entry.AudioID, entry.Language); err != nil {
			return err
		}
		select {
		case <-time.After(s.cfg.ResumeDelay):
		case <-s.quit:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// ========================================================================
// PIPELINE
// ========================================================================

func (s *TranscriptionService) dispatch() {
	defer close(s.done)
	for {
		select {
		case <-s.quit:
			return
		case job := <-s.jobs:
			s.workers.Go(func() error {
				s.process(job)
				return nil
			})
		}
	}
}

// process runs one attempt for one clip. Attempts are deliberately not tied
// to a request context: an upload response never waits for its
// transcription, and shutdown lets running attempts finish.
func (s *TranscriptionService) process(job transcriptionJob) {
	ctx := context.Background()

	log.Printf("[transcriber][START] audio=%d lang=%s", job.audioID, job.language)

	entry, err := s.repo.GetFailedTranscription(ctx, job.audioID)
	if err != nil {
		log.Printf("[transcriber][ERR] audio=%d ledger read: %v", job.audioID, err)
		return
	}
	if entry != nil && entry.Retries >= s.cfg.MaxRetries {
		s.abandon(ctx, job.audioID, entry)
		return
	}

	text, err := s.attempt(ctx, job)
	if err != nil {
		s.recordFailure(ctx, job, entry, err)
		return
	}
	s.succeed(ctx, job, entry, text)
}

func (s *TranscriptionService) attempt(ctx context.Context, job transcriptionJob) (string, error) {
	audio, err := s.storage.Get(ctx, job.audioID)
	if err != nil {
		return "", fmt.Errorf("get audio: %w", err)
	}
	defer audio.Close()

	text, err := s.stt.Transcribe(ctx, audio, job.language)
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	return text, nil
}

func (s *TranscriptionService) succeed(ctx context.Context, job transcriptionJob, entry *models.FailedTranscription, text string) {
	if err := s.repo.UpdateTranscription(ctx, job.audioID, text); err != nil {
		log.Printf("[transcriber][ERR] audio=%d store transcription: %v", job.audioID, err)
		return
	}
	if entry != nil {
		if _, err := s.repo.DeleteFailedTranscription(ctx, entry.ID); err != nil {
			log.Printf("[transcriber][ERR] audio=%d clear ledger: %v", job.audioID, err)
		}
	}

	log.Printf("[transcriber][OK] audio=%d chars=%d", job.audioID, len(text))
	s.emit(ctx, job.audioID, text)
}

// recordFailure books the failed attempt and either schedules the next one
// or gives the clip up. The ledger write itself failing only logs: retrying
// bookkeeping would need bookkeeping of its own.
func (s *TranscriptionService) recordFailure(ctx context.Context, job transcriptionJob, entry *models.FailedTranscription, cause error) {
	log.Printf("[transcriber][ERR] audio=%d attempt failed: %v", job.audioID, cause)

	var count int
	if entry == nil {
		id, err := s.repo.InsertFailedTranscription(ctx, job.audioID, job.language)
		if err != nil {
			log.Printf("[transcriber][ERR] audio=%d record failure: %v", job.audioID, err)
			return
		}
		entry = &models.FailedTranscription{ID: id, AudioID: job.audioID, Language: job.language}
	} else {
		n, err := s.repo.IncrementFailedTranscription(ctx, entry.ID)
		if err != nil {
			log.Printf("[transcriber][ERR] audio=%d record failure: %v", job.audioID, err)
			return
		}
		count = n
	}

	if count >= s.cfg.MaxRetries {
		entry.Retries = count
		s.abandon(ctx, job.audioID, entry)
		return
	}

	delay := s.cfg.BaseDelay * time.Duration(count+1)
	log.Printf("[transcriber][RETRY] audio=%d retries=%d next_in=%s", job.audioID, count, delay)
	s.scheduleRetry(job, delay)
}

func (s *TranscriptionService) abandon(ctx context.Context, audioID int, entry *models.FailedTranscription) {
	if _, err := s.repo.DeleteFailedTranscription(ctx, entry.ID); err != nil {
		log.Printf("[transcriber][ERR] audio=%d clear ledger: %v", audioID, err)
		return
	}
	log.Printf("[transcriber][ABANDON] audio=%d retries=%d: %v", audioID, entry.Retries, ports.ErrRetryBudgetExhausted)
}

func (s *TranscriptionService) scheduleRetry(job transcriptionJob, delay time.Duration) {
	s.timers.Add(1)
	go func() {
		defer s.timers.Done()

		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-s.quit:
			return
		}

		select {
		case s.jobs <- job:
		case <-s.quit:
		}
	}()
}

func (s *TranscriptionService) emit(ctx context.Context, audioID int, text string) {
	audio, err := s.repo.GetAudioByID(ctx, audioID)
	if err != nil || audio == nil {
		log.Printf("[transcriber][EVENT-DROP] audio=%d owner lookup failed: %v", audioID, err)
		return
	}

	select {
	case s.events <- ports.TranscriptionEvent{UserID: audio.UserID, AudioID: audioID, Text: text}:
	default:
		log.Printf("[transcriber][EVENT-DROP] audio=%d events channel full", audioID)
	}
}

// ========================================================================
// SHUTDOWN
// ========================================================================

// Close stops intake, drops pending retry timers (the ledger keeps them
// durable for the next run) and waits for running attempts to finish.
func (s *TranscriptionService) Close(ctx context.Context) error {
	s.shutdown.Do(func() {
		close(s.quit)
		go func() {
			<-s.done
			_ = s.workers.Wait()
			s.timers.Wait()
			close(s.events)
			close(s.drained)
		}()
	})

	select {
	case <-s.drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
