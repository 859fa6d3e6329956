package infra

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/zd4y/audionotes/internal/ports"
)

// LocalAudioStorage keeps blobs as files "{id}.webm" under a single uploads
// directory.
type LocalAudioStorage struct {
	dir string
}

func NewLocalAudioStorage(dir string) (*LocalAudioStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads directory: %w", err)
	}
	return &LocalAudioStorage{dir: dir}, nil
}

func (s *LocalAudioStorage) Get(_ context.Context, audioID int) (io.ReadCloser, error) {
	f, err := os.Open(s.path(audioID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("audio %d: %w", audioID, ports.ErrNotFound)
		}
		return nil, fmt.Errorf("open audio %d: %w", audioID, err)
	}
	return f, nil
}

// Store writes to "{path}.part" and renames into place only after the stream
// is fully drained, so a concurrent Get never sees a half-written blob.
func (s *LocalAudioStorage) Store(_ context.Context, audioID int, r io.Reader) (int64, error) {
	path := s.path(audioID)
	tmp := path + ".part"

	f, err := os.Create(tmp)
	if err != nil {
		return 0, fmt.Errorf("create audio file: %w", err)
	}

	written, err := io.Copy(f, r)
	if err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return written, fmt.Errorf("write audio file: %w", err)
	}

	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return written, fmt.Errorf("sync audio file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return written, fmt.Errorf("close audio file: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return written, fmt.Errorf("publish audio file: %w", err)
	}

	return written, nil
}

func (s *LocalAudioStorage) Delete(_ context.Context, audioID int) error {
	if err := os.Remove(s.path(audioID)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("audio %d: %w", audioID, ports.ErrNotFound)
		}
		return fmt.Errorf("delete audio %d: %w", audioID, err)
	}
	return nil
}

func (s *LocalAudioStorage) path(audioID int) string {
	return filepath.Join(s.dir, fmt.Sprintf("%d%s", audioID, ports.AudioFileExtension))
}
