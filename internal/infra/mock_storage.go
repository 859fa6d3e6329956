package infra

import (
	"bytes"
	"context"
	"io"
	"log"
)

// MockAudioStorage logs operations and keeps nothing. Lets the service run
// without a disk or an Azure account.
type MockAudioStorage struct{}

func NewMockAudioStorage() *MockAudioStorage {
	return &MockAudioStorage{}
}

func (s *MockAudioStorage) Get(_ context.Context, audioID int) (io.ReadCloser, error) {
	log.Printf("[mock-storage][GET] audio=%d", audioID)
	return io.NopCloser(bytes.NewReader(nil)), nil
}

func (s *MockAudioStorage) Store(_ context.Context, audioID int, r io.Reader) (int64, error) {
	written, err := io.Copy(io.Discard, r)
	log.Printf("[mock-storage][STORE] audio=%d bytes=%d", audioID, written)
	return written, err
}

func (s *MockAudioStorage) Delete(_ context.Context, audioID int) error {
	log.Printf("[mock-storage][DELETE] audio=%d", audioID)
	return nil
}
