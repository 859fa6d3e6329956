package infra

import (
	"context"
	"io"
	"log"
)

// MockSpeechToText drains the audio and answers with a fixed transcription.
type MockSpeechToText struct{}

func NewMockSpeechToText() *MockSpeechToText {
	return &MockSpeechToText{}
}

func (s *MockSpeechToText) Transcribe(_ context.Context, audio io.Reader, language string) (string, error) {
	read, _ := io.Copy(io.Discard, audio)
	log.Printf("[mock-stt][TRANSCRIBE] lang=%s bytes=%d", language, read)
	return "hello", nil
}
