package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/zd4y/audionotes/internal/ports"
)

const whisperModel = "whisper-1"

// WhisperAPI transcribes audio through the OpenAI transcription endpoint.
type WhisperAPI struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewWhisperAPI(apiKey string) *WhisperAPI {
	return &WhisperAPI{
		apiKey:  apiKey,
		baseURL: "https://api.openai.com",
		client:  http.DefaultClient,
	}
}

type whisperResponse struct {
	Text  *string         `json:"text"`
	Error json.RawMessage `json:"error"`
}

// Transcribe buffers the whole clip before sending: multipart wants a sized
// part and audio readers are not generally rewindable. Uploads are capped at
// the API layer, so the buffer stays small.
func (s *WhisperAPI) Transcribe(ctx context.Context, audio io.Reader, language string) (string, error) {
	clip, err := io.ReadAll(audio)
	if err != nil {
		return "", fmt.Errorf("read audio: %w", err)
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", "audio"+ports.AudioFileExtension)
	if err != nil {
		return "", fmt.Errorf("build multipart form: %w", err)
	}
	if _, err := part.Write(clip); err != nil {
		return "", fmt.Errorf("build multipart form: %w", err)
	}
	if err := form.WriteField("model", whisperModel); err != nil {
		return "", fmt.Errorf("build multipart form: %w", err)
	}
	if err := form.WriteField("language", language); err != nil {
		return "", fmt.Errorf("build multipart form: %w", err)
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("build multipart form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/audio/transcriptions", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("whisper api request: %w: %v", ports.ErrTranscriptionService, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)

	var parsed whisperResponse
	_ = json.Unmarshal(raw, &parsed)

	if parsed.Text != nil {
		return *parsed.Text, nil
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("whisper api error %s: %w", parsed.Error, ports.ErrTranscriptionService)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("whisper api http %d: %w", resp.StatusCode, ports.ErrTranscriptionService)
	}
	return "", fmt.Errorf("whisper api returned neither text nor error: %w", ports.ErrTranscriptionService)
}
