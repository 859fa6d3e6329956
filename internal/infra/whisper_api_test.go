package infra

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zd4y/audionotes/internal/ports"
)

func TestWhisperTranscribe(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/audio/transcriptions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, "whisper-1", r.FormValue("model"))
		require.Equal(t, "es", r.FormValue("language"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		require.Equal(t, "audio.webm", header.Filename)

		sent, err := io.ReadAll(file)
		require.NoError(t, err)
		require.Equal(t, "voice data", string(sent))

		_, _ = w.Write([]byte(`{"text":"hola mundo"}`))
	}))
	defer server.Close()

	api := NewWhisperAPI("test-key")
	api.baseURL = server.URL

	text, err := api.Transcribe(context.Background(), strings.NewReader("voice data"), "es")
	require.NoError(t, err)
	require.Equal(t, "hola mundo", text)
}

func TestWhisperEmptyTextIsSuccess(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"text":""}`))
	}))
	defer server.Close()

	api := NewWhisperAPI("test-key")
	api.baseURL = server.URL

	text, err := api.Transcribe(context.Background(), strings.NewReader("silence"), "es")
	require.NoError(t, err)
	require.Empty(t, text)
}

func TestWhisperAPIErrorResponse(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid file format"}}`))
	}))
	defer server.Close()

	api := NewWhisperAPI("test-key")
	api.baseURL = server.URL

	_, err := api.Transcribe(context.Background(), strings.NewReader("x"), "es")
	require.ErrorIs(t, err, ports.ErrTranscriptionService)
	require.Contains(t, err.Error(), "invalid file format")
}

func TestWhisperNeitherTextNorError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	api := NewWhisperAPI("test-key")
	api.baseURL = server.URL

	_, err := api.Transcribe(context.Background(), strings.NewReader("x"), "es")
	require.ErrorIs(t, err, ports.ErrTranscriptionService)
}

func TestWhisperNonJSONFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("gateway exploded"))
	}))
	defer server.Close()

	api := NewWhisperAPI("test-key")
	api.baseURL = server.URL

	_, err := api.Transcribe(context.Background(), strings.NewReader("x"), "es")
	require.ErrorIs(t, err, ports.ErrTranscriptionService)
}
