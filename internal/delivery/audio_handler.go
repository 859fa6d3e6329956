package delivery

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/go-chi/chi/v5"

	"github.com/zd4y/audionotes/internal/models"
	"github.com/zd4y/audionotes/internal/ports"
)

const (
	maxUploadBytes  = 25 * 1_000_000
	defaultLanguage = "es"
)

type AudioHandler struct {
	audios         ports.AudioRepository
	storage        ports.AudioStorage
	transcriptions ports.TranscriptionService
	log            *logger.ZapLogger
}

func NewAudioHandler(
	audios ports.AudioRepository,
	storage ports.AudioStorage,
	transcriptions ports.TranscriptionService,
	log *logger.ZapLogger,
) *AudioHandler {
	return &AudioHandler{
		audios:         audios,
		storage:        storage,
		transcriptions: transcriptions,
		log:            log,
	}
}

// POST /api/audios
//
// The response never waits for the transcription: the record comes back with
// transcription null and the result is pushed over the websocket later.
func (h *AudioHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r)
	if !ok {
		http.Error(w, "missing user", http.StatusUnauthorized)
		return
	}

	mediatype, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediatype != ports.AudioMimetype {
		http.Error(w, "expected "+ports.AudioMimetype, http.StatusUnsupportedMediaType)
		return
	}

	language := r.URL.Query().Get("language")
	if language == "" {
		language = defaultLanguage
	}

	audio, err := h.audios.InsertAudio(r.Context(), userID)
	if err != nil {
		http.Error(w, "failed to save audio", http.StatusInternalServerError)
		return
	}

	body := http.MaxBytesReader(w, r.Body, maxUploadBytes)
	written, err := h.storage.Store(r.Context(), audio.ID, body)
	if err != nil {
		// the record row must not outlive a blob that never landed
		if _, derr := h.audios.DeleteAudio(r.Context(), userID, audio.ID); derr != nil {
			h.log.Log(logger.LogEntry{
				Level:   "error",
				Message: "orphaned audio row after failed store",
				Fields:  map[string]any{"audioID": audio.ID},
				Error:   derr,
			})
		}

		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			http.Error(w, "audio too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "failed to save audio", http.StatusInternalServerError)
		return
	}

	if err := h.transcriptions.Submit(r.Context(), audio.ID, language); err != nil {
		h.log.Log(logger.LogEntry{
			Level:   "error",
			Message: "transcription submit failed",
			Fields:  map[string]any{"audioID": audio.ID},
			Error:   err,
		})
	}

	h.log.Log(logger.LogEntry{
		Level:   "info",
		Message: "audio uploaded",
		Fields: map[string]any{
			"audioID":  audio.ID,
			"userID":   userID,
			"bytes":    written,
			"language": language,
		},
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(audio)
}

// GET /api/audios
func (h *AudioHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r)
	if !ok {
		http.Error(w, "missing user", http.StatusUnauthorized)
		return
	}

	audios, err := h.audios.GetAudios(r.Context(), userID)
	if err != nil {
		http.Error(w, "failed to list audios", http.StatusInternalServerError)
		return
	}
	if audios == nil {
		audios = []models.Audio{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(audios)
}

// GET /api/audios/{audioID}
func (h *AudioHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, audioID, ok := h.requestIDs(w, r)
	if !ok {
		return
	}

	audio, err := h.audios.GetAudio(r.Context(), audioID, userID)
	if err != nil {
		http.Error(w, "failed to get audio", http.StatusInternalServerError)
		return
	}
	if audio == nil {
		http.Error(w, "audio not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(audio)
}

// GET /api/audios/{audioID}/file
func (h *AudioHandler) File(w http.ResponseWriter, r *http.Request) {
	userID, audioID, ok := h.requestIDs(w, r)
	if !ok {
		return
	}

	audio, err := h.audios.GetAudio(r.Context(), audioID, userID)
	if err != nil {
		http.Error(w, "failed to get audio", http.StatusInternalServerError)
		return
	}
	if audio == nil {
		http.Error(w, "audio not found", http.StatusNotFound)
		return
	}

	file, err := h.storage.Get(r.Context(), audioID)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			http.Error(w, "audio not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to get audio", http.StatusInternalServerError)
		return
	}
	defer file.Close()

	w.Header().Set("Content-Type", ports.AudioMimetype)
	if _, err := io.Copy(w, file); err != nil {
		h.log.Log(logger.LogEntry{
			Level:   "error",
			Message: "audio stream interrupted",
			Fields:  map[string]any{"audioID": audioID},
			Error:   err,
		})
	}
}

// DELETE /api/audios/{audioID}
func (h *AudioHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, audioID, ok := h.requestIDs(w, r)
	if !ok {
		return
	}

	deleted, err := h.audios.DeleteAudio(r.Context(), userID, audioID)
	if err != nil {
		http.Error(w, "failed to delete audio", http.StatusInternalServerError)
		return
	}
	if !deleted {
		http.Error(w, "audio not found", http.StatusNotFound)
		return
	}

	if err := h.storage.Delete(r.Context(), audioID); err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			http.Error(w, "audio not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to delete audio", http.StatusInternalServerError)
		return
	}

	h.log.Log(logger.LogEntry{
		Level:   "info",
		Message: "audio deleted",
		Fields:  map[string]any{"audioID": audioID, "userID": userID},
	})

	w.WriteHeader(http.StatusOK)
}

func (h *AudioHandler) requestIDs(w http.ResponseWriter, r *http.Request) (userID, audioID int, ok bool) {
	userID, ok = UserID(r)
	if !ok {
		http.Error(w, "missing user", http.StatusUnauthorized)
		return 0, 0, false
	}

	idStr := chi.URLParam(r, "audioID")
	if idStr == "" {
		http.Error(w, "missing id", http.StatusBadRequest)
		return 0, 0, false
	}
	audioID, err := strconv.Atoi(idStr)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return 0, 0, false
	}
	return userID, audioID, true
}
