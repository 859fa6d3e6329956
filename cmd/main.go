package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/zd4y/audionotes/internal/config"
	"github.com/zd4y/audionotes/internal/delivery"
	ws "github.com/zd4y/audionotes/internal/delivery/ws"
	"github.com/zd4y/audionotes/internal/domain"
	"github.com/zd4y/audionotes/internal/infra"
	"github.com/zd4y/audionotes/internal/migrate"
	"github.com/zd4y/audionotes/internal/ports"
)

func main() {

	// LOGGER
	zcore, _ := zap.NewProduction()
	zl := logger.NewZapLogger(zcore.Sugar())

	// ENV
	if err := godotenv.Load(); err != nil {
		log.Println("WARN: no .env file loaded:", err)
	}

	cfg, err := config.Load()
	if err != nil {
		panic("config: " + err.Error())
	}

	// POSTGRES
	ctx := context.Background()

	pool, err := infra.NewPgxPool(ctx, cfg.DatabaseURL)
	if err != nil {
		panic("cannot connect pgxpool: " + err.Error())
	}
	defer pool.Close()

	if err := migrate.Run(ctx, pool); err != nil {
		panic("migrations failed: " + err.Error())
	}

	// STORAGE
	var storage ports.AudioStorage
	if cfg.UseAzureStorage() {
		log.Println("using azure audio storage")
		storage, err = infra.NewAzureAudioStorage(
			cfg.AzureStorageAccount,
			cfg.AzureStorageAccessKey,
			cfg.AzureStorageContainer,
		)
		if err != nil {
			panic("azure storage: " + err.Error())
		}
	} else {
		log.Println("using local audio storage")
		storage, err = infra.NewLocalAudioStorage(cfg.UploadsDir)
		if err != nil {
			panic("local storage: " + err.Error())
		}
	}

	// SPEECH TO TEXT
	var stt ports.SpeechToText
	switch {
	case cfg.UseWhisperAPI():
		log.Println("using whisper api")
		stt = infra.NewWhisperAPI(cfg.OpenAIAPIKey)
	case cfg.UseLeopard():
		log.Println("using picovoice leopard")
		stt, err = infra.NewPicovoiceLeopard(
			ctx,
			cfg.PicovoiceAccessKey,
			cfg.LeopardModelDir,
			cfg.LeopardLanguages...,
		)
		if err != nil {
			panic("picovoice leopard: " + err.Error())
		}
	default:
		log.Println("using mock speech to text")
		stt = infra.NewMockSpeechToText()
	}

	// SERVICES
	audioRepo := infra.NewPostgresAudioRepo(pool)
	transcriptions := domain.NewTranscriptionService(audioRepo, storage, stt, domain.TranscriptionConfig{})

	// WS HUB
	hub := ws.NewHub()

	// BROADCAST LISTENER
	go func() {
		for ev := range transcriptions.Events() {

			type wsTranscription struct {
				AudioID       int    `json:"audioId"`
				Transcription string `json:"transcription"`
			}

			payload, err := json.Marshal(wsTranscription{
				AudioID:       ev.AudioID,
				Transcription: ev.Text,
			})
			if err != nil {
				log.Printf("[SEND][ERR] json marshal failed: %v", err)
				continue
			}

			log.Printf("[SEND] user=%d audio=%d text=%.30s", ev.UserID, ev.AudioID, ev.Text)
			hub.SendToUser(ev.UserID, payload)
		}
	}()

	// RESUME LEFTOVER RETRIES
	go func() {
		if err := transcriptions.Resume(ctx); err != nil {
			log.Printf("[RESUME][ERR] %v", err)
		}
	}()

	// HANDLERS
	audioHandler := delivery.NewAudioHandler(audioRepo, storage, transcriptions, zl)

	// ROUTER
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.AllowedOrigin},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "X-User-ID"},
		AllowCredentials: true,
	}))

	delivery.RegisterRoutes(r, audioHandler)

	r.Get("/ws", ws.Handler(hub))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}

	go func() {
		zl.Log(logger.LogEntry{
			Level:   "info",
			Message: "server started",
			Fields:  map[string]any{"port": cfg.Port},
		})

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Log(logger.LogEntry{
				Level:   "error",
				Message: "server crashed",
				Error:   err,
			})
		}
	}()

	// SHUTDOWN
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	zl.Log(logger.LogEntry{Level: "info", Message: "shutting down"})

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Log(logger.LogEntry{Level: "error", Message: "http shutdown failed", Error: err})
	}
	if err := transcriptions.Close(shutdownCtx); err != nil {
		zl.Log(logger.LogEntry{Level: "error", Message: "transcription shutdown failed", Error: err})
	}
}
