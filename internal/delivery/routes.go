package delivery

import (
	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, hAudio *AudioHandler) {

	r.Group(func(r chi.Router) {
		r.Use(UserMiddleware())

		// audio records
		r.Post("/api/audios", hAudio.Create)
		r.Get("/api/audios", hAudio.List)
		r.Get("/api/audios/{audioID}", hAudio.Get)
		r.Delete("/api/audios/{audioID}", hAudio.Delete)

		// raw clip
		r.Get("/api/audios/{audioID}/file", hAudio.File)
	})
}
