package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"gemini-chat-backend/internal/handlers"
	"gemini-chat-backend/internal/middleware"
)

func New(chatHandler *handlers.ChatHandler, staticDir, frontendURL string, maxBodyBytes int64) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.With(middleware.MaxBody(maxBodyBytes)).Post("/chat", chatHandler.Chat)

	// Everything else serves the static entry page
	r.Handle("/*", http.FileServer(http.Dir(staticDir)))

	return r
}
