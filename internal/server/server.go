// Package server exposes the HTTP surface: chat, file upload, text-to-speech
// and speech-to-text, plus the static landing page.
package server

import (
	_ "embed"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/agenteb/agente-b/internal/assistant"
	"github.com/agenteb/agente-b/internal/config"
	"github.com/agenteb/agente-b/internal/conversation"
	"github.com/agenteb/agente-b/internal/messages"
	"github.com/agenteb/agente-b/internal/speech"
)

//go:embed static/index.html
var indexHTML []byte

type Server struct {
	router    *chi.Mux
	store     *conversation.Store
	assistant *assistant.Assistant
	speech    *speech.Service
	msgs      messages.Catalog
	cfg       config.Config
}

func New(
	store *conversation.Store,
	asst *assistant.Assistant,
	speechSvc *speech.Service,
	msgs messages.Catalog,
	cfg config.Config,
) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		store:     store,
		assistant: asst,
		speech:    speechSvc,
		msgs:      msgs,
		cfg:       cfg,
	}

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	s.router.Use(s.requestLogger)

	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Get("/", s.handleIndex)
	s.router.Get("/api/health", s.handleHealth)
	s.router.Post("/api/chat", s.handleChat)
	s.router.Post("/api/upload", s.handleUpload)
	s.router.Post("/api/tts", s.handleTTS)
	s.router.Post("/api/stt", s.handleSTT)
}

func (s *Server) Router() http.Handler { return s.router }

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(indexHTML)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	s.writeJSON(w, code, errorResponse{Error: msg})
}
