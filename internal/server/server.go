// Package server exposes the launcher state and keyboard intents over HTTP
// and pushes view updates over a websocket.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"quickclip/internal/navigation"
	"quickclip/internal/service"
)

type Server struct {
	clipService *service.ClipboardService
	hub         *Hub
	srv         *http.Server
	release     func()
	config      Config
	log         *slog.Logger
}

type Config struct {
	Addr    string // listen address, e.g. 127.0.0.1:9573
	DataDir string // directory holding the PID file
	Replace bool   // stop an already running instance instead of failing
}

func New(clipService *service.ClipboardService, config Config) *Server {
	hub := newHub()
	clipService.RegisterHandler(hub)
	return &Server{
		clipService: clipService,
		hub:         hub,
		config:      config,
		log:         slog.Default().With("component", "server"),
	}
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/status", s.handleStatus)
	r.Get("/ws", s.serveWs)
	r.Route("/api", func(r chi.Router) {
		r.Get("/view", s.handleView)
		r.Put("/query", s.handleQuery)
		r.Put("/mode/{mode}", s.handleMode)
		r.Post("/focus", s.handleFocus)

		r.Route("/nav", func(r chi.Router) {
			r.Post("/next", s.handleNext)
			r.Post("/prev", s.handlePrev)
			r.Post("/activate", s.handleActivate)
			r.Post("/delete", s.handleDeleteSelected)
			r.Post("/pin", s.handleTogglePin)
			r.Post("/clear", s.handleClearAll)
		})

		r.Get("/clips", s.handleGetClips)
		r.Delete("/clips", s.handleClearClips)
		r.Post("/clips/{id}/copy", s.handleCopyClip)
		r.Post("/clips/{id}/pin", s.handlePinClip)
		r.Delete("/clips/{id}", s.handleDeleteClip)
	})
	return r
}

// Start claims the PID file and begins serving.
func (s *Server) Start() error {
	release, err := ClaimPID(s.config.DataDir, s.config.Replace)
	if err != nil {
		return err
	}
	s.release = release

	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		release()
		s.release = nil
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}

	s.srv = &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("http server stopped", "err", err)
		}
	}()
	s.log.Info("listening", "addr", ln.Addr().String())
	return nil
}

func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.hub.stop()
	if s.release != nil {
		s.release()
		s.release = nil
	}
	if s.srv == nil {
		return nil
	}
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var cerr *service.ClipboardError
	if errors.As(err, &cerr) && cerr.Err == nil {
		status = http.StatusNotFound
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"time":    time.Now().Format(time.RFC3339),
		"clips":   s.clipService.Store().Len(),
		"clients": s.hub.count(),
	})
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.clipService.View())
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	s.clipService.SetQuery(body.Query)
	writeJSON(w, http.StatusOK, s.clipService.View())
}

func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	mode := service.Mode(chi.URLParam(r, "mode"))
	if mode != service.ModeClipboard && mode != service.ModeLauncher {
		http.Error(w, "unknown mode", http.StatusBadRequest)
		return
	}
	s.clipService.SetMode(mode)
	writeJSON(w, http.StatusOK, s.clipService.View())
}

func (s *Server) handleFocus(w http.ResponseWriter, r *http.Request) {
	s.clipService.FocusGained()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	s.clipService.Controller().OnNext()
	writeJSON(w, http.StatusOK, s.clipService.View())
}

func (s *Server) handlePrev(w http.ResponseWriter, r *http.Request) {
	s.clipService.Controller().OnPrev()
	writeJSON(w, http.StatusOK, s.clipService.View())
}

func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request) {
	out, err := s.clipService.Controller().OnActivate(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"outcome": out.String()})
}

func (s *Server) handleDeleteSelected(w http.ResponseWriter, r *http.Request) {
	if err := s.clipService.Controller().OnDeleteSelected(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.clipService.View())
}

func (s *Server) handleTogglePin(w http.ResponseWriter, r *http.Request) {
	out, err := s.clipService.Controller().OnTogglePin(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"outcome": out.String()})
}

func (s *Server) handleClearAll(w http.ResponseWriter, r *http.Request) {
	if err := s.clipService.Controller().OnClearAll(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetClips(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.clipService.Clips(r.URL.Query().Get("q")))
}

func (s *Server) handleClearClips(w http.ResponseWriter, r *http.Request) {
	if err := s.clipService.ClearClips(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCopyClip(w http.ResponseWriter, r *http.Request) {
	if err := s.clipService.Copy(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePinClip(w http.ResponseWriter, r *http.Request) {
	out, err := s.clipService.TogglePin(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	status := http.StatusOK
	if out == navigation.PinOutcomeQuotaExceeded {
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]string{"outcome": out.String()})
}

type deleteResponse struct {
	WasActive bool   `json:"was_active"`
	Warning   string `json:"warning,omitempty"`
}

func (s *Server) handleDeleteClip(w http.ResponseWriter, r *http.Request) {
	res, err := s.clipService.DeleteClip(r.Context(), chi.URLParam(r, "id"))
	if !res.Found {
		writeError(w, err)
		return
	}
	body := deleteResponse{WasActive: res.WasActive}
	if err != nil {
		// The clip is gone; only restoring the system clipboard failed.
		s.log.Warn("clip deleted with errors", "err", err)
		body.Warning = err.Error()
	}
	writeJSON(w, http.StatusOK, body)
}
