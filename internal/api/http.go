package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pv/algoviz-go/internal/generator"
	"github.com/pv/algoviz-go/internal/input"
	"github.com/pv/algoviz-go/internal/listing"
	"github.com/pv/algoviz-go/internal/playback"
)

// Server реализует HTTP API сессий визуализации.
type Server struct {
	manager  *Manager
	mux      *http.ServeMux
	streamer *StateStreamer
}

// NewServer создаёт HTTP сервер с зарегистрированными хендлерами.
func NewServer(manager *Manager, streamer *StateStreamer) *Server {
	s := &Server{
		manager:  manager,
		mux:      http.NewServeMux(),
		streamer: streamer,
	}
	s.routes()
	return s
}

// Handler возвращает корневой обработчик с CORS.
func (s *Server) Handler() http.Handler {
	return s.withCORS(s.mux)
}

// Listen запускает сервер и блокируется до остановки.
func (s *Server) Listen(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()
	log.Printf("[http] listening on %s", addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	s.mux.Handle("GET /metrics", promhttp.Handler())

	s.mux.HandleFunc("GET /api/v1/algorithms", s.handleAlgorithms)
	s.mux.HandleFunc("GET /api/v1/listings/{algorithm}", s.handleListing)
	s.mux.HandleFunc("POST /api/v1/trace", s.handleTrace)

	s.mux.HandleFunc("GET /api/v1/sessions", s.handleSessions)
	s.mux.HandleFunc("POST /api/v1/sessions", s.handleCreateSession)
	s.mux.HandleFunc("GET /api/v1/sessions/{id}", s.withSession(s.handleSessionState))
	s.mux.HandleFunc("DELETE /api/v1/sessions/{id}", s.handleDeleteSession)
	s.mux.HandleFunc("POST /api/v1/sessions/{id}/load", s.withSession(s.handleLoad))
	s.mux.HandleFunc("POST /api/v1/sessions/{id}/play", s.wrapCommand("play", (*playback.Controller).Play))
	s.mux.HandleFunc("POST /api/v1/sessions/{id}/pause", s.wrapCommand("pause", (*playback.Controller).Pause))
	s.mux.HandleFunc("POST /api/v1/sessions/{id}/next", s.wrapCommand("next", (*playback.Controller).Next))
	s.mux.HandleFunc("POST /api/v1/sessions/{id}/prev", s.wrapCommand("prev", (*playback.Controller).Prev))
	s.mux.HandleFunc("POST /api/v1/sessions/{id}/seek", s.withSession(s.handleSeek))
	s.mux.HandleFunc("POST /api/v1/sessions/{id}/speed", s.withSession(s.handleSpeed))
	s.mux.HandleFunc("GET /api/v1/sessions/{id}/snapshots/{index}", s.withSession(s.handleSnapshot))
	s.mux.HandleFunc("GET /api/v1/ws/sessions/{id}", s.withSession(s.handleWSState))
}

type algorithmInfo struct {
	ID         listing.Algorithm   `json:"id"`
	Title      string              `json:"title"`
	Complexity *listing.Complexity `json:"complexity,omitempty"`
	Input      string              `json:"input"`
}

func (s *Server) handleAlgorithms(w http.ResponseWriter, r *http.Request) {
	mapper := s.manager.Registry().Mapper()
	list := make([]algorithmInfo, 0, 5)
	for _, alg := range s.manager.Registry().Algorithms() {
		l, err := mapper.Listing(alg)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		complexity := l.Complexity
		list = append(list, algorithmInfo{ID: alg, Title: l.Title, Complexity: &complexity, Input: "sequence"})
	}
	list = append(list, algorithmInfo{ID: listing.Code, Title: "Code", Input: "source"})
	writeJSON(w, http.StatusOK, map[string]any{"algorithms": list})
}

func (s *Server) handleListing(w http.ResponseWriter, r *http.Request) {
	alg, err := listing.ParseAlgorithm(r.PathValue("algorithm"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	l, err := s.manager.Registry().Mapper().Listing(alg)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) handleTrace(w http.ResponseWriter, r *http.Request) {
	var req Source
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	tr, err := s.manager.Build(req)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	logDebugf("[http] trace %s: %d snapshots", tr.Algorithm(), tr.Len())
	writeJSON(w, http.StatusOK, tr)
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"sessions": s.manager.List()})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req Source
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sess, err := s.manager.Create(req)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, sess.Info())
}

func (s *Server) handleSessionState(w http.ResponseWriter, r *http.Request, sess *Session) {
	writeJSON(w, http.StatusOK, sess.Info())
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.Delete(r.PathValue("id")); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request, sess *Session) {
	var req Source
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	err := s.manager.Load(sess.ID, req)
	observeCommand("load", err)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Info())
}

type seekRequest struct {
	Index *int `json:"index"`
}

func (s *Server) handleSeek(w http.ResponseWriter, r *http.Request, sess *Session) {
	var req seekRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Index == nil {
		writeError(w, http.StatusBadRequest, errors.New("index is required"))
		return
	}
	logDebugf("[http] session %s seek %d", sess.ID, *req.Index)
	err := sess.Controller().Seek(*req.Index)
	observeCommand("seek", err)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Info())
}

type speedRequest struct {
	Speed *float64 `json:"speed"`
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request, sess *Session) {
	var req speedRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Speed == nil {
		writeError(w, http.StatusBadRequest, errors.New("speed is required"))
		return
	}
	err := sess.Controller().SetSpeed(*req.Speed)
	observeCommand("speed", err)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Info())
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request, sess *Session) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid index: %w", err))
		return
	}
	tr, _ := sess.Controller().Trace()
	snap, ok := tr.At(index)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("snapshot %d is outside [0,%d)", index, tr.Len()))
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleWSState(w http.ResponseWriter, r *http.Request, sess *Session) {
	if s.streamer == nil {
		http.Error(w, "websocket streamer not configured", http.StatusServiceUnavailable)
		return
	}
	s.streamer.ServeWS(w, r, sess)
}

func (s *Server) withSession(next func(http.ResponseWriter, *http.Request, *Session)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.manager.Get(r.PathValue("id"))
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		next(w, r, sess)
	}
}

func (s *Server) wrapCommand(label string, fn func(*playback.Controller) error) http.HandlerFunc {
	return s.withSession(func(w http.ResponseWriter, r *http.Request, sess *Session) {
		logDebugf("[http] session %s command %s", sess.ID, label)
		err := fn(sess.Controller())
		observeCommand(label, err)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, sess.Info())
	})
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusFor сопоставляет ошибки доменных пакетов с HTTP-кодами.
func statusFor(err error) int {
	var verr *input.ValidationError
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return http.StatusNotFound
	case errors.As(err, &verr),
		errors.Is(err, playback.ErrInvalidSpeed),
		errors.Is(err, playback.ErrEmptyTrace),
		errors.Is(err, listing.ErrUnknownAlgorithm),
		errors.Is(err, generator.ErrUnknownAlgorithm),
		errors.Is(err, generator.ErrNotSorting):
		return http.StatusBadRequest
	case errors.Is(err, playback.ErrClosed), errors.Is(err, playback.ErrNoTrace):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeError(w http.ResponseWriter, code int, err error) {
	if code >= http.StatusInternalServerError {
		log.Printf("[http] error: %v", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
