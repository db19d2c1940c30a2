package controlplane

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/fentz26/taskboard/internal/models"
	"github.com/fentz26/taskboard/internal/store"
)

// Server provides the HTTP API for the task board.
type Server struct {
	service *Service
	addr    string
	logger  *slog.Logger
	handler http.Handler
	server  *http.Server
}

// NewServer creates a new HTTP server. A nil logger uses slog.Default().
func NewServer(service *Service, addr string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		service: service,
		addr:    addr,
		logger:  logger,
	}
	s.handler = s.logRequests(cors(s.routes()))
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/employees/tasks", s.listHistories).Methods(http.MethodGet)
	r.HandleFunc("/employee/{name}/tasks", s.getHistory).Methods(http.MethodGet)
	r.HandleFunc("/task", s.writeTasks).Methods(http.MethodPost)

	r.HandleFunc("/metadata", s.listMetadata).Methods(http.MethodGet)
	r.HandleFunc("/metadata", s.upsertMetadata).Methods(http.MethodPost)

	r.HandleFunc("/logs", s.listLogs).Methods(http.MethodGet)
	r.HandleFunc("/logs", s.touchLog).Methods(http.MethodPost)

	r.HandleFunc("/audit", s.listAudit).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth)

	return r
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	s.logger.Info("starting task board server", "addr", s.addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// --- Middleware ---

// cors allows any origin and answers preflight requests directly.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrEmptyName),
		errors.Is(err, ErrNoTasks),
		errors.Is(err, ErrInvalidRequest),
		errors.Is(err, store.ErrEmptyName),
		errors.Is(err, store.ErrEmptyDate):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, prefix string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		http.Error(w, prefix+": "+err.Error(), status)
		return
	}
	http.Error(w, err.Error(), status)
}

func decode(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Join(ErrInvalidRequest, err)
	}
	return nil
}

// --- Task Handlers ---

func (s *Server) listHistories(w http.ResponseWriter, r *http.Request) {
	hs, err := s.service.ListHistories(r.Context())
	if err != nil {
		s.fail(w, r, "Failed to fetch tasks", err)
		return
	}
	writeJSON(w, http.StatusOK, hs)
}

func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	h, err := s.service.GetHistory(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		s.fail(w, r, "Failed to fetch tasks", err)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

func (s *Server) writeTasks(w http.ResponseWriter, r *http.Request) {
	var req models.TaskRequest
	if err := decode(r, &req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.service.WriteTasks(r.Context(), req); err != nil {
		s.fail(w, r, "Failed to update task", err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Tasks updated successfully"))
}

// --- Metadata Handlers ---

func (s *Server) listMetadata(w http.ResponseWriter, r *http.Request) {
	m, err := s.service.ListMetadata(r.Context())
	if err != nil {
		s.fail(w, r, "Failed to fetch metadata", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) upsertMetadata(w http.ResponseWriter, r *http.Request) {
	var req models.MetadataRequest
	if err := decode(r, &req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	m, err := s.service.UpsertMetadata(r.Context(), req)
	if err != nil {
		s.fail(w, r, "Failed to save metadata", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// --- Log Handlers ---

func (s *Server) listLogs(w http.ResponseWriter, r *http.Request) {
	l, err := s.service.ListLogs(r.Context())
	if err != nil {
		s.fail(w, r, "Failed to fetch logs", err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) touchLog(w http.ResponseWriter, r *http.Request) {
	var req models.LogRequest
	if err := decode(r, &req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	l, err := s.service.TouchLog(r.Context(), req)
	if err != nil {
		s.fail(w, r, "Failed to save log", err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) listAudit(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	entries, err := s.service.ListAudit(r.Context(), limit)
	if err != nil {
		s.fail(w, r, "Failed to fetch audit trail", err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// --- Health ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	health := s.service.Health(r.Context())
	status := http.StatusOK
	if !health.OK {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}
