// Package api serves metrics and the archived end-of-day reports over HTTP.
package api

import (
	"encoding/json"
	"net/http"

	"grid_go/internal/domain"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// DayStore is the read side of the day archive.
type DayStore interface {
	ListDays(symbol string) ([]domain.DailyReport, error)
	GetDay(symbol, day string) (*domain.DailyReport, error)
	TradesForDay(runID, symbol, day string) ([]domain.TradeRecord, error)
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Server routes HTTP requests. The store may be nil when archiving is off.
type Server struct {
	store   DayStore
	metrics http.Handler
	router  *mux.Router
	origins []string
}

// NewServer creates a server; metrics is mounted at /metrics when non-nil.
func NewServer(store DayStore, metrics http.Handler, origins []string) *Server {
	s := &Server{
		store:   store,
		metrics: metrics,
		router:  mux.NewRouter(),
		origins: origins,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics).Methods("GET")
	}
	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/days/{symbol}", s.handleListDays).Methods("GET")
	api.HandleFunc("/days/{symbol}/{day:[0-9]{8}}", s.handleGetDay).Methods("GET")
	api.HandleFunc("/runs/{run}/days/{symbol}/{day:[0-9]{8}}/trades", s.handleGetTrades).Methods("GET")
}

// Handler returns the router wrapped with CORS.
func (s *Server) Handler() http.Handler {
	origins := s.origins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(s.router)
}

// ==============================
// Handlers
// ==============================

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleListDays(w http.ResponseWriter, r *http.Request) {
	if !s.archiveEnabled(w) {
		return
	}
	days, err := s.store.ListDays(mux.Vars(r)["symbol"])
	if err != nil {
		respondError(w, http.StatusInternalServerError, "query failed", err.Error())
		return
	}
	if days == nil {
		days = []domain.DailyReport{}
	}
	respondJSON(w, days)
}

func (s *Server) handleGetDay(w http.ResponseWriter, r *http.Request) {
	if !s.archiveEnabled(w) {
		return
	}
	vars := mux.Vars(r)
	day, err := s.store.GetDay(vars["symbol"], vars["day"])
	if err != nil {
		respondError(w, http.StatusInternalServerError, "query failed", err.Error())
		return
	}
	if day == nil {
		respondError(w, http.StatusNotFound, "day not found", vars["symbol"]+" "+vars["day"])
		return
	}
	respondJSON(w, day)
}

func (s *Server) handleGetTrades(w http.ResponseWriter, r *http.Request) {
	if !s.archiveEnabled(w) {
		return
	}
	vars := mux.Vars(r)
	trades, err := s.store.TradesForDay(vars["run"], vars["symbol"], vars["day"])
	if err != nil {
		respondError(w, http.StatusInternalServerError, "query failed", err.Error())
		return
	}
	if trades == nil {
		trades = []domain.TradeRecord{}
	}
	respondJSON(w, trades)
}

func (s *Server) archiveEnabled(w http.ResponseWriter) bool {
	if s.store == nil {
		respondError(w, http.StatusServiceUnavailable, "archive disabled", "")
		return false
	}
	return true
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, error string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   error,
		Message: message,
	})
}
