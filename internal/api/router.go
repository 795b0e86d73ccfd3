package api

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"

	"library-circulation/library"
)

// Server exposes the circulation engine over HTTP. It mirrors the stores'
// result-value error model: business failures are JSON results, not HTTP
// error codes.
type Server struct {
	catalog  *library.CatalogStore
	accounts *library.AccountStore
	config   *library.ConfigStore
	guard    *library.SessionGuard
	engine   *library.Engine
	logger   *log.Logger
	metrics  *metrics

	// mu guards the stores and the token map. The stores expect
	// single-threaded access; net/http runs one goroutine per request.
	mu sync.RWMutex

	// tokens maps opaque session tokens to the authenticated member id.
	tokens map[string]string
}

// NewServer wires the injected store handles into an HTTP server.
func NewServer(catalog *library.CatalogStore, accounts *library.AccountStore, config *library.ConfigStore, guard *library.SessionGuard, engine *library.Engine, logger *log.Logger) *Server {
	return &Server{
		catalog:  catalog,
		accounts: accounts,
		config:   config,
		guard:    guard,
		engine:   engine,
		logger:   logger,
		metrics:  newMetrics(),
		tokens:   make(map[string]string),
	}
}

// locked serializes a mutating handler behind the write lock.
func (s *Server) locked(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		next(w, r)
	}
}

// readLocked lets read-only handlers run concurrently with each other.
func (s *Server) readLocked(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		defer s.mu.RUnlock()
		next(w, r)
	}
}

// Router builds the route table. Every /api route takes the server lock
// before touching the stores or the token map.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintln(w, "OK")
	}).Methods("GET")
	r.Handle("/metrics", s.metrics.handler()).Methods("GET")

	r.HandleFunc("/api/auth/login", s.locked(s.handleLogin)).Methods("POST")
	r.HandleFunc("/api/auth/logout", s.locked(s.withAuth(s.handleLogout))).Methods("POST")

	r.HandleFunc("/api/books", s.readLocked(s.handleQueryBooks)).Methods("GET")
	r.HandleFunc("/api/books", s.locked(s.withAuth(s.handleAddBook))).Methods("POST")
	r.HandleFunc("/api/books/{collectionId}", s.readLocked(s.handleGetBook)).Methods("GET")
	r.HandleFunc("/api/books/{collectionId}/status", s.locked(s.withAuth(s.handleUpdateBookStatus))).Methods("PUT")

	r.HandleFunc("/api/users", s.locked(s.withAuth(s.handleAddMember))).Methods("POST")
	r.HandleFunc("/api/users/reset-credential", s.locked(s.withAuth(s.handleResetCredential))).Methods("POST")

	r.HandleFunc("/api/config", s.readLocked(s.handleGetConfig)).Methods("GET")
	r.HandleFunc("/api/config", s.locked(s.withAuth(s.handleUpdateConfig))).Methods("PUT")
	r.HandleFunc("/api/config", s.locked(s.withAuth(s.handleResetConfig))).Methods("DELETE")

	r.HandleFunc("/api/borrow/validate", s.readLocked(s.withAuth(s.handleValidateBorrow))).Methods("POST")
	r.HandleFunc("/api/borrow", s.locked(s.withAuth(s.handleBorrow))).Methods("POST")
	r.HandleFunc("/api/return", s.locked(s.withAuth(s.handleReturn))).Methods("POST")
	r.HandleFunc("/api/loans", s.readLocked(s.handleQueryLoans)).Methods("GET")

	r.HandleFunc("/api/statistics/book-status", s.readLocked(s.handleBookStatusStats)).Methods("GET")
	r.HandleFunc("/api/statistics/top-books", s.readLocked(s.handleTopBooks)).Methods("GET")

	return r
}
