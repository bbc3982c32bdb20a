package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"printdesk/internal/metrics"
	"printdesk/internal/mutate"
	"printdesk/internal/notifier"
	"printdesk/internal/repo"
	"printdesk/internal/store"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers groups optional HTTP handlers to mount.
type Handlers struct {
	MessagingWebhook http.Handler
}

// Dependencies exposes core dependencies to the API handlers.
type Dependencies struct {
	Repository  repo.Repository
	Store       *store.Store
	Coordinator *mutate.Coordinator
	Messaging   *notifier.Client

	// AutosaveQuietPeriod configures the order draft sessions.
	AutosaveQuietPeriod time.Duration
}

// Server wraps an http.Server with the dashboard API routes.
type Server struct {
	httpServer *http.Server
	addr       string
	logger     *slog.Logger
	metrics    *metrics.Metrics
	handlers   Handlers
	deps       Dependencies
	drafts     *draftManager
	basePath   string
}

// New creates a new HTTP server listening on addr with health and metrics endpoints.
func New(addr string, logger *slog.Logger, metricRegistry *metrics.Metrics, handlers Handlers, basePath string) *Server {
	server := &Server{
		addr:     addr,
		logger:   logger.With("component", "http"),
		metrics:  metricRegistry,
		handlers: handlers,
		basePath: normaliseBasePath(basePath),
	}

	if server.basePath != "" {
		server.logger.Info("http server configured with base path", "base_path", server.basePath)
	}
	return server
}

// SetDependencies makes dependencies accessible to handlers and builds
// the route table. Must be called before Start.
func (s *Server) SetDependencies(deps Dependencies) {
	s.deps = deps
	s.drafts = newDraftManager(s.logger, s.metrics, deps.Coordinator, deps.Store, deps.AutosaveQuietPeriod)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", healthHandler)
	mux.Handle("GET /metrics", promhttp.Handler())

	if s.handlers.MessagingWebhook != nil {
		mux.Handle("POST /webhook/messaging", s.handlers.MessagingWebhook)
	}

	// Orders
	mux.HandleFunc("GET /api/orders", s.handleListOrders)
	mux.HandleFunc("GET /api/orders/board", s.handleOrderBoard)
	mux.HandleFunc("DELETE /api/orders", s.handleBulkDeleteOrders)
	mux.HandleFunc("GET /api/orders/{id}", s.handleGetOrder)
	mux.HandleFunc("POST /api/orders/{id}/status", s.handleOrderStatus)
	mux.HandleFunc("POST /api/orders/{id}/payment", s.handleOrderPayment)
	mux.HandleFunc("PUT /api/orders/{id}/draft", s.handleOrderDraft)
	mux.HandleFunc("DELETE /api/orders/{id}/draft", s.handleCloseOrderDraft)
	mux.HandleFunc("GET /api/orders/{id}/audit", s.handleOrderAudit)
	mux.HandleFunc("POST /api/orders/{id}/quote", s.handleSendQuote)

	// Leads
	mux.HandleFunc("GET /api/leads", s.handleListLeads)
	mux.HandleFunc("POST /api/leads", s.handleCreateLead)
	mux.HandleFunc("PATCH /api/leads/{id}", s.handleUpdateLead)
	mux.HandleFunc("POST /api/leads/{id}/ai", s.handleToggleAI)
	mux.HandleFunc("POST /api/leads/{id}/profile-pic", s.handleSyncProfilePic)
	mux.HandleFunc("GET /api/leads/{id}/messages", s.handleLeadMessages)

	// Chat
	mux.HandleFunc("POST /api/chat/send", s.handleSendManual)

	// Notifications
	mux.HandleFunc("GET /api/notifications", s.handleListNotifications)
	mux.HandleFunc("POST /api/notifications/read-all", s.handleReadAllNotifications)
	mux.HandleFunc("POST /api/notifications/{id}/read", s.handleReadNotification)
	mux.HandleFunc("POST /api/notifications/{id}/archive", s.handleArchiveNotification)

	// Files
	mux.HandleFunc("GET /api/files/tree", s.handleFileTree)
	mux.HandleFunc("POST /api/files/upload", s.handleFileUpload)
	mux.HandleFunc("POST /api/files/delete", s.handleFileDelete)

	// Audit and reports
	mux.HandleFunc("GET /api/audit", s.handleListAudit)
	mux.HandleFunc("GET /api/reports/orders.pdf", s.handleOrdersPDF)
	mux.HandleFunc("GET /api/reports/orders.xlsx", s.handleOrdersExcel)
	mux.HandleFunc("GET /api/reports/audit.xlsx", s.handleAuditExcel)

	// Learnings queue (proxied to the messaging service)
	mux.HandleFunc("GET /api/learnings", s.handleListLearnings)
	mux.HandleFunc("POST /api/learnings/run_audit", s.handleRunLearningsAudit)
	mux.HandleFunc("POST /api/learnings/{action}", s.handleLearningAction)

	handler := mountWithBasePath(s.basePath, mux)
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// Start begins listening for incoming HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server listen: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server and closes draft sessions.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	if s.drafts != nil {
		s.drafts.CloseAll()
	}
	return s.httpServer.Shutdown(ctx)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "failed to encode json", http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"status": "error", "message": message})
}

func writeRepoError(w http.ResponseWriter, err error) {
	if errors.Is(err, repo.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func decodeJSON(r *http.Request, dest any) error {
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	return nil
}

func mountWithBasePath(basePath string, handler http.Handler) http.Handler {
	if basePath == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, basePath) {
			http.NotFound(w, r)
			return
		}
		if len(r.URL.Path) > len(basePath) && r.URL.Path[len(basePath)] != '/' {
			http.NotFound(w, r)
			return
		}
		trimmed := strings.TrimPrefix(r.URL.Path, basePath)
		if trimmed == "" {
			trimmed = "/"
		}
		r.URL.Path = trimmed
		if r.URL.RawPath != "" {
			rawTrimmed := strings.TrimPrefix(r.URL.RawPath, basePath)
			if rawTrimmed == "" {
				rawTrimmed = "/"
			}
			r.URL.RawPath = rawTrimmed
		}
		handler.ServeHTTP(w, r)
	})
}

func normaliseBasePath(base string) string {
	base = strings.TrimSpace(base)
	if base == "" || base == "/" {
		return ""
	}
	if !strings.HasPrefix(base, "/") {
		base = "/" + base
	}
	return strings.TrimSuffix(base, "/")
}
