package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"printdesk/internal/metrics"
	"printdesk/internal/mutate"
	"printdesk/internal/repo"
	"printdesk/internal/store"
)

// orderDraft is the autosaved form snapshot of an order's editable
// fields. Status and the payment amounts are not part of it; those
// only change through the dedicated audited endpoints.
type orderDraft struct {
	Description string   `json:"description"`
	Material    string   `json:"material"`
	Dimensions  string   `json:"dimensions"`
	Quantity    int      `json:"quantity"`
	PrintSides  string   `json:"print_sides"`
	Finishing   []string `json:"finishing"`
	FileURLs    []string `json:"file_urls"`
}

func draftFromOrder(o repo.Order) orderDraft {
	d := orderDraft{
		Quantity:  0,
		Finishing: o.Finishing,
		FileURLs:  o.FileURLs,
	}
	if o.Description != nil {
		d.Description = *o.Description
	}
	if o.Material != nil {
		d.Material = *o.Material
	}
	if o.Dimensions != nil {
		d.Dimensions = *o.Dimensions
	}
	if o.Quantity != nil {
		d.Quantity = *o.Quantity
	}
	if o.PrintSides != nil {
		d.PrintSides = *o.PrintSides
	}
	if d.Finishing == nil {
		d.Finishing = []string{}
	}
	if d.FileURLs == nil {
		d.FileURLs = []string{}
	}
	return d
}

func (d orderDraft) patch() repo.OrderFieldPatch {
	quantity := d.Quantity
	finishing := d.Finishing
	if finishing == nil {
		finishing = []string{}
	}
	fileURLs := d.FileURLs
	if fileURLs == nil {
		fileURLs = []string{}
	}
	return repo.OrderFieldPatch{
		Description: &d.Description,
		Material:    &d.Material,
		Dimensions:  &d.Dimensions,
		Quantity:    &quantity,
		PrintSides:  &d.PrintSides,
		Finishing:   finishing,
		FileURLs:    fileURLs,
	}
}

// draftManager owns one autosave session per open order form. Sessions
// are created lazily on the first draft update and torn down when the
// form closes, so no write can fire for a closed form.
type draftManager struct {
	logger      *slog.Logger
	metrics     *metrics.Metrics
	coordinator *mutate.Coordinator
	store       *store.Store
	quiet       time.Duration

	mu       sync.Mutex
	sessions map[string]*mutate.Autosaver[orderDraft]
}

func newDraftManager(logger *slog.Logger, m *metrics.Metrics, c *mutate.Coordinator, s *store.Store, quiet time.Duration) *draftManager {
	return &draftManager{
		logger:      logger.With("component", "drafts"),
		metrics:     m,
		coordinator: c,
		store:       s,
		quiet:       quiet,
		sessions:    map[string]*mutate.Autosaver[orderDraft]{},
	}
}

// Update routes a form snapshot into the order's autosave session,
// creating the session seeded with the currently persisted state.
func (m *draftManager) Update(orderID string, draft orderDraft) bool {
	m.mu.Lock()
	session, ok := m.sessions[orderID]
	if !ok {
		order, exists := m.store.Orders.Get(orderID)
		if !exists {
			m.mu.Unlock()
			return false
		}
		session = mutate.NewAutosaver(draftFromOrder(order), m.quiet,
			func(ctx context.Context, d orderDraft) error {
				return m.coordinator.UpdateOrderFields(ctx, orderID, d.patch())
			}, m.logger, m.metrics)
		m.sessions[orderID] = session
	}
	m.mu.Unlock()

	session.Update(draft)
	return true
}

// Close tears down the order's session, cancelling any pending write.
func (m *draftManager) Close(orderID string) {
	m.mu.Lock()
	session, ok := m.sessions[orderID]
	if ok {
		delete(m.sessions, orderID)
	}
	m.mu.Unlock()
	if ok {
		session.Close()
	}
}

// CloseAll cancels every pending autosave, used at shutdown.
func (m *draftManager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = map[string]*mutate.Autosaver[orderDraft]{}
	m.mu.Unlock()
	for _, session := range sessions {
		session.Close()
	}
}

func (s *Server) handleOrderDraft(w http.ResponseWriter, r *http.Request) {
	var draft orderDraft
	if err := decodeJSON(r, &draft); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !s.drafts.Update(r.PathValue("id"), draft) {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "scheduled"})
}

func (s *Server) handleCloseOrderDraft(w http.ResponseWriter, r *http.Request) {
	s.drafts.Close(r.PathValue("id"))
	writeJSON(w, http.StatusOK, map[string]string{"status": "closed"})
}
