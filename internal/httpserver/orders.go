package httpserver

import (
	"net/http"
	"strconv"

	"printdesk/internal/views"
)

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := views.OrderFilter{
		Status: q.Get("status"),
		LeadID: q.Get("lead_id"),
		Query:  q.Get("q"),
	}
	if raw := q.Get("paid"); raw != "" {
		paid, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid paid filter")
			return
		}
		filter.Paid = &paid
	}

	orders := views.FilterOrders(s.deps.Store.Orders.Snapshot(), filter)
	total := len(orders)

	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	orders = views.Paginate(orders, page, perPage)

	writeJSON(w, http.StatusOK, map[string]any{
		"orders": toOrdersJSON(orders),
		"total":  total,
	})
}

func (s *Server) handleOrderBoard(w http.ResponseWriter, r *http.Request) {
	orders := s.deps.Store.Orders.Snapshot()
	if q := r.URL.Query().Get("q"); q != "" {
		orders = views.SearchOrders(orders, q)
	}

	columns := views.GroupByStatus(orders)
	out := make([]map[string]any, 0, len(columns))
	for _, col := range columns {
		out = append(out, map[string]any{
			"status": col.Status,
			"orders": toOrdersJSON(col.Orders),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"columns": out})
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	order, ok := s.deps.Store.Orders.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}
	writeJSON(w, http.StatusOK, toOrderJSON(order))
}

func (s *Server) handleOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		NewStatus string `json:"new_status"`
		ChangedBy string `json:"changed_by"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.deps.Coordinator.ChangeStatus(r.Context(), r.PathValue("id"), req.NewStatus, req.ChangedBy)
	if err != nil {
		writeRepoError(w, err)
		return
	}

	resp := mutationResponse{Status: "success", Notified: res.Notified}
	if res.NotifyErr != nil {
		resp.Message = "estado guardado, pero falló la notificación al cliente"
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleOrderPayment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DepositAmount int64  `json:"deposit_amount"`
		TotalAmount   int64  `json:"total_amount"`
		ChangedBy     string `json:"changed_by"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.deps.Coordinator.UpdatePayment(r.Context(), r.PathValue("id"), req.DepositAmount, req.TotalAmount, req.ChangedBy)
	if err != nil {
		writeRepoError(w, err)
		return
	}

	resp := mutationResponse{Status: "success", Notified: res.Notified}
	if res.NotifyErr != nil {
		resp.Message = "pago guardado, pero falló la notificación al cliente"
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBulkDeleteOrders(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "no order ids provided")
		return
	}

	for _, id := range req.IDs {
		s.drafts.Close(id)
	}
	if err := s.deps.Coordinator.DeleteOrders(r.Context(), req.IDs); err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "deleted": len(req.IDs)})
}

func (s *Server) handleOrderAudit(w http.ResponseWriter, r *http.Request) {
	entries, err := s.deps.Repository.ListOrderAuditLogs(r.Context(), r.PathValue("id"))
	if err != nil {
		writeRepoError(w, err)
		return
	}
	out := make([]auditJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, toAuditJSON(e))
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": out})
}

func (s *Server) handleSendQuote(w http.ResponseWriter, r *http.Request) {
	order, ok := s.deps.Store.Orders.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}
	if order.Lead == nil || order.Lead.PhoneNumber == "" {
		writeError(w, http.StatusUnprocessableEntity, "cliente sin teléfono")
		return
	}

	quote := views.BuildQuoteText(order)
	if err := s.deps.Messaging.SendManual(r.Context(), order.LeadID, quote); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, mutationResponse{Status: "success", Notified: true})
}
