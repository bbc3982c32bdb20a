package httpserver

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"printdesk/internal/report"
	"printdesk/internal/views"
)

func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := s.deps.Repository.ListAuditLogs(r.Context(), limit)
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

func (s *Server) handleOrdersPDF(w http.ResponseWriter, r *http.Request) {
	orders := views.FilterOrders(s.deps.Store.Orders.Snapshot(), views.OrderFilter{
		Status: r.URL.Query().Get("status"),
	})
	stats := report.ComputeStats(orders)

	data, err := report.OrdersPDF(orders, r.URL.Query().Get("title"), stats)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	serveAttachment(w, data, "application/pdf",
		fmt.Sprintf("Reporte_%s.pdf", time.Now().Format("20060102_1504")))
}

func (s *Server) handleOrdersExcel(w http.ResponseWriter, r *http.Request) {
	orders := views.FilterOrders(s.deps.Store.Orders.Snapshot(), views.OrderFilter{
		Status: r.URL.Query().Get("status"),
	})

	data, err := report.OrdersExcel(orders)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	serveAttachment(w, data,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		fmt.Sprintf("Export_%s.xlsx", time.Now().Format("20060102")))
}

func (s *Server) handleAuditExcel(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := s.deps.Repository.ListAuditLogs(r.Context(), limit)
	if err != nil {
		writeRepoError(w, err)
		return
	}

	data, err := report.AuditExcel(entries)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	serveAttachment(w, data,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		fmt.Sprintf("Auditoria_%s.xlsx", time.Now().Format("20060102_1504")))
}

func serveAttachment(w http.ResponseWriter, data []byte, contentType, filename string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}
