package httpserver

import (
	"net/http"
	"strings"

	"printdesk/internal/repo"

	"github.com/google/uuid"
)

func (s *Server) handleSendManual(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LeadID  string `json:"lead_id"`
		Content string `json:"content"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		writeError(w, http.StatusUnprocessableEntity, "el mensaje no puede estar vacío")
		return
	}

	lead, ok := s.deps.Store.Leads.Get(req.LeadID)
	if !ok {
		writeError(w, http.StatusNotFound, "lead not found")
		return
	}
	if lead.PhoneNumber == "" {
		writeError(w, http.StatusUnprocessableEntity, "cliente sin teléfono")
		return
	}

	if err := s.deps.Messaging.SendManual(r.Context(), req.LeadID, content); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	// Record the outbound message locally so the chat window shows it
	// even before the messaging service echoes it back.
	if _, err := s.deps.Repository.InsertMessage(r.Context(), repo.Message{
		ID:      uuid.NewString(),
		LeadID:  req.LeadID,
		Role:    repo.RoleAssistant,
		Content: content,
	}); err != nil {
		s.logger.Warn("failed recording manual message", "lead_id", req.LeadID, "error", err)
	}

	writeJSON(w, http.StatusOK, mutationResponse{Status: "success", Notified: true})
}
