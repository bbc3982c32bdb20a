package httpserver

import (
	"net/http"
	"strconv"
	"strings"

	"printdesk/internal/repo"
	"printdesk/internal/validate"
	"printdesk/internal/views"

	"github.com/google/uuid"
)

func (s *Server) handleListLeads(w http.ResponseWriter, r *http.Request) {
	leads := s.deps.Store.Leads.Snapshot()
	if q := r.URL.Query().Get("q"); q != "" {
		leads = views.SearchLeads(leads, q)
	}

	out := make([]leadJSON, 0, len(leads))
	for _, l := range leads {
		out = append(out, toLeadJSON(l))
	}
	writeJSON(w, http.StatusOK, map[string]any{"leads": out})
}

type leadRequest struct {
	Name         string  `json:"name"`
	PhoneNumber  string  `json:"phone_number"`
	Email        *string `json:"email"`
	RUT          *string `json:"rut"`
	Address      *string `json:"address"`
	BusinessName *string `json:"business_name"`
}

// validateLeadFields returns per-field validation messages. An empty
// map means the request is acceptable.
func validateLeadFields(name, phone string, rut *string) map[string]string {
	problems := map[string]string{}
	if strings.TrimSpace(name) == "" {
		problems["name"] = "el nombre es obligatorio"
	}
	if strings.TrimSpace(phone) == "" {
		problems["phone_number"] = "el teléfono es obligatorio"
	} else if !validate.ValidatePhone(phone) {
		problems["phone_number"] = "teléfono inválido"
	}
	if rut != nil && *rut != "" && !validate.ValidateRUT(*rut) {
		problems["rut"] = "RUT inválido"
	}
	return problems
}

func (s *Server) handleCreateLead(w http.ResponseWriter, r *http.Request) {
	var req leadRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if problems := validateLeadFields(req.Name, req.PhoneNumber, req.RUT); len(problems) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"status": "error", "fields": problems})
		return
	}

	lead := repo.Lead{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(req.Name),
		PhoneNumber:  validate.FormatPhone(req.PhoneNumber),
		Email:        req.Email,
		Address:      req.Address,
		BusinessName: req.BusinessName,
		AIEnabled:    true,
	}
	if req.RUT != nil && *req.RUT != "" {
		formatted := validate.FormatRUT(*req.RUT)
		lead.RUT = &formatted
	}

	created, err := s.deps.Repository.InsertLead(r.Context(), lead)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	s.deps.Store.Leads.UpsertOne(*created)
	writeJSON(w, http.StatusCreated, toLeadJSON(*created))
}

func (s *Server) handleUpdateLead(w http.ResponseWriter, r *http.Request) {
	var req leadRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id := r.PathValue("id")
	current, ok := s.deps.Store.Leads.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "lead not found")
		return
	}

	name := current.Name
	if req.Name != "" {
		name = req.Name
	}
	phone := current.PhoneNumber
	if req.PhoneNumber != "" {
		phone = req.PhoneNumber
	}
	if problems := validateLeadFields(name, phone, req.RUT); len(problems) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"status": "error", "fields": problems})
		return
	}

	patch := repo.LeadPatch{
		Email:        req.Email,
		Address:      req.Address,
		BusinessName: req.BusinessName,
	}
	if req.Name != "" {
		trimmed := strings.TrimSpace(req.Name)
		patch.Name = &trimmed
	}
	if req.PhoneNumber != "" {
		formatted := validate.FormatPhone(req.PhoneNumber)
		patch.PhoneNumber = &formatted
	}
	if req.RUT != nil && *req.RUT != "" {
		formatted := validate.FormatRUT(*req.RUT)
		patch.RUT = &formatted
	}

	if err := s.deps.Coordinator.UpdateLead(r.Context(), id, patch); err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mutationResponse{Status: "success"})
}

func (s *Server) handleToggleAI(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id := r.PathValue("id")
	if err := s.deps.Coordinator.SetLeadAI(r.Context(), id, req.Enabled); err != nil {
		writeRepoError(w, err)
		return
	}

	// The messaging service keeps its own copy of the flag; a failure
	// there is reported but the local change stands.
	resp := mutationResponse{Status: "success"}
	if err := s.deps.Messaging.ToggleAI(r.Context(), id, req.Enabled); err != nil {
		s.logger.Warn("failed syncing ai flag to messaging service", "lead_id", id, "error", err)
		resp.Message = "guardado, pero no sincronizado con el servicio de mensajería"
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSyncProfilePic(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := s.deps.Store.Leads.Get(id); !ok {
		writeError(w, http.StatusNotFound, "lead not found")
		return
	}

	url, err := s.deps.Messaging.SyncProfilePicture(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if url == "" {
		writeJSON(w, http.StatusOK, map[string]string{"status": "success", "url": ""})
		return
	}

	if err := s.deps.Repository.SetLeadProfilePicture(r.Context(), id, url); err != nil {
		writeRepoError(w, err)
		return
	}
	if lead, ok := s.deps.Store.Leads.Get(id); ok {
		lead.ProfilePictureURL = &url
		s.deps.Store.Leads.UpsertOne(lead)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success", "url": url})
}

func (s *Server) handleLeadMessages(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	messages, err := s.deps.Repository.ListLeadMessages(r.Context(), r.PathValue("id"), limit)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	out := make([]messageJSON, 0, len(messages))
	for _, m := range messages {
		out = append(out, toMessageJSON(m))
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": out})
}
