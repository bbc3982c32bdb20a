package httpserver

import "net/http"

func (s *Server) handleListLearnings(w http.ResponseWriter, r *http.Request) {
	learnings, err := s.deps.Messaging.ListLearnings(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"learnings": learnings})
}

func (s *Server) handleLearningAction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "missing learning id")
		return
	}

	if err := s.deps.Messaging.ActOnLearning(r.Context(), r.PathValue("action"), req.ID); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, mutationResponse{Status: "success"})
}

func (s *Server) handleRunLearningsAudit(w http.ResponseWriter, r *http.Request) {
	message, err := s.deps.Messaging.RunLearningsAudit(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success", "message": message})
}
