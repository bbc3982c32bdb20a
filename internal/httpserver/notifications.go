package httpserver

import "net/http"

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	notifications := s.deps.Store.Notifications.Snapshot()

	unread := 0
	out := make([]notificationJSON, 0, len(notifications))
	for _, n := range notifications {
		if !n.IsRead {
			unread++
		}
		out = append(out, toNotificationJSON(n))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"notifications": out,
		"unread_count":  unread,
	})
}

func (s *Server) handleReadNotification(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Coordinator.MarkNotificationRead(r.Context(), r.PathValue("id")); err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mutationResponse{Status: "success"})
}

func (s *Server) handleReadAllNotifications(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Coordinator.MarkAllNotificationsRead(r.Context()); err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mutationResponse{Status: "success"})
}

func (s *Server) handleArchiveNotification(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Coordinator.ArchiveNotification(r.Context(), r.PathValue("id")); err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mutationResponse{Status: "success"})
}
