package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fjod/sillage/internal/domain"
)

type NotificationHandler struct {
	sessions Sessions
}

func NewNotificationHandler(sessions Sessions) *NotificationHandler {
	return &NotificationHandler{sessions: sessions}
}

type NotificationsResponse struct {
	Notifications []domain.Notification `json:"notifications"`
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	sf := currentStorefront(h.sessions, r)
	respondJSON(w, http.StatusOK, NotificationsResponse{Notifications: sf.Notifications.List()})
}

func (h *NotificationHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_id", "id must be a positive integer")
		return
	}

	sf := currentStorefront(h.sessions, r)
	if !sf.Notifications.Dismiss(id) {
		respondError(w, http.StatusNotFound, "not_found", "notification not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
