package api

import (
	"errors"
	"net/http"

	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/notification"
)

func listNotificationsHandler(svc *notification.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		unread, err := queryBool(r, "unread")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}

		list, err := svc.List(r.Context(), identity(r).UserID, unread != nil && *unread)
		if err != nil {
			handleNotificationError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, mapSlice(list, toNotificationResponse))
	}
}

func markReadHandler(svc *notification.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlUUID(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_notification_id", err.Error())
			return
		}

		n, err := svc.MarkRead(r.Context(), identity(r).UserID, id)
		if err != nil {
			handleNotificationError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, toNotificationResponse(*n))
	}
}

func handleNotificationError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, notification.ErrNotificationNotFound):
		writeError(w, http.StatusNotFound, "notification_not_found", "notification not found")
	default:
		writeInternal(w, r, err)
	}
}
