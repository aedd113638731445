package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/surplusx-backend/api/middleware"
	"github.com/angelmondragon/surplusx-backend/api/responses"
	"github.com/angelmondragon/surplusx-backend/api/validators"
	"github.com/angelmondragon/surplusx-backend/internal/notifications"
	pkgerrors "github.com/angelmondragon/surplusx-backend/pkg/errors"
	"github.com/angelmondragon/surplusx-backend/pkg/logger"
	"github.com/angelmondragon/surplusx-backend/pkg/pagination"
)

// inboxAction runs against the caller's own inbox; the inbox is keyed by
// user, never by organization.
type inboxAction func(r *http.Request, svc notifications.Service, userID uuid.UUID) (any, error)

func inboxEndpoint(svc notifications.Service, logg *logger.Logger, act inboxAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}
		out, err := act(r, svc, middleware.ActorFromContext(r.Context()).UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, out)
	}
}

// ListNotifications pages the caller's inbox newest first and reports the
// unread total alongside.
func ListNotifications(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return inboxEndpoint(svc, logg, func(r *http.Request, svc notifications.Service, userID uuid.UUID) (any, error) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			return nil, err
		}
		unread, err := validators.ParseQueryBool(r, "unread_only")
		if err != nil {
			return nil, err
		}
		return svc.List(r.Context(), notifications.ListParams{
			UserID:     userID,
			Limit:      limit,
			Cursor:     strings.TrimSpace(r.URL.Query().Get("cursor")),
			UnreadOnly: unread != nil && *unread,
		})
	})
}

func MarkNotificationRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return inboxEndpoint(svc, logg, func(r *http.Request, svc notifications.Service, userID uuid.UUID) (any, error) {
		id, err := validators.URLParamUUID(r, "notificationId")
		if err != nil {
			return nil, err
		}
		if err := svc.MarkRead(r.Context(), userID, id); err != nil {
			return nil, err
		}
		return map[string]bool{"read": true}, nil
	})
}

func MarkAllNotificationsRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return inboxEndpoint(svc, logg, func(r *http.Request, svc notifications.Service, userID uuid.UUID) (any, error) {
		n, err := svc.MarkAllRead(r.Context(), userID)
		if err != nil {
			return nil, err
		}
		return map[string]int64{"updated": n}, nil
	})
}
