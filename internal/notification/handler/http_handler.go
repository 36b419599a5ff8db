// Package handler serves the current user's notifications.
package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"admissions_crm/internal/leads/domain"
	"admissions_crm/internal/notification/inapp"
	"admissions_crm/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const maxListLimit = 50

type HTTPHandler struct {
	svc *inapp.Service
}

func NewHTTPHandler(svc *inapp.Service) *HTTPHandler {
	return &HTTPHandler{svc: svc}
}

func (h *HTTPHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/unread", h.CountUnread)
	rg.PATCH("/:id/read", h.MarkRead)
	rg.PATCH("/read-all", h.MarkAllRead)
	rg.DELETE("/:id", h.Delete)
}

// List accepts page, limit, unread=true and audience=ADMIN|COUNSELLOR.
func (h *HTTPHandler) List(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	q, ok := listQuery(c)
	if !ok {
		return
	}
	page, err := h.svc.List(c.Request.Context(), identity.UserID(), q)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, page)
}

func (h *HTTPHandler) CountUnread(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	count, err := h.svc.CountUnread(c.Request.Context(), identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"count": count})
}

func (h *HTTPHandler) MarkRead(c *gin.Context) {
	h.withNotification(c, h.svc.MarkRead)
}

func (h *HTTPHandler) MarkAllRead(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	if err := h.svc.MarkAllRead(c.Request.Context(), identity.UserID()); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"status": "ok"})
}

func (h *HTTPHandler) Delete(c *gin.Context) {
	h.withNotification(c, h.svc.Delete)
}

type notificationOp func(ctx context.Context, userID, id uuid.UUID) error

// withNotification runs op for the caller against the :id notification.
func (h *HTTPHandler) withNotification(c *gin.Context, op notificationOp) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}

	if err := op(c.Request.Context(), identity.UserID(), id); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"status": "ok"})
}

func listQuery(c *gin.Context) (inapp.Query, bool) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit > maxListLimit {
		limit = maxListLimit
	}
	q := inapp.Query{Page: page, PageSize: limit}

	if raw := c.Query("unread"); raw != "" {
		unread, err := strconv.ParseBool(raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "unread must be a boolean", nil)
			return inapp.Query{}, false
		}
		q.UnreadOnly = unread
	}

	switch audience := domain.Audience(strings.ToUpper(strings.TrimSpace(c.Query("audience")))); audience {
	case "":
	case domain.AudienceAdmin, domain.AudienceCounsellor:
		q.Audience = audience
	default:
		httpkit.Error(c, http.StatusBadRequest, "invalid audience", nil)
		return inapp.Query{}, false
	}
	return q, true
}
