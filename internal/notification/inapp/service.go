// Package inapp is the notification sink: notifications are persisted per
// recipient and pushed to connected clients when a live channel is attached.
package inapp

import (
	"context"
	"strings"

	"admissions_crm/internal/leads/domain"
	"admissions_crm/platform/apperr"
	"admissions_crm/platform/logger"

	"github.com/google/uuid"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type Store interface {
	Create(ctx context.Context, audience domain.Audience, recipient uuid.UUID, message string) (domain.Notification, error)
	List(ctx context.Context, userID uuid.UUID, f Filter, limit, offset int) ([]domain.Notification, int, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, userID, id uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// Filter narrows a listing. The zero value lists everything.
type Filter struct {
	UnreadOnly bool
	Audience   domain.Audience
}

// Query is one page request.
type Query struct {
	Filter
	Page     int
	PageSize int
}

type Page struct {
	Items    []domain.Notification `json:"items"`
	Total    int                   `json:"total"`
	Unread   int                   `json:"unread"`
	Page     int                   `json:"page"`
	PageSize int                   `json:"pageSize"`
}

// Pusher delivers a stored notification to the recipient's open connections.
type Pusher interface {
	PushNotification(n domain.Notification)
}

type Service struct {
	repo   Store
	pusher Pusher
	log    *logger.Logger
}

func NewService(repo Store, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{repo: repo, log: log}
}

// SetPusher attaches the live channel after construction.
func (s *Service) SetPusher(p Pusher) {
	s.pusher = p
}

// Notify persists n and pushes it to the recipient. Failures are logged and
// returned, but callers on the assignment path ignore them.
func (s *Service) Notify(ctx context.Context, n domain.Notification) error {
	if s == nil || s.repo == nil {
		return apperr.Internal("in-app notification service not configured")
	}
	message := strings.TrimSpace(n.Message)
	if n.RecipientUserID == uuid.Nil || message == "" {
		return apperr.Validation("recipient and message are required")
	}
	if n.Audience == "" {
		n.Audience = domain.AudienceCounsellor
	}

	stored, err := s.repo.Create(ctx, n.Audience, n.RecipientUserID, message)
	if err != nil {
		s.log.Error("failed to persist in-app notification", "error", err, "userId", n.RecipientUserID)
		return err
	}

	if s.pusher != nil {
		s.pusher.PushNotification(stored)
	}
	return nil
}

// List clamps paging and returns the page together with the unread count.
func (s *Service) List(ctx context.Context, userID uuid.UUID, q Query) (Page, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = defaultPageSize
	}
	if q.PageSize > maxPageSize {
		q.PageSize = maxPageSize
	}

	items, total, err := s.repo.List(ctx, userID, q.Filter, q.PageSize, (q.Page-1)*q.PageSize)
	if err != nil {
		return Page{}, err
	}
	unread, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return Page{}, err
	}
	return Page{Items: items, Total: total, Unread: unread, Page: q.Page, PageSize: q.PageSize}, nil
}

func (s *Service) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *Service) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	return s.repo.MarkRead(ctx, userID, id)
}

func (s *Service) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllRead(ctx, userID)
}

func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return s.repo.Delete(ctx, userID, id)
}
