package inapp

import (
	"context"
	"errors"
	"testing"
	"time"

	"admissions_crm/internal/leads/domain"
	"admissions_crm/platform/apperr"

	"github.com/google/uuid"
)

type memoryStore struct {
	items     []domain.Notification
	createErr error
	lastLimit int
	lastOff   int
}

func (m *memoryStore) Create(_ context.Context, audience domain.Audience, recipient uuid.UUID, message string) (domain.Notification, error) {
	if m.createErr != nil {
		return domain.Notification{}, m.createErr
	}
	n := domain.Notification{ID: uuid.New(), Audience: audience, RecipientUserID: recipient, Message: message, CreatedAt: time.Now()}
	m.items = append(m.items, n)
	return n, nil
}

func (m *memoryStore) List(_ context.Context, userID uuid.UUID, f Filter, limit, offset int) ([]domain.Notification, int, error) {
	m.lastLimit, m.lastOff = limit, offset
	var out []domain.Notification
	for _, n := range m.items {
		if n.RecipientUserID != userID || (f.UnreadOnly && n.IsRead) || (f.Audience != "" && n.Audience != f.Audience) {
			continue
		}
		out = append(out, n)
	}
	return out, len(out), nil
}

func (m *memoryStore) CountUnread(_ context.Context, userID uuid.UUID) (int, error) {
	count := 0
	for _, n := range m.items {
		if n.RecipientUserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (m *memoryStore) MarkRead(_ context.Context, userID, id uuid.UUID) error {
	for i := range m.items {
		if m.items[i].ID == id && m.items[i].RecipientUserID == userID {
			m.items[i].IsRead = true
			return nil
		}
	}
	return apperr.NotFound("notification not found")
}

func (m *memoryStore) MarkAllRead(_ context.Context, userID uuid.UUID) error {
	for i := range m.items {
		if m.items[i].RecipientUserID == userID {
			m.items[i].IsRead = true
		}
	}
	return nil
}

func (m *memoryStore) Delete(context.Context, uuid.UUID, uuid.UUID) error { return nil }

type capturePusher struct {
	pushed []domain.Notification
}

func (c *capturePusher) PushNotification(n domain.Notification) { c.pushed = append(c.pushed, n) }

func TestNotifyPersistsAndPushes(t *testing.T) {
	store := &memoryStore{}
	pusher := &capturePusher{}
	svc := NewService(store, nil)
	svc.SetPusher(pusher)
	user := uuid.New()

	err := svc.Notify(context.Background(), domain.Notification{RecipientUserID: user, Message: "  New student assigned: Asha Rao  "})
	if err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	if len(store.items) != 1 || store.items[0].Audience != domain.AudienceCounsellor || store.items[0].Message != "New student assigned: Asha Rao" {
		t.Errorf("stored = %+v", store.items)
	}
	if len(pusher.pushed) != 1 || pusher.pushed[0].ID != store.items[0].ID {
		t.Errorf("pushed = %+v", pusher.pushed)
	}
}

func TestNotifyRejectsEmptyMessage(t *testing.T) {
	svc := NewService(&memoryStore{}, nil)
	err := svc.Notify(context.Background(), domain.Notification{RecipientUserID: uuid.New(), Message: " "})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("Notify() error = %v, want validation", err)
	}
}

func TestNotifyStoreFailureSkipsPush(t *testing.T) {
	boom := errors.New("db down")
	pusher := &capturePusher{}
	svc := NewService(&memoryStore{createErr: boom}, nil)
	svc.SetPusher(pusher)

	err := svc.Notify(context.Background(), domain.Notification{Audience: domain.AudienceAdmin, RecipientUserID: uuid.New(), Message: "routed"})
	if !errors.Is(err, boom) {
		t.Errorf("Notify() error = %v, want %v", err, boom)
	}
	if len(pusher.pushed) != 0 {
		t.Errorf("pushed %d notifications after store failure", len(pusher.pushed))
	}
}

func TestListClampsPaging(t *testing.T) {
	tests := []struct {
		page, size       int
		wantLimit, wantO int
	}{
		{0, 0, defaultPageSize, 0},
		{3, 10, 10, 20},
		{2, 500, maxPageSize, maxPageSize},
	}
	for _, tt := range tests {
		store := &memoryStore{}
		svc := NewService(store, nil)
		if _, err := svc.List(context.Background(), uuid.New(), Query{Page: tt.page, PageSize: tt.size}); err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if store.lastLimit != tt.wantLimit || store.lastOff != tt.wantO {
			t.Errorf("List(%d,%d) limit/offset = %d/%d, want %d/%d", tt.page, tt.size, store.lastLimit, store.lastOff, tt.wantLimit, tt.wantO)
		}
	}
}

func TestMarkReadAndCount(t *testing.T) {
	store := &memoryStore{}
	svc := NewService(store, nil)
	user := uuid.New()
	ctx := context.Background()
	for _, msg := range []string{"one", "two"} {
		if err := svc.Notify(ctx, domain.Notification{RecipientUserID: user, Message: msg}); err != nil {
			t.Fatal(err)
		}
	}

	if err := svc.MarkRead(ctx, user, store.items[0].ID); err != nil {
		t.Fatalf("MarkRead() error = %v", err)
	}
	if n, _ := svc.CountUnread(ctx, user); n != 1 {
		t.Errorf("CountUnread() = %d, want 1", n)
	}
	if err := svc.MarkRead(ctx, uuid.New(), store.items[1].ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("MarkRead() by other user error = %v, want not found", err)
	}
	if err := svc.MarkAllRead(ctx, user); err != nil {
		t.Fatal(err)
	}
	if n, _ := svc.CountUnread(ctx, user); n != 0 {
		t.Errorf("CountUnread() after MarkAllRead = %d", n)
	}
}

func TestListUnreadOnly(t *testing.T) {
	store := &memoryStore{}
	svc := NewService(store, nil)
	user := uuid.New()
	ctx := context.Background()
	for _, msg := range []string{"one", "two", "three"} {
		if err := svc.Notify(ctx, domain.Notification{RecipientUserID: user, Message: msg}); err != nil {
			t.Fatal(err)
		}
	}
	if err := svc.MarkRead(ctx, user, store.items[0].ID); err != nil {
		t.Fatal(err)
	}

	page, err := svc.List(ctx, user, Query{Filter: Filter{UnreadOnly: true}})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if page.Total != 2 || page.Unread != 2 || page.Page != 1 || page.PageSize != defaultPageSize {
		t.Errorf("page = %+v", page)
	}
	for _, n := range page.Items {
		if n.IsRead {
			t.Errorf("unread listing returned read notification %s", n.ID)
		}
	}

	admin, err := svc.List(ctx, user, Query{Filter: Filter{Audience: domain.AudienceAdmin}})
	if err != nil || admin.Total != 0 {
		t.Errorf("admin listing = %+v, %v", admin, err)
	}
}
