package notification

import (
	"context"
	"errors"
	"sync"
	"testing"

	"admissions_crm/internal/events"
	"admissions_crm/internal/leads/domain"
	"admissions_crm/internal/notification/email"
	"admissions_crm/internal/notification/inapp"

	"github.com/google/uuid"
)

type memoryStore struct {
	mu    sync.Mutex
	items []domain.Notification
}

func (m *memoryStore) Create(_ context.Context, audience domain.Audience, recipient uuid.UUID, message string) (domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := domain.Notification{ID: uuid.New(), Audience: audience, RecipientUserID: recipient, Message: message}
	m.items = append(m.items, n)
	return n, nil
}

func (m *memoryStore) List(context.Context, uuid.UUID, inapp.Filter, int, int) ([]domain.Notification, int, error) {
	return m.items, len(m.items), nil
}
func (m *memoryStore) CountUnread(context.Context, uuid.UUID) (int, error)  { return 0, nil }
func (m *memoryStore) MarkRead(context.Context, uuid.UUID, uuid.UUID) error { return nil }
func (m *memoryStore) MarkAllRead(context.Context, uuid.UUID) error         { return nil }
func (m *memoryStore) Delete(context.Context, uuid.UUID, uuid.UUID) error   { return nil }

type recordingSender struct {
	assigned    []email.LeadAssignedData
	transferred []email.LeadTransferredData
	to          []string
	err         error
}

func (s *recordingSender) SendLeadAssignedEmail(_ context.Context, to string, data email.LeadAssignedData) error {
	s.to = append(s.to, to)
	s.assigned = append(s.assigned, data)
	return s.err
}

func (s *recordingSender) SendLeadTransferredEmail(_ context.Context, to string, data email.LeadTransferredData) error {
	s.to = append(s.to, to)
	s.transferred = append(s.transferred, data)
	return s.err
}

func TestLeadAssignedNotifiesAndEmails(t *testing.T) {
	store := &memoryStore{}
	sender := &recordingSender{}
	m := newModule(store, sender, nil)
	user := uuid.New()

	err := m.Handle(context.Background(), events.LeadAssigned{
		BaseEvent:        events.NewBaseEvent(),
		LeadID:           uuid.New(),
		CounsellorID:     uuid.New(),
		CounsellorUserID: user,
		CounsellorEmail:  "meera@example.com",
		CounsellorName:   "Meera Nair",
		StudentName:      "Asha Rao",
		CourseInterested: "MBA",
		Method:           "workload_balanced",
		Message:          "New lead assigned: Asha Rao - MBA",
	})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	if len(store.items) != 1 {
		t.Fatalf("stored %d notifications, want 1", len(store.items))
	}
	got := store.items[0]
	if got.RecipientUserID != user || got.Audience != domain.AudienceCounsellor || got.Message != "New lead assigned: Asha Rao - MBA" {
		t.Errorf("notification = %+v", got)
	}
	if len(sender.assigned) != 1 || sender.to[0] != "meera@example.com" || sender.assigned[0].Method != "workload balanced" {
		t.Errorf("emails = %+v to %v", sender.assigned, sender.to)
	}
}

func TestLeadAssignedEmailFailureIsSwallowed(t *testing.T) {
	store := &memoryStore{}
	m := newModule(store, &recordingSender{err: errors.New("smtp down")}, nil)

	err := m.Handle(context.Background(), events.LeadAssigned{
		CounsellorUserID: uuid.New(),
		CounsellorEmail:  "meera@example.com",
		StudentName:      "Asha Rao",
		CourseInterested: "MBA",
	})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if len(store.items) != 1 || store.items[0].Message != "New lead assigned: Asha Rao - MBA" {
		t.Errorf("notification = %+v", store.items)
	}
}

func TestLeadTransferredMessage(t *testing.T) {
	tests := []struct {
		reason string
		want   string
	}{
		{"workload rebalance", "Lead transferred to you: Ravi Kumar - workload rebalance"},
		{"  ", "Lead transferred to you: Ravi Kumar"},
	}
	for _, tt := range tests {
		store := &memoryStore{}
		sender := &recordingSender{}
		m := newModule(store, sender, nil)

		_ = m.Handle(context.Background(), events.LeadTransferred{
			ToCounsellorUserID: uuid.New(),
			StudentName:        "Ravi Kumar",
			Reason:             tt.reason,
		})
		if len(store.items) != 1 || store.items[0].Message != tt.want {
			t.Errorf("reason %q: notification = %+v, want %q", tt.reason, store.items, tt.want)
		}
		if len(sender.transferred) != 0 {
			t.Errorf("sent %d emails without an address", len(sender.transferred))
		}
	}
}

func TestLeadRoutedNotifiesAdmin(t *testing.T) {
	admin := uuid.New()
	store := &memoryStore{}
	m := newModule(store, nil, nil)

	_ = m.Handle(context.Background(), events.LeadRouted{
		Route:        string(domain.RouteGraduate),
		AdminUserID:  &admin,
		AdminMessage: "Graduate student Asha Rao routed to graduate counselor",
	})
	_ = m.Handle(context.Background(), events.LeadRouted{Route: string(domain.RouteSenior), AdminMessage: "no admin"})

	if len(store.items) != 1 {
		t.Fatalf("stored %d notifications, want 1", len(store.items))
	}
	if store.items[0].Audience != domain.AudienceAdmin || store.items[0].RecipientUserID != admin {
		t.Errorf("notification = %+v", store.items[0])
	}
}

func TestRegisterHandlersOnBus(t *testing.T) {
	bus := events.NewInMemoryBus(nil)
	store := &memoryStore{}
	m := newModule(store, nil, nil)
	m.RegisterHandlers(bus)

	err := bus.PublishSync(context.Background(), events.LeadAssigned{
		BaseEvent:        events.NewBaseEvent(),
		CounsellorUserID: uuid.New(),
		Message:          "New student assigned: Asha Rao - Interested in MBA",
	})
	if err != nil {
		t.Fatalf("PublishSync() error = %v", err)
	}
	if len(store.items) != 1 {
		t.Errorf("stored %d notifications, want 1", len(store.items))
	}
}
