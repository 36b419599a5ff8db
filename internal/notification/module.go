// Package notification turns lead domain events into in-app notifications and
// counsellor emails. Domain modules publish events and never call a notifier.
package notification

import (
	"context"
	"fmt"
	"strings"

	"admissions_crm/internal/events"
	apphttp "admissions_crm/internal/http"
	"admissions_crm/internal/leads/domain"
	"admissions_crm/internal/notification/email"
	notifhandler "admissions_crm/internal/notification/handler"
	"admissions_crm/internal/notification/inapp"
	"admissions_crm/internal/notification/sse"
	"admissions_crm/platform/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	inApp   *inapp.Service
	handler *notifhandler.HTTPHandler
	sse     *sse.Service
	sender  email.Sender
	log     *logger.Logger
}

func New(pool *pgxpool.Pool, sender email.Sender, log *logger.Logger) *Module {
	return newModule(inapp.NewRepository(pool), sender, log)
}

func newModule(store inapp.Store, sender email.Sender, log *logger.Logger) *Module {
	if log == nil {
		log = logger.Nop()
	}
	if sender == nil {
		sender = email.NoopSender{}
	}

	stream := sse.New(log)
	inApp := inapp.NewService(store, log)
	inApp.SetPusher(stream)

	return &Module{
		inApp:   inApp,
		handler: notifhandler.NewHTTPHandler(inApp),
		sse:     stream,
		sender:  sender,
		log:     log,
	}
}

func (m *Module) Name() string { return "notification" }

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/notifications")
	group.GET("/stream", m.sse.Handler())
	m.handler.RegisterRoutes(group)
}

// InAppService exposes the sink for callers outside the event flow.
func (m *Module) InAppService() *inapp.Service { return m.inApp }

// Close drops open notification streams.
func (m *Module) Close() { m.sse.Close() }

// RegisterHandlers subscribes the module to lead events on bus.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.LeadAssigned{}.EventName(), m)
	bus.Subscribe(events.LeadTransferred{}.EventName(), m)
	bus.Subscribe(events.LeadRouted{}.EventName(), m)
}

// Handle implements events.Handler.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.LeadAssigned:
		return m.handleLeadAssigned(ctx, e)
	case events.LeadTransferred:
		return m.handleLeadTransferred(ctx, e)
	case events.LeadRouted:
		return m.handleLeadRouted(ctx, e)
	default:
		m.log.Debug("notification: unhandled event", "event", event.EventName())
		return nil
	}
}

func (m *Module) handleLeadAssigned(ctx context.Context, e events.LeadAssigned) error {
	message := e.Message
	if strings.TrimSpace(message) == "" {
		message = fmt.Sprintf("New lead assigned: %s - %s", e.StudentName, e.CourseInterested)
	}
	m.notify(ctx, domain.AudienceCounsellor, e.CounsellorUserID, e.EventName(), message)

	if e.CounsellorEmail == "" {
		return nil
	}
	err := m.sender.SendLeadAssignedEmail(ctx, e.CounsellorEmail, email.LeadAssignedData{
		CounsellorName:   e.CounsellorName,
		StudentName:      e.StudentName,
		CourseInterested: e.CourseInterested,
		Method:           strings.ReplaceAll(e.Method, "_", " "),
	})
	if err != nil {
		m.log.Error("failed to send lead assigned email", "error", err, "leadId", e.LeadID, "counsellorId", e.CounsellorID)
	}
	return nil
}

func (m *Module) handleLeadTransferred(ctx context.Context, e events.LeadTransferred) error {
	message := fmt.Sprintf("Lead transferred to you: %s", e.StudentName)
	if reason := strings.TrimSpace(e.Reason); reason != "" {
		message += " - " + reason
	}
	m.notify(ctx, domain.AudienceCounsellor, e.ToCounsellorUserID, e.EventName(), message)

	if e.ToCounsellorEmail == "" {
		return nil
	}
	err := m.sender.SendLeadTransferredEmail(ctx, e.ToCounsellorEmail, email.LeadTransferredData{
		StudentName: e.StudentName,
		Reason:      e.Reason,
	})
	if err != nil {
		m.log.Error("failed to send lead transferred email", "error", err, "leadId", e.LeadID, "counsellorId", e.ToCounsellorID)
	}
	return nil
}

// handleLeadRouted tells the administrator of the pre-routing counsellor.
// Leads that had no counsellor produce no notification.
func (m *Module) handleLeadRouted(ctx context.Context, e events.LeadRouted) error {
	if e.AdminUserID == nil || strings.TrimSpace(e.AdminMessage) == "" {
		return nil
	}
	m.notify(ctx, domain.AudienceAdmin, *e.AdminUserID, e.EventName(), e.AdminMessage)
	return nil
}

// notify never fails the event: the sink already logs persistence errors.
func (m *Module) notify(ctx context.Context, audience domain.Audience, recipient uuid.UUID, eventName, message string) {
	n := domain.Notification{Audience: audience, RecipientUserID: recipient, Message: message}
	if err := m.inApp.Notify(ctx, n); err != nil {
		m.log.Warn("notification skipped", "event", eventName, "error", err)
	}
}
