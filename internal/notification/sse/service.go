// Package sse pushes notifications to connected users over Server-Sent Events.
package sse

import (
	"encoding/json"
	"sync"

	"admissions_crm/internal/leads/domain"
	"admissions_crm/platform/httpkit"
	"admissions_crm/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type EventType string

const (
	EventNotification EventType = "notification"

	clientBuffer = 32
)

type Event struct {
	Type    EventType `json:"type"`
	Message string    `json:"message,omitempty"`
	Data    any       `json:"data,omitempty"`
}

type client struct {
	userID uuid.UUID
	events chan Event
}

// Service tracks open streams per user.
type Service struct {
	mu      sync.RWMutex
	clients map[uuid.UUID][]*client
	log     *logger.Logger
}

func New(log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		clients: make(map[uuid.UUID][]*client),
		log:     log,
	}
}

func (s *Service) addClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c.userID] = append(s.clients[c.userID], c)
}

func (s *Service) removeClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clients := s.clients[c.userID]
	for i, cl := range clients {
		if cl == c {
			s.clients[c.userID] = append(clients[:i], clients[i+1:]...)
			close(c.events)
			break
		}
	}
	if len(s.clients[c.userID]) == 0 {
		delete(s.clients, c.userID)
	}
}

// Publish sends event to every open stream of userID. A full buffer drops the event.
func (s *Service) Publish(userID uuid.UUID, event Event) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	delivered := 0
	for _, c := range s.clients[userID] {
		select {
		case c.events <- event:
			delivered++
		default:
			s.log.Warn("sse buffer full, dropping event", "userId", userID, "type", event.Type)
		}
	}
	return delivered
}

// PushNotification implements inapp.Pusher.
func (s *Service) PushNotification(n domain.Notification) {
	s.Publish(n.RecipientUserID, Event{
		Type:    EventNotification,
		Message: n.Message,
		Data:    n,
	})
}

// Connections returns the number of open streams for userID.
func (s *Service) Connections(userID uuid.UUID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients[userID])
}

// Handler streams events for the authenticated user until the request ends.
func (s *Service) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := httpkit.MustGetIdentity(c)
		if identity == nil {
			return
		}
		userID := identity.UserID()

		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")
		c.Writer.Header().Set("X-Accel-Buffering", "no")

		cl := &client{userID: userID, events: make(chan Event, clientBuffer)}
		s.addClient(cl)
		defer s.removeClient(cl)

		c.SSEvent("connected", gin.H{"userId": userID})
		c.Writer.Flush()

		done := c.Request.Context().Done()
		for {
			select {
			case <-done:
				return
			case event, ok := <-cl.events:
				if !ok {
					return
				}
				data, err := json.Marshal(event)
				if err != nil {
					s.log.Error("encode sse event", "error", err)
					continue
				}
				c.SSEvent(string(event.Type), string(data))
				c.Writer.Flush()
			}
		}
	}
}

// Close drops every open stream.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, clients := range s.clients {
		for _, c := range clients {
			close(c.events)
		}
	}
	s.clients = make(map[uuid.UUID][]*client)
}
