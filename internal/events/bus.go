// Package events re-exports the platform event bus so that domain modules
// can import bus and events from one place.
package events

import (
	platformevents "admissions_crm/platform/events"
	"admissions_crm/platform/logger"
)

type InMemoryBus = platformevents.InMemoryBus

func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return platformevents.NewInMemoryBus(log)
}
