// Package events re-exports the platform event bus so bounded contexts
// import one package for both the bus and the domain events.
package events

import (
	platformevents "hirelocal_backend/platform/events"
	"hirelocal_backend/platform/logger"
)

// InMemoryBus is a type alias to the platform InMemoryBus.
type InMemoryBus = platformevents.InMemoryBus

// NewInMemoryBus creates a new in-memory event bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return platformevents.NewInMemoryBus(log)
}
