// Package events defines the pipeline domain events and re-exports the
// platform bus so modules depend on a single events package.
package events

import (
	platformevents "marketplace_backend/platform/events"
	"marketplace_backend/platform/logger"
)

// InMemoryBus is the process-local bus used by the API binary.
type InMemoryBus = platformevents.InMemoryBus

// NewInMemoryBus creates a bus whose handler failures are logged to log.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return platformevents.NewInMemoryBus(log)
}
