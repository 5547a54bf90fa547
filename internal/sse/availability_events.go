package sse

import (
	"context"
	"sync"

	"ms-booking/internal/models"
)

const clientBuffer = 10

// AvailabilityEmitter fans availability snapshots out to SSE clients
// subscribed to a single event.
type AvailabilityEmitter struct {
	// key: eventID, value: client channels
	clients map[string][]chan models.Availability
	mu      sync.RWMutex
}

func NewAvailabilityEmitter() *AvailabilityEmitter {
	return &AvailabilityEmitter{
		clients: make(map[string][]chan models.Availability),
	}
}

// Subscribe registers a client for eventID. The returned channel is closed
// once ctx is done.
func (e *AvailabilityEmitter) Subscribe(ctx context.Context, eventID string) <-chan models.Availability {
	clientChan := make(chan models.Availability, clientBuffer)

	e.mu.Lock()
	e.clients[eventID] = append(e.clients[eventID], clientChan)
	e.mu.Unlock()

	go func() {
		<-ctx.Done()
		e.remove(eventID, clientChan)
	}()

	return clientChan
}

// Broadcast delivers a snapshot to every subscriber of its event. Slow
// clients miss the update rather than stall the projector.
func (e *AvailabilityEmitter) Broadcast(availability models.Availability) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, clientChan := range e.clients[availability.EventID] {
		select {
		case clientChan <- availability:
		default:
		}
	}
}

func (e *AvailabilityEmitter) remove(eventID string, clientChan chan models.Availability) {
	e.mu.Lock()
	defer e.mu.Unlock()

	clients := e.clients[eventID]
	for i, ch := range clients {
		if ch == clientChan {
			e.clients[eventID] = append(clients[:i], clients[i+1:]...)
			close(clientChan)
			break
		}
	}

	if len(e.clients[eventID]) == 0 {
		delete(e.clients, eventID)
	}
}

// ClientCount returns the number of clients currently subscribed to an event
func (e *AvailabilityEmitter) ClientCount(eventID string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.clients[eventID])
}
