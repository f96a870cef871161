// Package events publishes crawl task completion events.
package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/lien-Gu/bookrank/internal/model"
)

// Publisher pushes task completion events to a message bus.
type Publisher interface {
	Publish(ctx context.Context, event model.TaskEvent) (string, error)
	Close() error
}

// NoOp discards events. Used when no bus is configured.
type NoOp struct{}

// Publish drops the event.
func (NoOp) Publish(context.Context, model.TaskEvent) (string, error) {
	return "", nil
}

// Close is a no-op.
func (NoOp) Close() error { return nil }

// Memory stores published events for inspection in tests.
type Memory struct {
	mu     sync.RWMutex
	events []model.TaskEvent
}

// NewMemory returns a memory Publisher.
func NewMemory() *Memory {
	return &Memory{}
}

// Publish records the event and returns a pseudo ID.
func (m *Memory) Publish(_ context.Context, event model.TaskEvent) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return fmt.Sprintf("memory-%d", len(m.events)), nil
}

// Events returns the recorded events.
func (m *Memory) Events() []model.TaskEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.TaskEvent, len(m.events))
	copy(out, m.events)
	return out
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }
