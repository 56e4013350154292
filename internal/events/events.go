package events

import (
	"sync"
	"time"

	"github.com/hafsaghannaj/maternal/internal/model"
)

// Event represents a generic event structure
type Event struct {
	Type      string
	Timestamp time.Time
	Data      interface{}
}

// RoundCompletedEvent is published after every successful round commit
type RoundCompletedEvent struct {
	Round        int
	TrainLoss    float64
	TestAccuracy float64
	Epsilon      float64
}

// TrainingFinishedEvent is published when a train() call returns
type TrainingFinishedEvent struct {
	RoundsCompleted int
	ExitMessage     string
}

// HospitalStateChangeEvent represents the event structure for registry changes
type HospitalStateChangeEvent struct {
	HospitalsAdded   []*model.Hospital
	HospitalsRemoved []*model.Hospital
}

// EventBus represents the event bus that handles event subscription and dispatching
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[string][]chan<- Event
}

// NewEventBus creates a new instance of the event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[string][]chan<- Event),
	}
}

// Subscribe adds a new subscriber for a given event type
func (eb *EventBus) Subscribe(eventType string, subscriber chan<- Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.subscribers[eventType] = append(eb.subscribers[eventType], subscriber)
}

// Unsubscribe removes a subscriber from a given event type
func (eb *EventBus) Unsubscribe(eventType string, subscriber chan<- Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	subscribers := eb.subscribers[eventType]
	for i, s := range subscribers {
		if s == subscriber {
			eb.subscribers[eventType] = append(subscribers[:i], subscribers[i+1:]...)
			return
		}
	}
}

// Publish sends an event to all subscribers of a given event type
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	subscribers := make([]chan<- Event, len(eb.subscribers[event.Type]))
	copy(subscribers, eb.subscribers[event.Type])
	eb.mu.RUnlock()

	for _, subscriber := range subscribers {
		subscriber <- event
	}
}
