package service

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type EventType string

const (
	EventSocialConnected EventType = "social_connected"
	EventTaskUpdated     EventType = "task_updated"
	EventPointsAwarded   EventType = "points_awarded"
)

type Event struct {
	Type EventType              `json:"type"`
	Data map[string]interface{} `json:"data,omitempty"`
}

const subscriberBuffer = 16

// Hub fans events out to the live subscriptions of a user.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uuid.UUID]map[*Subscription]struct{}
	log    *zap.Logger
	closed bool
}

type Subscription struct {
	userID uuid.UUID
	events chan Event
	hub    *Hub
	once   sync.Once
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		subs: make(map[uuid.UUID]map[*Subscription]struct{}),
		log:  log,
	}
}

func (h *Hub) Subscribe(userID uuid.UUID) *Subscription {
	sub := &Subscription{
		userID: userID,
		events: make(chan Event, subscriberBuffer),
		hub:    h,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		sub.once.Do(func() { close(sub.events) })
		return sub
	}
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[*Subscription]struct{})
	}
	h.subs[userID][sub] = struct{}{}
	return sub
}

// Notify never blocks: a subscriber whose buffer is full misses the event.
func (h *Hub) Notify(userID uuid.UUID, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs[userID] {
		select {
		case sub.events <- event:
		default:
			h.log.Warn("dropping event for slow subscriber",
				zap.String("user_id", userID.String()),
				zap.String("event", string(event.Type)),
			)
		}
	}
}

func (h *Hub) Subscribers(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}

// Close ends every subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for _, subs := range h.subs {
		for sub := range subs {
			sub.once.Do(func() { close(sub.events) })
		}
	}
	h.subs = make(map[uuid.UUID]map[*Subscription]struct{})
}

func (s *Subscription) Events() <-chan Event {
	return s.events
}

func (s *Subscription) Close() {
	h := s.hub
	h.mu.Lock()
	defer h.mu.Unlock()

	if subs, ok := h.subs[s.userID]; ok {
		delete(subs, s)
		if len(subs) == 0 {
			delete(h.subs, s.userID)
		}
	}
	s.once.Do(func() { close(s.events) })
}
