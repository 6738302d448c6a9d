// Package hub fans committed feed events out to live subscribers.
package hub

import (
	"sync"

	"github.com/amgad21/BlipVerse/internal/models"
)

// subscriptionBuffer is how many undelivered events a subscriber may lag
// behind before it is dropped.
const subscriptionBuffer = 32

// Subscription is one live client's ordered event queue. It is valid from
// Subscribe until Close (or until the hub drops it for falling behind), and
// its channel is closed exactly once.
type Subscription struct {
	ch   chan models.Event
	hub  *Hub
	once sync.Once
}

// Events returns the subscriber's delivery channel. The channel is closed
// when the subscription ends; no replay follows a reconnect.
func (s *Subscription) Events() <-chan models.Event {
	return s.ch
}

// Close ends the subscription. Safe to call more than once and safe to call
// concurrently with the hub dropping the subscriber.
func (s *Subscription) Close() {
	s.hub.Unsubscribe(s)
}

func (s *Subscription) closeChan() {
	s.once.Do(func() { close(s.ch) })
}

// Hub owns the set of live subscriptions. Publish order is a single total
// order shared by every subscriber; delivery to one subscriber never blocks
// delivery to the rest.
type Hub struct {
	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

// New creates an empty hub.
func New() *Hub {
	return &Hub{subs: make(map[*Subscription]struct{})}
}

// Subscribe registers a new live connection and returns its event queue.
// Only events published after this call are delivered.
func (h *Hub) Subscribe() *Subscription {
	s := &Subscription{
		ch:  make(chan models.Event, subscriptionBuffer),
		hub: h,
	}
	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
	return s
}

// Unsubscribe removes a subscription and closes its channel.
func (h *Hub) Unsubscribe(s *Subscription) {
	h.mu.Lock()
	delete(h.subs, s)
	h.mu.Unlock()
	s.closeChan()
}

// Publish enqueues ev to every current subscriber without blocking. A
// subscriber whose queue is full is dropped rather than allowed to stall
// the hub; its channel is closed so its transport goroutine exits.
func (h *Hub) Publish(ev models.Event) {
	h.mu.Lock()
	var dropped []*Subscription
	for s := range h.subs {
		select {
		case s.ch <- ev:
		default:
			dropped = append(dropped, s)
		}
	}
	for _, s := range dropped {
		delete(h.subs, s)
	}
	h.mu.Unlock()

	for _, s := range dropped {
		s.closeChan()
	}
}

// Count returns the number of live subscriptions.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
