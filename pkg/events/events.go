package events

import (
	"log/slog"
	"sync"
	"time"
)

// Type classifies a workflow event.
type Type string

const (
	TypeApprovalCreated   Type = "approval_created"
	TypeApprovalApproved  Type = "approval_approved"
	TypeApprovalRejected  Type = "approval_rejected"
	TypeApprovalEscalated Type = "approval_escalated"
	TypeApprovalExpired   Type = "approval_expired"
	TypeApprovalCancelled Type = "approval_cancelled"
)

// Event is one workflow notification. Delivery is fire-and-forget:
// consumers (email, chat, webhooks) live outside the workflow core and
// can never block or reverse a state transition.
type Event struct {
	Type      Type                   `json:"type"`
	TenantID  string                 `json:"tenant_id"`
	RequestID string                 `json:"request_id"`
	Mode      string                 `json:"mode,omitempty"`
	ActorID   string                 `json:"actor_id,omitempty"`
	Detail    map[string]interface{} `json:"detail,omitempty"`
	At        time.Time              `json:"at"`
}

// Publisher is the outbound side of the dispatch channel.
type Publisher interface {
	// Publish enqueues an event. It must never block and never fail a
	// caller's state transition; implementations drop on overflow.
	Publish(event Event)
}

// Consumer handles delivered events.
type Consumer func(event Event)

// Dispatcher fans events out to registered consumers from a buffered
// channel drained by a single background worker.
type Dispatcher struct {
	ch     chan Event
	logger *slog.Logger

	mu        sync.RWMutex
	consumers []Consumer

	wg        sync.WaitGroup
	done      chan struct{}
	dropped   int64
	published int64
	delivered int64
}

// NewDispatcher creates a dispatcher with the given buffer size
// (default 256) and starts its worker.
func NewDispatcher(buffer int) *Dispatcher {
	if buffer <= 0 {
		buffer = 256
	}
	d := &Dispatcher{
		ch:     make(chan Event, buffer),
		logger: slog.Default().With("component", "events.dispatcher"),
		done:   make(chan struct{}),
	}
	d.wg.Add(1)
	go d.worker()
	return d
}

// Subscribe registers a consumer for all subsequent events.
func (d *Dispatcher) Subscribe(consumer Consumer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.consumers = append(d.consumers, consumer)
}

// Publish enqueues the event without blocking. When the buffer is full
// the event is dropped with a warning; workflow state transitions are
// never held up by slow notification delivery.
func (d *Dispatcher) Publish(event Event) {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	select {
	case d.ch <- event:
		d.mu.Lock()
		d.published++
		d.mu.Unlock()
	default:
		d.mu.Lock()
		d.dropped++
		n := d.dropped
		d.mu.Unlock()
		d.logger.Warn("event buffer full, dropping notification",
			"type", event.Type,
			"request_id", event.RequestID,
			"dropped_total", n,
		)
	}
}

// Dropped returns the number of events dropped on overflow.
func (d *Dispatcher) Dropped() int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.dropped
}

// Pending returns the number of accepted events not yet delivered to
// all consumers.
func (d *Dispatcher) Pending() int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.published - d.delivered
}

// Close drains outstanding events and stops the worker.
func (d *Dispatcher) Close() {
	close(d.done)
	d.wg.Wait()
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case event := <-d.ch:
			d.deliver(event)
		case <-d.done:
			// Drain what is already queued, then exit.
			for {
				select {
				case event := <-d.ch:
					d.deliver(event)
				default:
					return
				}
			}
		}
	}
}

// deliver invokes every consumer, isolating panics so one broken
// consumer cannot take down delivery for the rest.
func (d *Dispatcher) deliver(event Event) {
	d.mu.RLock()
	consumers := d.consumers
	d.mu.RUnlock()

	for _, consumer := range consumers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					d.logger.Error("event consumer panicked",
						"type", event.Type,
						"panic", r,
					)
				}
			}()
			consumer(event)
		}()
	}

	d.mu.Lock()
	d.delivered++
	d.mu.Unlock()
}
