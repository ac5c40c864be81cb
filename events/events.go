package events

import (
	"context"
	"sync"

	"mneebet/models"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeBalanceChange      EventType = "balance_change"
	EventTypeUsernameRegistered EventType = "username_registered"
	EventTypeBetCreated         EventType = "bet_created"
	EventTypeBetAccepted        EventType = "bet_accepted"
	EventTypeBetCancelled       EventType = "bet_cancelled"
	EventTypeBetResolved        EventType = "bet_resolved"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// BalanceChangeEvent represents a token balance change that occurred
type BalanceChangeEvent struct {
	Account         string                 `json:"account"`
	OldBalance      decimal.Decimal        `json:"old_balance"`
	NewBalance      decimal.Decimal        `json:"new_balance"`
	ChangeAmount    decimal.Decimal        `json:"change_amount"`
	TransactionType models.TransactionType `json:"transaction_type"`
	BetID           *int64                 `json:"bet_id,omitempty"`
}

func (e BalanceChangeEvent) Type() EventType {
	return EventTypeBalanceChange
}

// UsernameRegisteredEvent represents a new address-username binding
type UsernameRegisteredEvent struct {
	Account  string `json:"account"`
	Username string `json:"username"`
}

func (e UsernameRegisteredEvent) Type() EventType {
	return EventTypeUsernameRegistered
}

// BetCreatedEvent represents a newly opened bet
type BetCreatedEvent struct {
	BetID    int64           `json:"bet_id"`
	Creator  string          `json:"creator"`
	Opponent string          `json:"opponent,omitempty"`
	Judge    string          `json:"judge"`
	Amount   decimal.Decimal `json:"amount"`
	Deadline int64           `json:"deadline"`
}

func (e BetCreatedEvent) Type() EventType {
	return EventTypeBetCreated
}

// BetAcceptedEvent represents an opponent locking their stake
type BetAcceptedEvent struct {
	BetID    int64  `json:"bet_id"`
	Opponent string `json:"opponent"`
}

func (e BetAcceptedEvent) Type() EventType {
	return EventTypeBetAccepted
}

// BetCancelledEvent represents a creator withdrawing an open bet
type BetCancelledEvent struct {
	BetID    int64           `json:"bet_id"`
	Creator  string          `json:"creator"`
	Refunded decimal.Decimal `json:"refunded"`
}

func (e BetCancelledEvent) Type() EventType {
	return EventTypeBetCancelled
}

// BetResolvedEvent represents a judge's settlement of a bet
type BetResolvedEvent struct {
	BetID  int64           `json:"bet_id"`
	Judge  string          `json:"judge"`
	Winner models.Winner   `json:"winner"`
	Pot    decimal.Decimal `json:"pot"`
}

func (e BetResolvedEvent) Type() EventType {
	return EventTypeBetResolved
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type on main event bus")
}

// SubscribeAll adds a handler for every known event type
func (b *Bus) SubscribeAll(handler Handler) {
	for _, eventType := range AllEventTypes() {
		b.Subscribe(eventType, handler)
	}
}

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"handlerCount": len(handlers),
	}).Debug("Emitting event to handlers on main event bus")

	// Call handlers asynchronously to avoid blocking
	for i, handler := range handlers {
		go func(h Handler, handlerIndex int) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// AllEventTypes returns every event type the engine emits
func AllEventTypes() []EventType {
	return []EventType{
		EventTypeBalanceChange,
		EventTypeUsernameRegistered,
		EventTypeBetCreated,
		EventTypeBetAccepted,
		EventTypeBetCancelled,
		EventTypeBetResolved,
	}
}

// TransactionalBus holds events raised inside a unit of work and forwards
// them to the real bus only once the transaction commits.
type TransactionalBus struct {
	real    *Bus
	pending []Event // stashed until Flush
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	log.WithFields(log.Fields{
		"eventType":    e.Type(),
		"pendingCount": len(b.pending),
	}).Debug("Adding event to transactional bus pending queue")
	b.pending = append(b.pending, e)
}

// Pending returns the number of queued events
func (b *TransactionalBus) Pending() int {
	return len(b.pending)
}

// called after successful commit
func (b *TransactionalBus) Flush(ctx context.Context) error {
	log.WithFields(log.Fields{
		"pendingEventCount": len(b.pending),
	}).Debug("Flushing pending events from transactional bus to main event bus")

	// Events outlive the request that produced them
	eventCtx := context.WithoutCancel(ctx)

	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
	return nil
}

// called after rollback or to clear state.
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
