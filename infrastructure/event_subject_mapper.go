package infrastructure

import (
	"fmt"

	"mneebet/events"
)

// StreamName is the JetStream stream holding every ledger event
const StreamName = "bet_ledger_events"

var eventSubjects = map[events.EventType]string{
	events.EventTypeBetCreated:         "bets.created",
	events.EventTypeBetAccepted:        "bets.accepted",
	events.EventTypeBetCancelled:       "bets.cancelled",
	events.EventTypeBetResolved:        "bets.resolved",
	events.EventTypeUsernameRegistered: "usernames.registered",
	events.EventTypeBalanceChange:      "tokens.balance_changed",
}

// EventSubjectMapper handles mapping between ledger events and NATS subjects
type EventSubjectMapper struct{}

// NewEventSubjectMapper creates a new event subject mapper
func NewEventSubjectMapper() *EventSubjectMapper {
	return &EventSubjectMapper{}
}

// MapEventToSubject converts an event to its NATS subject
func (m *EventSubjectMapper) MapEventToSubject(event events.Event) string {
	if subject, ok := eventSubjects[event.Type()]; ok {
		return subject
	}
	return fmt.Sprintf("unknown.%s", event.Type())
}

// MapSubjectToEventType converts a NATS subject back to an event type
func (m *EventSubjectMapper) MapSubjectToEventType(subject string) events.EventType {
	for eventType, s := range eventSubjects {
		if s == subject {
			return eventType
		}
	}
	return events.EventType(subject)
}

// GetAllSubjects returns all subjects this service publishes to, in a stable order
func (m *EventSubjectMapper) GetAllSubjects() []string {
	subjects := make([]string, 0, len(eventSubjects))
	for _, eventType := range events.AllEventTypes() {
		subjects = append(subjects, eventSubjects[eventType])
	}
	return subjects
}
