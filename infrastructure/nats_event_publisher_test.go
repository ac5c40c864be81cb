package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"mneebet/events"
	"mneebet/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockMessagePublisher struct {
	mock.Mock
	mu       sync.Mutex
	subjects []string
	payloads [][]byte
}

func (m *mockMessagePublisher) Publish(ctx context.Context, subject string, data []byte) error {
	m.mu.Lock()
	m.subjects = append(m.subjects, subject)
	m.payloads = append(m.payloads, data)
	m.mu.Unlock()
	args := m.Called(subject)
	return args.Error(0)
}

func (m *mockMessagePublisher) published() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subjects)
}

func TestNATSEventPublisher_Envelope(t *testing.T) {
	publisher := &mockMessagePublisher{}
	publisher.On("Publish", "bets.resolved").Return(nil)

	p := NewNATSEventPublisher(publisher, NewEventSubjectMapper(), nil)
	err := p.Publish(context.Background(), events.BetResolvedEvent{
		BetID:  7,
		Judge:  "0x00000000000000000000000000000000000ca201",
		Winner: models.WinnerDraw,
		Pot:    decimal.NewFromInt(200),
	})
	require.NoError(t, err)
	publisher.AssertExpectations(t)

	var envelope EventEnvelope
	require.NoError(t, json.Unmarshal(publisher.payloads[0], &envelope))
	_, err = uuid.Parse(envelope.EventID)
	assert.NoError(t, err)
	assert.Equal(t, "bet_resolved", envelope.EventType)
	assert.Equal(t, "mneebet", envelope.SourceService)
	assert.WithinDuration(t, time.Now(), envelope.Timestamp, time.Minute)

	var payload events.BetResolvedEvent
	require.NoError(t, json.Unmarshal(envelope.Payload, &payload))
	assert.Equal(t, int64(7), payload.BetID)
	assert.Equal(t, models.WinnerDraw, payload.Winner)
	assert.True(t, decimal.NewFromInt(200).Equal(payload.Pot))
}

func TestNATSEventPublisher_PublishError(t *testing.T) {
	publisher := &mockMessagePublisher{}
	publisher.On("Publish", "bets.created").Return(errors.New("no responders"))

	p := NewNATSEventPublisher(publisher, NewEventSubjectMapper(), nil)
	err := p.Publish(context.Background(), events.BetCreatedEvent{BetID: 1})
	assert.ErrorContains(t, err, "no responders")
}

func TestNATSEventPublisher_ForwardsCommittedEvents(t *testing.T) {
	publisher := &mockMessagePublisher{}
	publisher.On("Publish", mock.Anything).Return(nil)

	bus := events.NewBus()
	NewNATSEventPublisher(publisher, NewEventSubjectMapper(), nil).Subscribe(bus)

	tx := events.NewTransactionalBus(bus)
	tx.Publish(events.BetAcceptedEvent{BetID: 3})
	tx.Publish(events.BalanceChangeEvent{TransactionType: models.TransactionTypeStakeLock})
	assert.Equal(t, 0, publisher.published())

	tx.Flush(context.Background())
	assert.Eventually(t, func() bool { return publisher.published() == 2 }, time.Second, 10*time.Millisecond)

	publisher.mu.Lock()
	defer publisher.mu.Unlock()
	assert.ElementsMatch(t, []string{"bets.accepted", "tokens.balance_changed"}, publisher.subjects)
}
