package infrastructure

import (
	"context"

	"mneebet/events"

	log "github.com/sirupsen/logrus"
)

// SubscribeEventLogger writes one structured line per committed event
func SubscribeEventLogger(bus *events.Bus) {
	bus.SubscribeAll(func(ctx context.Context, event events.Event) {
		entry := log.WithField("eventType", event.Type())

		switch e := event.(type) {
		case events.BetCreatedEvent:
			entry.WithFields(log.Fields{
				"betId":   e.BetID,
				"creator": e.Creator,
				"judge":   e.Judge,
				"amount":  e.Amount.String(),
			}).Info("Bet created")
		case events.BetAcceptedEvent:
			entry.WithFields(log.Fields{
				"betId":    e.BetID,
				"opponent": e.Opponent,
			}).Info("Bet accepted")
		case events.BetCancelledEvent:
			entry.WithFields(log.Fields{
				"betId":    e.BetID,
				"refunded": e.Refunded.String(),
			}).Info("Bet cancelled")
		case events.BetResolvedEvent:
			entry.WithFields(log.Fields{
				"betId":  e.BetID,
				"winner": e.Winner,
				"pot":    e.Pot.String(),
			}).Info("Bet resolved")
		case events.UsernameRegisteredEvent:
			entry.WithFields(log.Fields{
				"account":  e.Account,
				"username": e.Username,
			}).Info("Username registered")
		case events.BalanceChangeEvent:
			entry.WithFields(log.Fields{
				"account": e.Account,
				"type":    e.TransactionType,
				"change":  e.ChangeAmount.String(),
			}).Debug("Balance changed")
		}
	})
}
