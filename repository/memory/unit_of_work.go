package memory

import (
	"context"
	"fmt"

	"mneebet/events"
	"mneebet/service"
)

type unitOfWorkFactory struct {
	store    *Store
	eventBus *events.Bus
}

// NewUnitOfWorkFactory creates a UnitOfWork factory over an in-process store
func NewUnitOfWorkFactory(store *Store, eventBus *events.Bus) service.UnitOfWorkFactory {
	return &unitOfWorkFactory{
		store:    store,
		eventBus: eventBus,
	}
}

func (f *unitOfWorkFactory) Create() service.UnitOfWork {
	return &unitOfWork{
		store:            f.store,
		transactionalBus: events.NewTransactionalBus(f.eventBus),
	}
}

// unitOfWork implements service.UnitOfWork with an exclusive hold on the store
type unitOfWork struct {
	store            *Store
	ctx              context.Context
	active           bool
	undo             []func()
	transactionalBus *events.TransactionalBus
}

// Begin waits for exclusive access to the store or for ctx to end
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.active {
		return fmt.Errorf("transaction already started")
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	select {
	case u.store.sem <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("failed to begin transaction: %w", ctx.Err())
	}

	u.ctx = ctx
	u.active = true
	u.undo = nil
	return nil
}

// Commit keeps all changes and flushes queued events
func (u *unitOfWork) Commit() error {
	if !u.active {
		return fmt.Errorf("no transaction to commit")
	}

	u.undo = nil
	u.release()

	u.transactionalBus.Flush(u.ctx)
	return nil
}

// Rollback reverts every change made since Begin and discards queued events
func (u *unitOfWork) Rollback() error {
	if !u.active {
		return nil // Nothing to rollback
	}

	for i := len(u.undo) - 1; i >= 0; i-- {
		u.undo[i]()
	}
	u.undo = nil
	u.release()

	u.transactionalBus.Discard()
	return nil
}

func (u *unitOfWork) release() {
	u.active = false
	<-u.store.sem
}

// record registers how to revert a change just made
func (u *unitOfWork) record(revert func()) {
	u.undo = append(u.undo, revert)
}

func (u *unitOfWork) mustBeActive() {
	if !u.active {
		panic("unit of work not started - call Begin() first")
	}
}

func (u *unitOfWork) UsernameRepository() service.UsernameRepository {
	u.mustBeActive()
	return &usernameRepository{uow: u}
}

func (u *unitOfWork) TokenAccountRepository() service.TokenAccountRepository {
	u.mustBeActive()
	return &tokenAccountRepository{uow: u}
}

func (u *unitOfWork) EscrowRepository() service.EscrowRepository {
	u.mustBeActive()
	return &escrowRepository{uow: u}
}

func (u *unitOfWork) BetRepository() service.BetRepository {
	u.mustBeActive()
	return &betRepository{uow: u}
}

func (u *unitOfWork) BalanceHistoryRepository() service.BalanceHistoryRepository {
	u.mustBeActive()
	return &balanceHistoryRepository{uow: u}
}

// EventBus returns the transactional event bus for this unit of work
func (u *unitOfWork) EventBus() service.EventPublisher {
	return u.transactionalBus
}
