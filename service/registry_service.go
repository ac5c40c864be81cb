package service

import (
	"context"
	"fmt"

	"mneebet/events"
	"mneebet/models"

	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"
)

type registryService struct {
	uowFactory UnitOfWorkFactory
	clock      Clock
}

// NewRegistryService creates a new username registry service
func NewRegistryService(uowFactory UnitOfWorkFactory, clock Clock) RegistryService {
	if clock == nil {
		clock = SystemClock{}
	}
	return &registryService{
		uowFactory: uowFactory,
		clock:      clock,
	}
}

// Register permanently binds a username to an account. An account that
// already has a name gets ErrAlreadyRegistered whatever it asks for.
func (s *registryService) Register(ctx context.Context, account common.Address, username string) (*models.Username, error) {
	if models.IsZeroAccount(account) {
		return nil, fmt.Errorf("%w: zero address cannot register", models.ErrInvalidAddress)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	existing, err := uow.UsernameRepository().GetByAccount(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing username: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s is %q", ErrAlreadyRegistered, account.Hex(), existing.Username)
	}

	if !models.IsValidUsername(username) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFormat, username)
	}

	owner, err := uow.UsernameRepository().GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username availability: %w", err)
	}
	if owner != nil {
		return nil, fmt.Errorf("%w: %q", ErrUsernameTaken, username)
	}

	binding := &models.Username{
		Account:      account,
		Username:     username,
		RegisteredAt: s.clock.Now(),
	}
	// Unique constraints still catch a concurrent registration
	if err := uow.UsernameRepository().Create(ctx, binding); err != nil {
		return nil, fmt.Errorf("failed to register username: %w", err)
	}

	uow.EventBus().Publish(events.UsernameRegisteredEvent{
		Account:  account.Hex(),
		Username: username,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"account":  account.Hex(),
		"username": username,
	}).Info("Username registered")

	return binding, nil
}

// LookupByAccount returns the account's username, if any
func (s *registryService) LookupByAccount(ctx context.Context, account common.Address) (string, bool, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return "", false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	binding, err := uow.UsernameRepository().GetByAccount(ctx, account)
	if err != nil {
		return "", false, fmt.Errorf("failed to get username: %w", err)
	}
	if binding == nil {
		return "", false, nil
	}
	return binding.Username, true, nil
}

// LookupByUsername returns the account owning a username, if any
func (s *registryService) LookupByUsername(ctx context.Context, username string) (common.Address, bool, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return common.Address{}, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	binding, err := uow.UsernameRepository().GetByUsername(ctx, username)
	if err != nil {
		return common.Address{}, false, fmt.Errorf("failed to get username owner: %w", err)
	}
	if binding == nil {
		return common.Address{}, false, nil
	}
	return binding.Account, true, nil
}
