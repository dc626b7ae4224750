package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/MrEthical07/goLedger/internal/audit"
	"github.com/rs/zerolog"
)

const (
	minAccountNumber = 10000
	maxAccountNumber = 99999
	numberAttempts   = 16
)

// Service implements the account operations on top of a Store.
type Service struct {
	store          Store
	events         Events
	now            func() time.Time
	numbers        func() int64
	sink           audit.Sink
	log            zerolog.Logger
	serviceAccount string
}

// Option customizes a Service.
type Option func(*Service)

// WithClock sets the clock used for event timestamps and audit metadata.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithNumberSource replaces the random 5-digit account number generator.
func WithNumberSource(next func() int64) Option {
	return func(s *Service) {
		if next != nil {
			s.numbers = next
		}
	}
}

// WithAuditSink sends one event per successful mutation to sink.
func WithAuditSink(sink audit.Sink) Option {
	return func(s *Service) {
		if sink != nil {
			s.sink = sink
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Service) {
		s.log = log
	}
}

// WithServiceAccount names the actor recorded when the context carries none.
func WithServiceAccount(name string) Option {
	return func(s *Service) {
		if name != "" {
			s.serviceAccount = name
		}
	}
}

// NewService returns a Service persisting to store.
func NewService(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("ledger: nil store")
	}
	s := &Service{
		store:          store,
		now:            time.Now,
		numbers:        randomAccountNumber,
		sink:           audit.NoOpSink{},
		log:            zerolog.Nop(),
		serviceAccount: "ledger-service",
	}
	for _, opt := range opts {
		opt(s)
	}
	s.events = NewEvents(s.now)
	s.log = s.log.With().Str("component", "ledger").Logger()
	return s, nil
}

func randomAccountNumber() int64 {
	return minAccountNumber + rand.Int64N(maxAccountNumber-minAccountNumber+1)
}

// CreateAccount opens an account with a fresh number, balance 0 and a single
// create_account entry.
func (s *Service) CreateAccount(ctx context.Context, holderName, branch string) (Account, error) {
	var in inputs
	in.text(FieldAccountHolderName, holderName)
	in.text(FieldAccountBranch, branch)
	if err := in.err(); err != nil {
		return Account{}, err
	}

	now := s.now().UTC()
	actor := s.actor(ctx)
	for attempt := 0; attempt < numberAttempts; attempt++ {
		acct := Account{
			Number:     s.numbers(),
			HolderName: holderName,
			Branch:     branch,
			StartDate:  now,
			CreatedBy:  actor,
			CreatedAt:  now,
		}.withLog(s.events.AccountCreated())

		err := s.store.Create(ctx, acct)
		if errors.Is(err, ErrAccountExists) {
			continue
		}
		if err != nil {
			return Account{}, fmt.Errorf("create account: %w", err)
		}
		s.emit(ctx, audit.EventAccountCreated, acct.Number, nil)
		s.log.Info().Int64("account_number", acct.Number).Str("actor", actor).Msg("account created")
		return acct, nil
	}
	return Account{}, ErrNumberSpaceExhausted
}

// GetAccount returns the account with its transactions in chronological order.
func (s *Service) GetAccount(ctx context.Context, accountNumber string) (Account, error) {
	var in inputs
	number := in.number(FieldAccountNumber, accountNumber)
	if err := in.err(); err != nil {
		return Account{}, err
	}
	return s.store.Get(ctx, number)
}

// UpdateBranch moves the account to newBranch and appends an account_update entry.
func (s *Service) UpdateBranch(ctx context.Context, accountNumber, newBranch string) (Account, error) {
	var in inputs
	number := in.number(FieldAccountNumber, accountNumber)
	in.text(FieldNewBranch, newBranch)
	if err := in.err(); err != nil {
		return Account{}, err
	}

	return s.mutate(ctx, number, audit.EventAccountUpdated, func(acct Account) (Account, error) {
		acct.Branch = newBranch
		return acct.withLog(s.events.AccountUpdated(acct.Transactions)), nil
	})
}

// Deposit credits amount and appends a deposit entry carrying the new balance.
func (s *Service) Deposit(ctx context.Context, accountNumber, amount string) (Account, error) {
	var in inputs
	number := in.number(FieldAccountNumber, accountNumber)
	value := in.number(FieldDepositAmount, amount)
	if err := in.err(); err != nil {
		return Account{}, err
	}
	if err := checkAmount(FieldDepositAmount, value); err != nil {
		return Account{}, err
	}

	return s.mutate(ctx, number, audit.EventDeposit, func(acct Account) (Account, error) {
		if acct.Transactions.LatestBalance() > MaxBalance-value {
			return Account{}, &RangeError{Field: FieldAccountBalance, Max: MaxBalance}
		}
		return acct.withLog(s.events.Deposited(acct.Transactions, value)), nil
	})
}

// Withdraw debits amount. It fails with ErrInsufficientBalance, leaving the
// account untouched, when amount exceeds the current balance.
func (s *Service) Withdraw(ctx context.Context, accountNumber, amount string) (Account, error) {
	var in inputs
	number := in.number(FieldAccountNumber, accountNumber)
	value := in.number(FieldWithdrawalAmount, amount)
	if err := in.err(); err != nil {
		return Account{}, err
	}
	if err := checkAmount(FieldWithdrawalAmount, value); err != nil {
		return Account{}, err
	}

	return s.mutate(ctx, number, audit.EventWithdrawal, func(acct Account) (Account, error) {
		if value > acct.Transactions.LatestBalance() {
			return Account{}, ErrInsufficientBalance
		}
		return acct.withLog(s.events.Withdrawn(acct.Transactions, value)), nil
	})
}

// DeleteAccount removes the account and its whole history. It returns the
// parsed account number.
func (s *Service) DeleteAccount(ctx context.Context, accountNumber string) (int64, error) {
	var in inputs
	number := in.number(FieldAccountNumber, accountNumber)
	if err := in.err(); err != nil {
		return 0, err
	}
	if _, err := s.store.Get(ctx, number); err != nil {
		return 0, err
	}
	if err := s.store.Delete(ctx, number); err != nil {
		return 0, err
	}
	s.emit(ctx, audit.EventAccountDeleted, number, nil)
	s.log.Info().Int64("account_number", number).Str("actor", s.actor(ctx)).Msg("account deleted")
	return number, nil
}

// ListAccounts returns every account ordered by number.
func (s *Service) ListAccounts(ctx context.Context) ([]Account, error) {
	return s.store.List(ctx)
}

// mutate loads the account, applies fn and saves the result as one logical step.
func (s *Service) mutate(ctx context.Context, number int64, eventType string, fn func(Account) (Account, error)) (Account, error) {
	acct, err := s.store.Get(ctx, number)
	if err != nil {
		return Account{}, err
	}
	updated, err := fn(acct)
	if err != nil {
		s.emit(ctx, eventType, number, err)
		return Account{}, err
	}
	updated = updated.touched(s.actor(ctx), s.now().UTC())
	if err := s.store.Save(ctx, updated); err != nil {
		return Account{}, fmt.Errorf("save account: %w", err)
	}
	s.emit(ctx, eventType, number, nil)
	return updated, nil
}

func (s *Service) actor(ctx context.Context) string {
	if actor, ok := ActorFromContext(ctx); ok {
		return actor
	}
	return s.serviceAccount
}

func (s *Service) emit(ctx context.Context, eventType string, number int64, err error) {
	event := audit.Event{
		Timestamp:     s.now().UTC(),
		EventType:     eventType,
		Subject:       s.actor(ctx),
		AccountNumber: number,
		Success:       err == nil,
	}
	if err != nil {
		event.Error = err.Error()
	}
	s.sink.Emit(ctx, event)
}
