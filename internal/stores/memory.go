package stores

import (
	"context"
	"sort"
	"sync"

	"github.com/MrEthical07/goLedger/ledger"
)

// MemoryAccounts is an in-process ledger.Store.
type MemoryAccounts struct {
	mu       sync.RWMutex
	accounts map[int64]ledger.Account
}

func NewMemoryAccounts() *MemoryAccounts {
	return &MemoryAccounts{accounts: make(map[int64]ledger.Account)}
}

func (s *MemoryAccounts) Create(_ context.Context, acct ledger.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[acct.Number]; ok {
		return ledger.ErrAccountExists
	}
	s.accounts[acct.Number] = acct
	return nil
}

func (s *MemoryAccounts) Get(_ context.Context, number int64) (ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, ok := s.accounts[number]
	if !ok {
		return ledger.Account{}, ledger.ErrAccountNotFound
	}
	return acct, nil
}

func (s *MemoryAccounts) Save(_ context.Context, acct ledger.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[acct.Number]; !ok {
		return ledger.ErrAccountNotFound
	}
	s.accounts[acct.Number] = acct
	return nil
}

func (s *MemoryAccounts) Delete(_ context.Context, number int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[number]; !ok {
		return ledger.ErrAccountNotFound
	}
	delete(s.accounts, number)
	return nil
}

func (s *MemoryAccounts) List(_ context.Context) ([]ledger.Account, error) {
	s.mu.RLock()
	out := make([]ledger.Account, 0, len(s.accounts))
	for _, acct := range s.accounts {
		out = append(out, acct)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}
