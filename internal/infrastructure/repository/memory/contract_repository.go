package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/dynastyops/capledger/internal/domain/contract"
)

type ContractRepository struct {
	mu      sync.RWMutex
	items   map[string]contract.Contract
	orders  []string
	history []contract.HistoryRow
}

func NewContractRepository() *ContractRepository {
	return &ContractRepository{
		items: make(map[string]contract.Contract),
	}
}

func (r *ContractRepository) GetByID(_ context.Context, contractID string) (contract.Contract, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.items[contractID]
	if !ok {
		return contract.Contract{}, false, nil
	}

	return cloneContract(c), true, nil
}

func (r *ContractRepository) GetLiveByPlayer(_ context.Context, playerID string) (contract.Contract, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range r.orders {
		c := r.items[id]
		if c.PlayerID == playerID && c.Live() {
			return cloneContract(c), true, nil
		}
	}

	return contract.Contract{}, false, nil
}

func (r *ContractRepository) ListLive(_ context.Context) ([]contract.Contract, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]contract.Contract, 0, len(r.orders))
	for _, id := range r.orders {
		if c := r.items[id]; c.Live() {
			out = append(out, cloneContract(c))
		}
	}

	return out, nil
}

func (r *ContractRepository) ListByFranchise(_ context.Context, franchiseID string) ([]contract.Contract, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]contract.Contract, 0, len(r.orders))
	for _, id := range r.orders {
		if c := r.items[id]; c.FranchiseID == franchiseID {
			out = append(out, cloneContract(c))
		}
	}

	return out, nil
}

func (r *ContractRepository) Save(_ context.Context, c contract.Contract) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[c.ID]; ok {
		return fmt.Errorf("contract %s already exists", c.ID)
	}
	r.items[c.ID] = cloneContract(c)
	r.orders = append(r.orders, c.ID)

	return nil
}

func (r *ContractRepository) Update(_ context.Context, c contract.Contract) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[c.ID]; !ok {
		return fmt.Errorf("contract %s not found", c.ID)
	}
	r.items[c.ID] = cloneContract(c)

	return nil
}

func (r *ContractRepository) AppendHistory(_ context.Context, row contract.HistoryRow) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.history = append(r.history, row)

	return nil
}

func (r *ContractRepository) HistoryByPlayer(_ context.Context, playerID string) ([]contract.HistoryRow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]contract.HistoryRow, 0, 4)
	for _, row := range r.history {
		if row.PlayerID == playerID {
			out = append(out, row)
		}
	}

	return out, nil
}

// cloneContract copies the slices so callers can never mutate stored state
// through a returned value.
func cloneContract(c contract.Contract) contract.Contract {
	c.Payments = append([]int64(nil), c.Payments...)
	c.Guaranteed = append([]bool(nil), c.Guaranteed...)
	return c
}
