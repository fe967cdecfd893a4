package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/dynastyops/capledger/internal/domain/deadcap"
)

type ObligationRepository struct {
	mu     sync.RWMutex
	items  map[string]deadcap.Obligation
	orders []string
}

func NewObligationRepository() *ObligationRepository {
	return &ObligationRepository{
		items: make(map[string]deadcap.Obligation),
	}
}

func (r *ObligationRepository) Save(_ context.Context, o deadcap.Obligation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[o.ID]; ok {
		return fmt.Errorf("obligation %s already exists", o.ID)
	}
	r.items[o.ID] = cloneObligation(o)
	r.orders = append(r.orders, o.ID)

	return nil
}

func (r *ObligationRepository) Suppress(_ context.Context, obligationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.items[obligationID]
	if !ok {
		return fmt.Errorf("obligation %s not found", obligationID)
	}
	o.Suppressed = true
	r.items[obligationID] = o

	return nil
}

func (r *ObligationRepository) ListByFranchise(_ context.Context, franchiseID string) ([]deadcap.Obligation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]deadcap.Obligation, 0, len(r.orders))
	for _, id := range r.orders {
		if o := r.items[id]; o.FranchiseID == franchiseID {
			out = append(out, cloneObligation(o))
		}
	}

	return out, nil
}

func (r *ObligationRepository) List(_ context.Context) ([]deadcap.Obligation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]deadcap.Obligation, 0, len(r.orders))
	for _, id := range r.orders {
		out = append(out, cloneObligation(r.items[id]))
	}

	return out, nil
}

func cloneObligation(o deadcap.Obligation) deadcap.Obligation {
	liabilities := make(map[int]int64, len(o.Liabilities))
	for season, amount := range o.Liabilities {
		liabilities[season] = amount
	}
	o.Liabilities = liabilities
	return o
}
