package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dynastyops/capledger/internal/domain/franchise"
)

type FranchiseRepository struct {
	mu     sync.RWMutex
	items  map[string]franchise.Franchise
	orders []string
}

func NewFranchiseRepository(franchises []franchise.Franchise) *FranchiseRepository {
	items := make(map[string]franchise.Franchise, len(franchises))
	orders := make([]string, 0, len(franchises))

	for _, f := range franchises {
		items[f.ID] = f
		orders = append(orders, f.ID)
	}

	return &FranchiseRepository{
		items:  items,
		orders: orders,
	}
}

func (r *FranchiseRepository) List(_ context.Context) ([]franchise.Franchise, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]franchise.Franchise, 0, len(r.orders))
	for _, id := range r.orders {
		out = append(out, r.items[id])
	}

	return out, nil
}

func (r *FranchiseRepository) GetByID(_ context.Context, franchiseID string) (franchise.Franchise, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.items[franchiseID]
	if !ok {
		return franchise.Franchise{}, false, nil
	}

	return f, true, nil
}

func (r *FranchiseRepository) UpdateOwner(_ context.Context, franchiseID, owner string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.items[franchiseID]
	if !ok {
		return fmt.Errorf("franchise %s not found", franchiseID)
	}
	f.Owner = owner
	f.UpdatedAt = time.Now()
	r.items[franchiseID] = f

	return nil
}
