package franchise

import (
	"context"
	"fmt"
	"time"
)

// Franchise is a stable league identity. Ownership changes over time; cap
// history and contract history stay attached to the franchise, never to the
// owner.
type Franchise struct {
	ID           string
	Name         string
	Owner        string
	JoinedSeason int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (f Franchise) Validate() error {
	if f.ID == "" {
		return fmt.Errorf("franchise id is required")
	}
	if f.Name == "" {
		return fmt.Errorf("franchise name is required")
	}
	if f.Owner == "" {
		return fmt.Errorf("franchise owner is required")
	}
	return nil
}

// Repository describes franchise persistence needs from use cases.
type Repository interface {
	List(ctx context.Context) ([]Franchise, error)
	GetByID(ctx context.Context, franchiseID string) (Franchise, bool, error)
	UpdateOwner(ctx context.Context, franchiseID, owner string) error
}
