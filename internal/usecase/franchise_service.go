package usecase

import (
	"context"
	"fmt"

	"github.com/dynastyops/capledger/internal/domain/franchise"
	"github.com/dynastyops/capledger/internal/platform/logging"
)

// FranchiseService serves franchise identity reads and ownership handovers.
type FranchiseService struct {
	franchises franchise.Repository
	logger     *logging.Logger
}

func NewFranchiseService(franchises franchise.Repository, logger *logging.Logger) *FranchiseService {
	if logger == nil {
		logger = logging.Default()
	}
	return &FranchiseService{
		franchises: franchises,
		logger:     logger,
	}
}

func (s *FranchiseService) List(ctx context.Context) ([]franchise.Franchise, error) {
	ctx, span := startUsecaseSpan(ctx, "FranchiseService.List")
	defer span.End()

	franchises, err := s.franchises.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list franchises: %w", err)
	}

	return franchises, nil
}

func (s *FranchiseService) Get(ctx context.Context, franchiseID string) (franchise.Franchise, error) {
	ctx, span := startUsecaseSpan(ctx, "FranchiseService.Get")
	defer span.End()

	if franchiseID == "" {
		return franchise.Franchise{}, fmt.Errorf("%w: franchise id is required", ErrInvalidInput)
	}

	f, ok, err := s.franchises.GetByID(ctx, franchiseID)
	if err != nil {
		return franchise.Franchise{}, fmt.Errorf("get franchise: %w", err)
	}
	if !ok {
		return franchise.Franchise{}, fmt.Errorf("%w: franchise %s", ErrNotFound, franchiseID)
	}

	return f, nil
}

// TransferOwnership hands a franchise to a new owner. Contract and cap
// history stay with the franchise.
func (s *FranchiseService) TransferOwnership(ctx context.Context, franchiseID, owner string) error {
	ctx, span := startUsecaseSpan(ctx, "FranchiseService.TransferOwnership")
	defer span.End()

	if owner == "" {
		return fmt.Errorf("%w: owner is required", ErrInvalidInput)
	}
	if _, err := s.Get(ctx, franchiseID); err != nil {
		return err
	}
	if err := s.franchises.UpdateOwner(ctx, franchiseID, owner); err != nil {
		return fmt.Errorf("update owner: %w", err)
	}

	s.logger.InfoContext(ctx, "franchise ownership transferred", "franchise_id", franchiseID, "owner", owner)
	return nil
}
