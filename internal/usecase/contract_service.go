package usecase

import (
	"context"
	"fmt"
	"sort"

	"github.com/dynastyops/capledger/internal/domain/contract"
	"github.com/dynastyops/capledger/internal/platform/logging"
)

// ContractService serves the read side of contract lifecycles.
type ContractService struct {
	contracts contract.Repository
	logger    *logging.Logger
}

func NewContractService(contracts contract.Repository, logger *logging.Logger) *ContractService {
	if logger == nil {
		logger = logging.Default()
	}
	return &ContractService{
		contracts: contracts,
		logger:    logger,
	}
}

// History returns every lifecycle record for a player in the order the
// events were applied.
func (s *ContractService) History(ctx context.Context, playerID string) ([]contract.HistoryRow, error) {
	ctx, span := startUsecaseSpan(ctx, "ContractService.History")
	defer span.End()

	if playerID == "" {
		return nil, fmt.Errorf("%w: player id is required", ErrInvalidInput)
	}

	rows, err := s.contracts.HistoryByPlayer(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no contract history for player %s", ErrNotFound, playerID)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].RecordedAt.Before(rows[j].RecordedAt) })

	return rows, nil
}

// Roster returns a franchise's contracts, live deals first.
func (s *ContractService) Roster(ctx context.Context, franchiseID string) ([]contract.Contract, error) {
	ctx, span := startUsecaseSpan(ctx, "ContractService.Roster")
	defer span.End()

	if franchiseID == "" {
		return nil, fmt.Errorf("%w: franchise id is required", ErrInvalidInput)
	}

	contracts, err := s.contracts.ListByFranchise(ctx, franchiseID)
	if err != nil {
		return nil, fmt.Errorf("list contracts: %w", err)
	}
	sort.SliceStable(contracts, func(i, j int) bool {
		if contracts[i].Live() != contracts[j].Live() {
			return contracts[i].Live()
		}
		return contracts[i].PlayerID < contracts[j].PlayerID
	})

	return contracts, nil
}
