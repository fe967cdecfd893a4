package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/panjf2000/ants/v2"

	"github.com/dynastyops/capledger/external/commissioner"
	"github.com/dynastyops/capledger/internal/config"
	"github.com/dynastyops/capledger/internal/domain/contract"
	"github.com/dynastyops/capledger/internal/domain/deadcap"
	"github.com/dynastyops/capledger/internal/domain/franchise"
	"github.com/dynastyops/capledger/internal/domain/ledger"
	"github.com/dynastyops/capledger/internal/infrastructure/repository/memory"
	"github.com/dynastyops/capledger/internal/infrastructure/repository/postgres"
	"github.com/dynastyops/capledger/internal/interfaces/httpapi"
	"github.com/dynastyops/capledger/internal/platform/cache"
	idgen "github.com/dynastyops/capledger/internal/platform/id"
	"github.com/dynastyops/capledger/internal/platform/logging"
	"github.com/dynastyops/capledger/internal/platform/resilience"
	"github.com/dynastyops/capledger/internal/usecase"
)

const projectionWorkers = 8

// App bundles the HTTP server with the resources it owns.
type App struct {
	Server *http.Server

	pool   *ants.Pool
	closeF func(context.Context) error
}

// Close releases worker pools and database handles after the server stops.
func (a *App) Close(ctx context.Context) error {
	if a.pool != nil {
		a.pool.Release()
	}
	if a.closeF != nil {
		return a.closeF(ctx)
	}
	return nil
}

func New(cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}

	repos, closeF, err := buildRepositories(cfg)
	if err != nil {
		return nil, err
	}

	led := ledger.New(cfg.BaseSeasonCap)
	postingLog, err := repos.postings.ListPostings(context.Background())
	if err != nil {
		return nil, fmt.Errorf("load posting log: %w", err)
	}
	if len(postingLog) > 0 {
		if err := led.Restore(postingLog); err != nil {
			return nil, fmt.Errorf("restore ledger: %w", err)
		}
		logger.Info("ledger restored from posting log", "postings", len(postingLog))
	}

	rules := contract.ShapeRules{
		BandNumerator:      cfg.BandNumerator,
		BandDenominator:    cfg.BandDenominator,
		MinProRateDuration: cfg.MinProRateDuration,
		MaxDuration:        cfg.MaxDuration,
	}
	calc := deadcap.NewCalculator(deadcap.Schedule{PercentByOffset: cfg.DeadCapPercents})

	txService := usecase.NewTransactionService(
		repos.contracts,
		repos.obligations,
		repos.franchises,
		repos.postings,
		led,
		calc,
		rules,
		idgen.NewRandomGenerator(),
		cfg.CurrentSeason,
		cfg.WaiverClaimWindow,
		logger,
	)

	pool, err := ants.NewPool(projectionWorkers)
	if err != nil {
		return nil, fmt.Errorf("create projection pool: %w", err)
	}

	var store *cache.Store
	if cfg.CacheEnabled {
		store = cache.NewStore(cfg.CacheTTL)
	} else {
		store = cache.NewStore(0)
	}

	projectionService := usecase.NewProjectionService(
		repos.franchises,
		repos.obligations,
		led,
		txService,
		cfg.ProjectionHorizon,
		store,
		pool,
		logger,
	)

	var snapshots usecase.SnapshotProvider
	if cfg.CommissionerEnabled {
		client, err := commissioner.NewClient(commissioner.ClientConfig{
			BaseURL: cfg.CommissionerBaseURL,
			Token:   cfg.CommissionerToken,
			Timeout: cfg.CommissionerTimeout,
			Logger:  logger,
			CircuitBreaker: resilience.CircuitBreakerConfig{
				Enabled:          cfg.CommissionerCircuitEnabled,
				FailureThreshold: cfg.CommissionerCircuitFailures,
				OpenTimeout:      cfg.CommissionerCircuitOpenTimeout,
				HalfOpenMaxReq:   cfg.CommissionerCircuitHalfOpenMax,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("build commissioner client: %w", err)
		}
		snapshots = client
	}

	reconcileService := usecase.NewReconcileService(
		repos.franchises,
		led,
		snapshots,
		txService,
		txService,
		logger,
	)
	auctionService := usecase.NewAuctionService(txService, rules, logger)
	contractService := usecase.NewContractService(repos.contracts, logger)
	franchiseService := usecase.NewFranchiseService(repos.franchises, logger)

	handler := httpapi.NewHandler(
		txService,
		auctionService,
		projectionService,
		reconcileService,
		contractService,
		franchiseService,
		logger,
	)
	router := httpapi.NewRouter(handler, logger, cfg.CORSAllowedOrigins, cfg.InternalJobToken)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	if server.Addr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	return &App{
		Server: server,
		pool:   pool,
		closeF: closeF,
	}, nil
}

type repositories struct {
	contracts   contract.Repository
	obligations deadcap.Repository
	franchises  franchise.Repository
	postings    ledger.Repository
}

func buildRepositories(cfg config.Config) (repositories, func(context.Context) error, error) {
	switch cfg.StorageDriver {
	case config.StoragePostgres:
		db, err := connectDB(cfg)
		if err != nil {
			return repositories{}, nil, err
		}
		return repositories{
			contracts:   postgres.NewContractRepository(db),
			obligations: postgres.NewObligationRepository(db),
			franchises:  postgres.NewFranchiseRepository(db),
			postings:    postgres.NewPostingRepository(db),
		}, func(context.Context) error { return db.Close() }, nil
	default:
		return repositories{
			contracts:   memory.NewContractRepository(),
			obligations: memory.NewObligationRepository(),
			franchises:  memory.NewFranchiseRepository(memory.SeedFranchises(cfg.CurrentSeason)),
			postings:    memory.NewPostingRepository(),
		}, nil, nil
	}
}
