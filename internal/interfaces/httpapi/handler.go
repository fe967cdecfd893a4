package httpapi

import (
	"context"
	"fmt"
	"net/http"

	sonic "github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"

	"github.com/dynastyops/capledger/internal/domain/auction"
	"github.com/dynastyops/capledger/internal/platform/logging"
	"github.com/dynastyops/capledger/internal/usecase"
)

type Handler struct {
	transactionService *usecase.TransactionService
	auctionService     *usecase.AuctionService
	projectionService  *usecase.ProjectionService
	reconcileService   *usecase.ReconcileService
	contractService    *usecase.ContractService
	franchiseService   *usecase.FranchiseService
	logger             *logging.Logger
	validator          *validator.Validate
}

func NewHandler(
	transactionService *usecase.TransactionService,
	auctionService *usecase.AuctionService,
	projectionService *usecase.ProjectionService,
	reconcileService *usecase.ReconcileService,
	contractService *usecase.ContractService,
	franchiseService *usecase.FranchiseService,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		transactionService: transactionService,
		auctionService:     auctionService,
		projectionService:  projectionService,
		reconcileService:   reconcileService,
		contractService:    contractService,
		franchiseService:   franchiseService,
		logger:             logger,
		validator:          validator.New(),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) ApplyEvent(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ApplyEvent")
	defer span.End()

	var req applyEventRequest
	if err := h.decodeAndValidate(ctx, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	receipt, err := h.transactionService.ApplyEvent(ctx, req.toEvent())
	if err != nil {
		h.logger.WarnContext(ctx, "apply event failed",
			"event_type", req.EventType,
			"franchise_id", req.FranchiseID,
			"player_id", req.PlayerID,
			"error", err,
		)
		writeError(ctx, w, err)
		return
	}
	h.projectionService.Invalidate(ctx, req.FranchiseID)
	if req.ToFranchiseID != "" {
		h.projectionService.Invalidate(ctx, req.ToFranchiseID)
	}

	writeSuccess(ctx, w, http.StatusCreated, receiptToDTO(receipt))
}

func (h *Handler) ResolveAuction(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ResolveAuction")
	defer span.End()

	var req resolveAuctionRequest
	if err := h.decodeAndValidate(ctx, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	bids := make([]auction.Bid, 0, len(req.Bids))
	for _, b := range req.Bids {
		bids = append(bids, b.toDomain())
	}

	result, err := h.auctionService.ResolveAndSign(ctx, auction.Mode(req.Mode), bids, req.ClosedAt)
	if err != nil {
		h.logger.WarnContext(ctx, "auction resolution failed", "mode", req.Mode, "bids", len(bids), "error", err)
		writeError(ctx, w, err)
		return
	}
	h.projectionService.Invalidate(ctx, result.Winner.FranchiseID)

	revealed := make([]bidDTO, 0, len(result.Revealed))
	for _, b := range result.Revealed {
		revealed = append(revealed, bidToDTO(b))
	}
	writeSuccess(ctx, w, http.StatusCreated, auctionResultDTO{
		Mode:     string(result.Mode),
		Winner:   bidToDTO(result.Winner),
		Receipt:  receiptToDTO(result.Receipt),
		Revealed: revealed,
	})
}

func (h *Handler) ListFranchises(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListFranchises")
	defer span.End()

	franchises, err := h.franchiseService.List(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "list franchises failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]franchiseDTO, 0, len(franchises))
	for _, f := range franchises {
		items = append(items, franchiseToDTO(f))
	}
	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) GetFranchiseCap(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetFranchiseCap")
	defer span.End()

	franchiseID := r.PathValue("franchiseID")
	season, err := queryInt(r, "season", 0)
	if err != nil {
		writeError(ctx, w, fmt.Errorf("%w: %v", usecase.ErrInvalidInput, err))
		return
	}

	entry, err := h.projectionService.FranchiseCap(ctx, franchiseID, season)
	if err != nil {
		h.logger.WarnContext(ctx, "get franchise cap failed", "franchise_id", franchiseID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, entryToDTO(entry))
}

func (h *Handler) GetFranchiseProjections(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetFranchiseProjections")
	defer span.End()

	franchiseID := r.PathValue("franchiseID")
	entries, err := h.projectionService.Projections(ctx, franchiseID)
	if err != nil {
		h.logger.WarnContext(ctx, "get projections failed", "franchise_id", franchiseID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, entriesToDTO(entries))
}

func (h *Handler) GetLeagueProjections(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetLeagueProjections")
	defer span.End()

	projections, err := h.projectionService.LeagueProjections(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "get league projections failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]franchiseProjectionDTO, 0, len(projections))
	for _, p := range projections {
		items = append(items, franchiseProjectionDTO{
			FranchiseID: p.FranchiseID,
			Entries:     entriesToDTO(p.Entries),
		})
	}
	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) GetFranchiseDeadCap(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetFranchiseDeadCap")
	defer span.End()

	franchiseID := r.PathValue("franchiseID")
	obligations, err := h.projectionService.DeadCapReport(ctx, franchiseID)
	if err != nil {
		h.logger.WarnContext(ctx, "get dead cap failed", "franchise_id", franchiseID, "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]obligationDTO, 0, len(obligations))
	for _, o := range obligations {
		items = append(items, obligationToDTO(o))
	}
	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) GetFranchiseRoster(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetFranchiseRoster")
	defer span.End()

	franchiseID := r.PathValue("franchiseID")
	if _, err := h.franchiseService.Get(ctx, franchiseID); err != nil {
		writeError(ctx, w, err)
		return
	}

	contracts, err := h.contractService.Roster(ctx, franchiseID)
	if err != nil {
		h.logger.WarnContext(ctx, "get roster failed", "franchise_id", franchiseID, "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]contractDTO, 0, len(contracts))
	for _, c := range contracts {
		items = append(items, contractToDTO(c))
	}
	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) GetContractHistory(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetContractHistory")
	defer span.End()

	playerID := r.PathValue("playerID")
	rows, err := h.contractService.History(ctx, playerID)
	if err != nil {
		h.logger.WarnContext(ctx, "get contract history failed", "player_id", playerID, "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]historyRowDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, historyRowToDTO(row))
	}
	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) RunReconcile(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunReconcile")
	defer span.End()

	report, err := h.reconcileService.Run(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "reconcile run failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, reconcileReportToDTO(report))
}

func (h *Handler) AdvanceSeason(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.AdvanceSeason")
	defer span.End()

	season, err := h.transactionService.AdvanceSeason(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "advance season failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]int{"current_season": season})
}

func (h *Handler) UnfreezeFranchise(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.UnfreezeFranchise")
	defer span.End()

	franchiseID := r.PathValue("franchiseID")
	if _, err := h.franchiseService.Get(ctx, franchiseID); err != nil {
		writeError(ctx, w, err)
		return
	}
	h.transactionService.UnfreezeFranchise(franchiseID)

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"franchise_id": franchiseID, "status": "unfrozen"})
}

func (h *Handler) TransferFranchiseOwnership(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.TransferFranchiseOwnership")
	defer span.End()

	franchiseID := r.PathValue("franchiseID")
	var req struct {
		Owner string `json:"owner" validate:"required"`
	}
	if err := h.decodeAndValidate(ctx, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	if err := h.franchiseService.TransferOwnership(ctx, franchiseID, req.Owner); err != nil {
		h.logger.WarnContext(ctx, "transfer ownership failed", "franchise_id", franchiseID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"franchise_id": franchiseID, "owner": req.Owner})
}

func (h *Handler) decodeAndValidate(ctx context.Context, r *http.Request, payload any) error {
	if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(payload); err != nil {
		return fmt.Errorf("%w: decode request body: %v", usecase.ErrInvalidInput, err)
	}
	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}
	return nil
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	var out int
	if _, err := fmt.Sscanf(raw, "%d", &out); err != nil {
		return 0, fmt.Errorf("invalid %s %q", key, raw)
	}
	return out, nil
}
