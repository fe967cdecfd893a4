package httpapi

import (
	"time"

	"github.com/dynastyops/capledger/internal/domain/auction"
	"github.com/dynastyops/capledger/internal/domain/contract"
	"github.com/dynastyops/capledger/internal/domain/deadcap"
	"github.com/dynastyops/capledger/internal/domain/franchise"
	"github.com/dynastyops/capledger/internal/domain/ledger"
	"github.com/dynastyops/capledger/internal/usecase"
)

type conditionalCutDTO struct {
	PlayerID string `json:"player_id" validate:"required"`
}

type applyEventRequest struct {
	EventType            string              `json:"event_type" validate:"required"`
	PlayerID             string              `json:"player_id" validate:"omitempty"`
	FranchiseID          string              `json:"franchise_id" validate:"required"`
	ToFranchiseID        string              `json:"to_franchise_id" validate:"omitempty"`
	Season               int                 `json:"season" validate:"omitempty,min=1"`
	TotalValue           int64               `json:"total_value" validate:"omitempty,min=1"`
	Duration             int                 `json:"duration" validate:"omitempty,min=1"`
	Payments             []int64             `json:"payments" validate:"omitempty,dive,min=0"`
	Kind                 string              `json:"kind" validate:"omitempty,oneof=weekly yearly non_guaranteed"`
	OptionDeadlineSeason int                 `json:"option_deadline_season" validate:"omitempty,min=1"`
	ConditionalCuts      []conditionalCutDTO `json:"conditional_cuts" validate:"omitempty,dive"`
	OccurredAt           time.Time           `json:"occurred_at" validate:"required"`
}

func (r applyEventRequest) toEvent() usecase.Event {
	cuts := make([]usecase.ConditionalCut, 0, len(r.ConditionalCuts))
	for _, cc := range r.ConditionalCuts {
		cuts = append(cuts, usecase.ConditionalCut{PlayerID: cc.PlayerID})
	}
	return usecase.Event{
		Type:                 usecase.EventType(r.EventType),
		PlayerID:             r.PlayerID,
		FranchiseID:          r.FranchiseID,
		ToFranchiseID:        r.ToFranchiseID,
		Season:               r.Season,
		TotalValue:           r.TotalValue,
		Duration:             r.Duration,
		Payments:             r.Payments,
		Kind:                 contract.Kind(r.Kind),
		OptionDeadlineSeason: r.OptionDeadlineSeason,
		ConditionalCuts:      cuts,
		OccurredAt:           r.OccurredAt,
	}
}

type warningDTO struct {
	FranchiseID string `json:"franchise_id"`
	Season      int    `json:"season"`
	Available   int64  `json:"available"`
}

type receiptDTO struct {
	EventID      string       `json:"event_id"`
	ContractID   string       `json:"contract_id,omitempty"`
	ObligationID string       `json:"obligation_id,omitempty"`
	Warnings     []warningDTO `json:"warnings,omitempty"`
	AvailableCap int64        `json:"available_cap"`
}

func receiptToDTO(receipt usecase.Receipt) receiptDTO {
	warnings := make([]warningDTO, 0, len(receipt.Warnings))
	for _, w := range receipt.Warnings {
		warnings = append(warnings, warningDTO{
			FranchiseID: w.FranchiseID,
			Season:      w.Season,
			Available:   w.Available,
		})
	}
	return receiptDTO{
		EventID:      receipt.EventID,
		ContractID:   receipt.ContractID,
		ObligationID: receipt.ObligationID,
		Warnings:     warnings,
		AvailableCap: receipt.AvailableCap,
	}
}

type bidDTO struct {
	PlayerID      string    `json:"player_id" validate:"required"`
	FranchiseID   string    `json:"franchise_id" validate:"required"`
	TotalValue    int64     `json:"total_value" validate:"required,min=1"`
	Duration      int       `json:"duration" validate:"required,min=1"`
	Payments      []int64   `json:"payments" validate:"omitempty,dive,min=0"`
	SubmittedAt   time.Time `json:"submitted_at" validate:"required"`
	TiebreakToken string    `json:"tiebreak_token" validate:"omitempty"`
}

func (d bidDTO) toDomain() auction.Bid {
	return auction.Bid{
		PlayerID:      d.PlayerID,
		FranchiseID:   d.FranchiseID,
		TotalValue:    d.TotalValue,
		Duration:      d.Duration,
		Payments:      d.Payments,
		SubmittedAt:   d.SubmittedAt,
		TiebreakToken: d.TiebreakToken,
	}
}

func bidToDTO(b auction.Bid) bidDTO {
	return bidDTO{
		PlayerID:      b.PlayerID,
		FranchiseID:   b.FranchiseID,
		TotalValue:    b.TotalValue,
		Duration:      b.Duration,
		Payments:      b.Payments,
		SubmittedAt:   b.SubmittedAt,
		TiebreakToken: b.TiebreakToken,
	}
}

type resolveAuctionRequest struct {
	Mode     string    `json:"mode" validate:"required,oneof=faad fasa"`
	ClosedAt time.Time `json:"closed_at" validate:"required"`
	Bids     []bidDTO  `json:"bids" validate:"required,min=1,dive"`
}

type auctionResultDTO struct {
	Mode     string     `json:"mode"`
	Winner   bidDTO     `json:"winner"`
	Receipt  receiptDTO `json:"receipt"`
	Revealed []bidDTO   `json:"revealed"`
}

type capEntryDTO struct {
	FranchiseID       string `json:"franchise_id"`
	Season            int    `json:"season"`
	BaseCap           int64  `json:"base_cap"`
	ActiveObligations int64  `json:"active_obligations"`
	DeadCap           int64  `json:"dead_cap"`
	TradedIn          int64  `json:"traded_in"`
	TradedOut         int64  `json:"traded_out"`
	AvailableCap      int64  `json:"available_cap"`
}

func entryToDTO(e ledger.Entry) capEntryDTO {
	return capEntryDTO{
		FranchiseID:       e.FranchiseID,
		Season:            e.Season,
		BaseCap:           e.BaseCap,
		ActiveObligations: e.ActiveObligations,
		DeadCap:           e.DeadCap,
		TradedIn:          e.TradedIn,
		TradedOut:         e.TradedOut,
		AvailableCap:      e.AvailableCap(),
	}
}

func entriesToDTO(entries []ledger.Entry) []capEntryDTO {
	out := make([]capEntryDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryToDTO(e))
	}
	return out
}

type franchiseProjectionDTO struct {
	FranchiseID string        `json:"franchise_id"`
	Entries     []capEntryDTO `json:"entries"`
}

type obligationDTO struct {
	ID          string        `json:"id"`
	ContractID  string        `json:"contract_id"`
	PlayerID    string        `json:"player_id"`
	FranchiseID string        `json:"franchise_id"`
	CutSeason   int           `json:"cut_season"`
	Liabilities map[int]int64 `json:"liabilities"`
	Total       int64         `json:"total"`
	Suppressed  bool          `json:"suppressed"`
}

func obligationToDTO(o deadcap.Obligation) obligationDTO {
	return obligationDTO{
		ID:          o.ID,
		ContractID:  o.ContractID,
		PlayerID:    o.PlayerID,
		FranchiseID: o.FranchiseID,
		CutSeason:   o.CutSeason,
		Liabilities: o.Liabilities,
		Total:       o.Total(),
		Suppressed:  o.Suppressed,
	}
}

type contractDTO struct {
	ID                   string  `json:"id"`
	PlayerID             string  `json:"player_id"`
	FranchiseID          string  `json:"franchise_id"`
	Kind                 string  `json:"kind"`
	TotalValue           int64   `json:"total_value"`
	Duration             int     `json:"duration"`
	StartSeason          int     `json:"start_season"`
	FinalSeason          int     `json:"final_season"`
	Payments             []int64 `json:"payments"`
	Guaranteed           []bool  `json:"guaranteed"`
	State                string  `json:"state"`
	OptionDeadlineSeason int     `json:"option_deadline_season,omitempty"`
}

func contractToDTO(c contract.Contract) contractDTO {
	return contractDTO{
		ID:                   c.ID,
		PlayerID:             c.PlayerID,
		FranchiseID:          c.FranchiseID,
		Kind:                 string(c.Kind),
		TotalValue:           c.TotalValue,
		Duration:             c.Duration,
		StartSeason:          c.StartSeason,
		FinalSeason:          c.FinalSeason(),
		Payments:             c.Payments,
		Guaranteed:           c.Guaranteed,
		State:                string(c.State),
		OptionDeadlineSeason: c.OptionDeadlineSeason,
	}
}

type historyRowDTO struct {
	ContractID  string    `json:"contract_id"`
	PlayerID    string    `json:"player_id"`
	FranchiseID string    `json:"franchise_id"`
	State       string    `json:"state"`
	Event       string    `json:"event"`
	Season      int       `json:"season"`
	RecordedAt  time.Time `json:"recorded_at"`
}

func historyRowToDTO(row contract.HistoryRow) historyRowDTO {
	return historyRowDTO{
		ContractID:  row.ContractID,
		PlayerID:    row.PlayerID,
		FranchiseID: row.FranchiseID,
		State:       string(row.State),
		Event:       row.Event,
		Season:      row.Season,
		RecordedAt:  row.RecordedAt,
	}
}

type franchiseDTO struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Owner        string `json:"owner"`
	JoinedSeason int    `json:"joined_season"`
}

func franchiseToDTO(f franchise.Franchise) franchiseDTO {
	return franchiseDTO{
		ID:           f.ID,
		Name:         f.Name,
		Owner:        f.Owner,
		JoinedSeason: f.JoinedSeason,
	}
}

type discrepancyDTO struct {
	FranchiseID string `json:"franchise_id"`
	Season      int    `json:"season"`
	Field       string `json:"field"`
	Got         int64  `json:"got"`
	Want        int64  `json:"want"`
}

type reconcileReportDTO struct {
	Clean                 bool             `json:"clean"`
	InternalDiscrepancies []discrepancyDTO `json:"internal_discrepancies,omitempty"`
	ExternalDiscrepancies []discrepancyDTO `json:"external_discrepancies,omitempty"`
	FrozenFranchises      []string         `json:"frozen_franchises,omitempty"`
}

func reconcileReportToDTO(report usecase.ReconcileReport) reconcileReportDTO {
	return reconcileReportDTO{
		Clean:                 report.Clean(),
		InternalDiscrepancies: discrepanciesToDTO(report.InternalDiscrepancies),
		ExternalDiscrepancies: discrepanciesToDTO(report.ExternalDiscrepancies),
		FrozenFranchises:      report.FrozenFranchises,
	}
}

func discrepanciesToDTO(discrepancies []ledger.Discrepancy) []discrepancyDTO {
	out := make([]discrepancyDTO, 0, len(discrepancies))
	for _, d := range discrepancies {
		out = append(out, discrepancyDTO{
			FranchiseID: d.FranchiseID,
			Season:      d.Season,
			Field:       d.Field,
			Got:         d.Got,
			Want:        d.Want,
		})
	}
	return out
}
