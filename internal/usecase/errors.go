package usecase

import "errors"

var (
	ErrInvalidInput            = errors.New("invalid input")
	ErrNotFound                = errors.New("resource not found")
	ErrUnauthorized            = errors.New("unauthorized")
	ErrDependencyUnavailable   = errors.New("dependency unavailable")
	ErrOutOfOrderEvent         = errors.New("event timestamp precedes the last processed event")
	ErrDuplicateActiveContract = errors.New("player already has a live contract")
	ErrLedgerFrozen            = errors.New("franchise ledger is frozen")
	ErrOptionUnavailable       = errors.New("contract option cannot be exercised")
	ErrWaiverWindowClosed      = errors.New("waiver claim window has closed")
)
