// internal/models/errors.go
package models

import "github.com/pkg/errors"

var (
	ErrMatchNotFound       = errors.New("match not found")
	ErrAlreadyAccepted     = errors.New("match already accepted")
	ErrMatchClosed         = errors.New("match is no longer open")
	ErrOwnChallenge        = errors.New("cannot accept own challenge")
	ErrAcceptInProgress    = errors.New("match acceptance already in progress")
	ErrLedgerWriteRejected = errors.New("ledger write returned no row")
	ErrNoGuild             = errors.New("challenges require a guild channel")

	ErrTournamentNotFound = errors.New("tournament not found")
	ErrTournamentFull     = errors.New("tournament is full")
	ErrTournamentClosed   = errors.New("tournament is not open for entrants")
)

// LedgerError reports a failed ledger write. It matches ErrLedgerWriteRejected
// and unwraps to the driver error.
type LedgerError struct {
	Err error
}

func (e *LedgerError) Error() string {
	return ErrLedgerWriteRejected.Error() + ": " + e.Err.Error()
}

func (e *LedgerError) Is(target error) bool {
	return target == ErrLedgerWriteRejected
}

func (e *LedgerError) Unwrap() error {
	return e.Err
}
