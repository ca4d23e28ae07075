package services

import "errors"

// Ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Validation: rejected before any state mutation.
	ErrValidationFailed       = errors.New("validation failed")
	ErrRosterEmpty            = errors.New("each team needs at least one player")
	ErrRosterShapeInvalid     = errors.New("roster sizes do not match the match kind")
	ErrDuplicatePlayer        = errors.New("player appears more than once in the match")
	ErrScoreOutOfRange        = errors.New("score must be between 0 and the maximum attainable")
	ErrTieNotAllowed          = errors.New("ties are not possible in foosball")
	ErrStartTimeRequired      = errors.New("match start time is required")
	ErrPlayerNameRequired     = errors.New("player name is required")
	ErrTournamentNameRequired = errors.New("tournament name is required")
	ErrSettleAmountInvalid    = errors.New("settle amount must be positive")

	// Conflict: the operation contradicts existing state, which is left
	// untouched.
	ErrMatchAlreadyRated                 = errors.New("match has already been processed by the rating engine")
	ErrBracketMatchResolved              = errors.New("bracket match is already resolved")
	ErrBracketSlotMismatch               = errors.New("match participants do not match the bracket slot occupants")
	ErrBracketSlotsUnfilled              = errors.New("bracket match is still waiting for a feeding result")
	ErrTournamentNotInSetup              = errors.New("bracket can only be generated while the tournament is in setup")
	ErrTournamentNotActive               = errors.New("tournament is not active")
	ErrTournamentCompleted               = errors.New("tournament is completed and its bracket is frozen")
	ErrTournamentInvalidStatusTransition = errors.New("invalid tournament status transition")

	// Ошибки, специфичные для сущностей
	ErrPlayerNotFound       = errors.New("player not found")
	ErrMatchNotFound        = errors.New("match not found")
	ErrDebtNotFound         = errors.New("no outstanding debt between these players")
	ErrTournamentNotFound   = errors.New("tournament not found")
	ErrBracketMatchNotFound = errors.New("bracket match not found")

	ErrAuthInvalidCredentials = errors.New("invalid credentials")
	ErrUploaderDisabled       = errors.New("avatar storage is not configured")
)
