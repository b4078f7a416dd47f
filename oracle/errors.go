package oracle

import (
	sdkerrors "cosmossdk.io/errors"
)

// ModuleName is the error codespace for the oracle program.
const ModuleName = "oracle"

// Error codes for the oracle program, mirroring the guard order of the
// on-chain contract.
var (
	ErrNotAuthorized     = sdkerrors.Register(ModuleName, 2, "not authorized")
	ErrScoreOutOfRange   = sdkerrors.Register(ModuleName, 3, "score out of range")
	ErrUpdateTooFrequent = sdkerrors.Register(ModuleName, 4, "update too frequent")
	ErrDuplicateScore    = sdkerrors.Register(ModuleName, 5, "duplicate score")
	ErrInvalidThresholds = sdkerrors.Register(ModuleName, 6, "invalid thresholds")
	ErrInvalidWriter     = sdkerrors.Register(ModuleName, 7, "invalid writer")
	ErrInvalidInterval   = sdkerrors.Register(ModuleName, 8, "invalid interval")
)
