package evm

import (
	"bytes"
	"fmt"
	"math/big"
	"time"

	sdkerrors "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/vibeoracle/bridge-node/oracle"
)

// ABI plumbing for the SentimentOracle contract. The surface is small enough
// that hand-built argument lists beat carrying a generated binding:
//
//	updateSentiment(int256)
//	getSentiment() returns (int256 score, uint256 lastUpdated)
//	getOracleState() returns (int256, uint256, bool isBullish, bool isBearish)
//	getThresholds() returns (int256 bullish, int256 bearish)
var (
	int256Type, _  = abi.NewType("int256", "", nil)
	uint256Type, _ = abi.NewType("uint256", "", nil)
	boolType, _    = abi.NewType("bool", "", nil)
	stringType, _  = abi.NewType("string", "", nil)

	updateSentimentArgs = abi.Arguments{{Type: int256Type}}
	sentimentReturns    = abi.Arguments{{Type: int256Type}, {Type: uint256Type}}
	oracleStateReturns  = abi.Arguments{
		{Type: int256Type}, {Type: uint256Type}, {Type: boolType}, {Type: boolType},
	}
	thresholdsReturns = abi.Arguments{{Type: int256Type}, {Type: int256Type}}
	revertStringArgs  = abi.Arguments{{Type: stringType}}
)

// selector returns the 4-byte function or error selector for a signature.
func selector(signature string) []byte {
	return crypto.Keccak256([]byte(signature))[:4]
}

var (
	updateSentimentSelector = selector("updateSentiment(int256)")
	getSentimentSelector    = selector("getSentiment()")
	getOracleStateSelector  = selector("getOracleState()")
	getThresholdsSelector   = selector("getThresholds()")
)

// packUpdateSentiment encodes the score write call.
func packUpdateSentiment(score int) ([]byte, error) {
	encoded, err := updateSentimentArgs.Pack(big.NewInt(int64(score)))
	if err != nil {
		return nil, fmt.Errorf("failed to pack updateSentiment arguments: %w", err)
	}
	return append(append([]byte{}, updateSentimentSelector...), encoded...), nil
}

func unpackSentiment(data []byte) (int, time.Time, error) {
	values, err := sentimentReturns.Unpack(data)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("failed to unpack getSentiment result: %w", err)
	}
	score, ok := values[0].(*big.Int)
	if !ok {
		return 0, time.Time{}, fmt.Errorf("unexpected type for sentiment score")
	}
	updated, ok := values[1].(*big.Int)
	if !ok {
		return 0, time.Time{}, fmt.Errorf("unexpected type for sentiment timestamp")
	}
	return int(score.Int64()), time.Unix(updated.Int64(), 0).UTC(), nil
}

func unpackOracleState(data []byte) (score int, updated time.Time, isBullish, isBearish bool, err error) {
	values, err := oracleStateReturns.Unpack(data)
	if err != nil {
		return 0, time.Time{}, false, false,
			fmt.Errorf("failed to unpack getOracleState result: %w", err)
	}
	scoreBig := values[0].(*big.Int)
	updatedBig := values[1].(*big.Int)
	isBullish = values[2].(bool)
	isBearish = values[3].(bool)
	return int(scoreBig.Int64()), time.Unix(updatedBig.Int64(), 0).UTC(), isBullish, isBearish, nil
}

func unpackThresholds(data []byte) (bullish, bearish int, err error) {
	values, err := thresholdsReturns.Unpack(data)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to unpack getThresholds result: %w", err)
	}
	return int(values[0].(*big.Int).Int64()), int(values[1].(*big.Int).Int64()), nil
}

// Custom error selectors emitted by the contract's guards, plus the standard
// Error(string) and Panic(uint256) ABI reverts.
var (
	notAuthorizedSelector     = selector("NotAuthorized()")
	scoreOutOfRangeSelector   = selector("ScoreOutOfRange(int256)")
	updateTooFrequentSelector = selector("UpdateTooFrequent(uint256)")
	duplicateScoreSelector    = selector("DuplicateScore(int256)")
	invalidThresholdsSelector = selector("InvalidThresholds(int256,int256)")
	invalidWriterSelector     = selector("InvalidWriter()")
	errorStringSelector       = selector("Error(string)")
	panicSelector             = selector("Panic(uint256)")
)

// decodeRevert maps raw revert data onto the oracle's typed guard errors.
// It returns nil when the data carries no selector it understands, leaving
// the caller free to surface the transport error unchanged.
func decodeRevert(data []byte) error {
	if len(data) < 4 {
		return nil
	}
	sel, payload := data[:4], data[4:]

	switch {
	case bytes.Equal(sel, notAuthorizedSelector):
		return sdkerrors.Wrap(oracle.ErrNotAuthorized, "contract rejected caller")

	case bytes.Equal(sel, scoreOutOfRangeSelector):
		if v, ok := unpackSingleInt(payload); ok {
			return sdkerrors.Wrapf(oracle.ErrScoreOutOfRange, "score %s outside accepted range", v)
		}
		return sdkerrors.Wrap(oracle.ErrScoreOutOfRange, "score outside accepted range")

	case bytes.Equal(sel, updateTooFrequentSelector):
		if v, ok := unpackSingleUint(payload); ok {
			return sdkerrors.Wrapf(oracle.ErrUpdateTooFrequent, "%s seconds until the next allowed write", v)
		}
		return sdkerrors.Wrap(oracle.ErrUpdateTooFrequent, "minimum update interval not elapsed")

	case bytes.Equal(sel, duplicateScoreSelector):
		if v, ok := unpackSingleInt(payload); ok {
			return sdkerrors.Wrapf(oracle.ErrDuplicateScore, "score %s is already stored", v)
		}
		return sdkerrors.Wrap(oracle.ErrDuplicateScore, "score is already stored")

	case bytes.Equal(sel, invalidThresholdsSelector):
		values, err := thresholdsReturns.Unpack(payload)
		if err == nil {
			return sdkerrors.Wrapf(oracle.ErrInvalidThresholds,
				"bullish %s must exceed bearish %s and both must be in range",
				values[0].(*big.Int), values[1].(*big.Int))
		}
		return sdkerrors.Wrap(oracle.ErrInvalidThresholds, "thresholds rejected")

	case bytes.Equal(sel, invalidWriterSelector):
		return sdkerrors.Wrap(oracle.ErrInvalidWriter, "writer address rejected")

	case bytes.Equal(sel, errorStringSelector):
		if values, err := revertStringArgs.Unpack(payload); err == nil {
			if msg, ok := values[0].(string); ok {
				return fmt.Errorf("execution reverted: %s", msg)
			}
		}
		return fmt.Errorf("execution reverted")

	case bytes.Equal(sel, panicSelector):
		if v, ok := unpackSingleUint(payload); ok {
			return fmt.Errorf("contract panicked with code %s", v)
		}
		return fmt.Errorf("contract panicked")
	}

	return nil
}

func unpackSingleInt(payload []byte) (*big.Int, bool) {
	values, err := abi.Arguments{{Type: int256Type}}.Unpack(payload)
	if err != nil {
		return nil, false
	}
	v, ok := values[0].(*big.Int)
	return v, ok
}

func unpackSingleUint(payload []byte) (*big.Int, bool) {
	values, err := abi.Arguments{{Type: uint256Type}}.Unpack(payload)
	if err != nil {
		return nil, false
	}
	v, ok := values[0].(*big.Int)
	return v, ok
}
