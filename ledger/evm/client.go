// Package evm implements the ledger client against a deployed
// SentimentOracle contract on an EVM chain. Writes are legacy EIP-155
// transactions signed locally with the writer key; a preflight eth_call
// surfaces guard rejections before any gas is spent.
package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/vibeoracle/bridge-node/keys"
	"github.com/vibeoracle/bridge-node/ledger"
)

const (
	// DefaultGasLimit covers an updateSentiment call with margin; score
	// writes touch three storage slots and emit two events.
	DefaultGasLimit = 120000

	defaultConfirmPollInterval = 2 * time.Second
)

// Config describes the oracle deployment the client talks to.
type Config struct {
	RPCURLs         []string
	ChainID         int64
	ContractAddress string
	Confirmations   uint64        // blocks on top of inclusion, 0 means 1
	GasLimit        uint64        // 0 means DefaultGasLimit
	ConfirmPoll     time.Duration // receipt poll cadence, 0 means 2s
}

// Client implements ledger.Client against the oracle contract.
type Client struct {
	pool          *RPCPool
	contract      ethcommon.Address
	chainID       *big.Int
	key           *keys.WriterKey
	confirmations uint64
	gasLimit      uint64
	pollInterval  time.Duration
	clock         clockwork.Clock
	logger        zerolog.Logger
}

var _ ledger.Client = (*Client)(nil)

// NewClient dials the configured endpoints and binds the contract.
func NewClient(cfg Config, key *keys.WriterKey, clock clockwork.Clock, logger zerolog.Logger) (*Client, error) {
	if key == nil {
		return nil, fmt.Errorf("writer key is required")
	}
	if cfg.ContractAddress == "" {
		return nil, fmt.Errorf("oracle contract address is required")
	}
	if !ethcommon.IsHexAddress(cfg.ContractAddress) {
		return nil, fmt.Errorf("invalid oracle contract address: %s", cfg.ContractAddress)
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	log := logger.With().Str("component", "evm_ledger").Logger()

	pool, err := NewRPCPool(cfg.RPCURLs, cfg.ChainID, logger)
	if err != nil {
		return nil, err
	}

	confirmations := cfg.Confirmations
	if confirmations == 0 {
		confirmations = 1
	}
	gasLimit := cfg.GasLimit
	if gasLimit == 0 {
		gasLimit = DefaultGasLimit
	}
	pollInterval := cfg.ConfirmPoll
	if pollInterval <= 0 {
		pollInterval = defaultConfirmPollInterval
	}

	return &Client{
		pool:          pool,
		contract:      ethcommon.HexToAddress(cfg.ContractAddress),
		chainID:       big.NewInt(cfg.ChainID),
		key:           key,
		confirmations: confirmations,
		gasLimit:      gasLimit,
		pollInterval:  pollInterval,
		clock:         clock,
		logger:        log,
	}, nil
}

// ReadScore returns the score currently stored in the contract.
func (c *Client) ReadScore(ctx context.Context) (int, error) {
	out, err := c.call(ctx, getSentimentSelector)
	if err != nil {
		return 0, fmt.Errorf("failed to read sentiment: %w", err)
	}
	score, _, err := unpackSentiment(out)
	return score, err
}

// ReadState returns the full oracle view, combining the state call with the
// threshold call so the engine can classify signals.
func (c *Client) ReadState(ctx context.Context) (*ledger.OracleView, error) {
	stateOut, err := c.call(ctx, getOracleStateSelector)
	if err != nil {
		return nil, fmt.Errorf("failed to read oracle state: %w", err)
	}
	score, updated, isBullish, isBearish, err := unpackOracleState(stateOut)
	if err != nil {
		return nil, err
	}

	thresholdsOut, err := c.call(ctx, getThresholdsSelector)
	if err != nil {
		return nil, fmt.Errorf("failed to read thresholds: %w", err)
	}
	bullish, bearish, err := unpackThresholds(thresholdsOut)
	if err != nil {
		return nil, err
	}

	return &ledger.OracleView{
		Score:            score,
		LastUpdated:      updated,
		IsBullish:        isBullish,
		IsBearish:        isBearish,
		BullishThreshold: bullish,
		BearishThreshold: bearish,
	}, nil
}

// SubmitScore writes the score to the contract and waits for confirmation.
// Guard rejections come back as the oracle's typed errors, caught by the
// preflight call before a transaction is ever broadcast.
func (c *Client) SubmitScore(ctx context.Context, score int) (*ledger.TxReceipt, error) {
	data, err := packUpdateSentiment(score)
	if err != nil {
		return nil, err
	}

	// Preflight: simulate the write so guard rejections cost nothing.
	if _, err := c.call(ctx, data); err != nil {
		return nil, fmt.Errorf("preflight rejected score write: %w", err)
	}

	nonce, err := c.pool.PendingNonceAt(ctx, c.key.Address())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch nonce: %w", err)
	}
	gasPrice, err := c.pool.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch gas price: %w", err)
	}

	tx := types.NewTransaction(nonce, c.contract, big.NewInt(0), c.gasLimit, gasPrice, data)
	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(c.chainID), c.key.PrivateKey())
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	txHash := signedTx.Hash()
	if err := c.pool.SendTransaction(ctx, signedTx); err != nil {
		return nil, c.wrapRevert(fmt.Errorf("failed to broadcast transaction: %w", err))
	}

	c.logger.Info().
		Str("tx_hash", txHash.Hex()).
		Int("score", score).
		Uint64("nonce", nonce).
		Msg("score write broadcast")

	receipt, err := c.waitForConfirmation(ctx, txHash, data)
	if err != nil {
		return nil, err
	}

	return &ledger.TxReceipt{
		TxHash:      txHash.Hex(),
		BlockNumber: receipt.BlockNumber.Uint64(),
		GasUsed:     receipt.GasUsed,
		Confirmed:   true,
	}, nil
}

// waitForConfirmation polls for the receipt until the transaction has the
// required number of confirmations or ctx expires.
func (c *Client) waitForConfirmation(ctx context.Context, txHash ethcommon.Hash, calldata []byte) (*types.Receipt, error) {
	for {
		receipt, err := c.pool.TransactionReceipt(ctx, txHash)
		if err == nil && receipt != nil {
			if receipt.Status == types.ReceiptStatusFailed {
				return nil, c.revertReason(ctx, txHash, calldata)
			}

			latest, blockErr := c.pool.BlockNumber(ctx)
			if blockErr == nil && latest >= receipt.BlockNumber.Uint64() {
				confs := latest - receipt.BlockNumber.Uint64() + 1
				if confs >= c.confirmations {
					c.logger.Debug().
						Str("tx_hash", txHash.Hex()).
						Uint64("confirmations", confs).
						Msg("transaction confirmed")
					return receipt, nil
				}
			}
		} else if err != nil && !isNotFound(err) {
			c.logger.Warn().Err(err).Str("tx_hash", txHash.Hex()).Msg("receipt poll failed")
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("timed out waiting for confirmation of %s: %w", txHash.Hex(), ctx.Err())
		case <-c.clock.After(c.pollInterval):
		}
	}
}

// revertReason re-simulates a reverted write to recover the guard error.
// Rate-limit races land here: the preflight passed but another write slipped
// in between simulation and inclusion.
func (c *Client) revertReason(ctx context.Context, txHash ethcommon.Hash, calldata []byte) error {
	if _, err := c.call(ctx, calldata); err != nil {
		return fmt.Errorf("transaction %s reverted: %w", txHash.Hex(), err)
	}
	return fmt.Errorf("transaction %s reverted on chain", txHash.Hex())
}

// WriterAddress returns the writer identity in checksum form.
func (c *Client) WriterAddress() string {
	return c.key.AddressHex()
}

// Close releases the RPC connections.
func (c *Client) Close() error {
	c.pool.Close()
	return nil
}

// call performs an eth_call from the writer address, translating revert
// data into typed guard errors.
func (c *Client) call(ctx context.Context, data []byte) ([]byte, error) {
	msg := ethereum.CallMsg{
		From: c.key.Address(),
		To:   &c.contract,
		Data: data,
	}
	out, err := c.pool.CallContract(ctx, msg)
	if err != nil {
		return nil, c.wrapRevert(err)
	}
	return out, nil
}

// wrapRevert swaps an RPC error for the decoded guard error when the revert
// data identifies one.
func (c *Client) wrapRevert(err error) error {
	if data := revertBytes(err); data != nil {
		if decoded := decodeRevert(data); decoded != nil {
			return decoded
		}
	}
	return err
}

func isNotFound(err error) bool {
	return errors.Is(err, ethereum.NotFound)
}
