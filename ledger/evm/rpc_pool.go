package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"
)

// RPCPool round-robins ledger RPC calls across the configured endpoints and
// fails over to the next endpoint on transport errors. Contract reverts are
// deterministic answers, not endpoint failures, and are returned as-is.
type RPCPool struct {
	clients []*ethclient.Client
	index   uint64
	mu      sync.RWMutex
	logger  zerolog.Logger
}

// NewRPCPool dials every URL and verifies its chain ID. Endpoints that
// cannot be dialed or report the wrong chain are dropped; a pool with zero
// usable endpoints is an error.
func NewRPCPool(rpcURLs []string, expectedChainID int64, logger zerolog.Logger) (*RPCPool, error) {
	if len(rpcURLs) == 0 {
		return nil, fmt.Errorf("no RPC URLs provided")
	}

	log := logger.With().Str("component", "ledger_rpc_pool").Logger()
	clients := make([]*ethclient.Client, 0, len(rpcURLs))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, url := range rpcURLs {
		client, err := ethclient.DialContext(ctx, url)
		if err != nil {
			log.Warn().Err(err).Str("url", url).Msg("failed to connect to RPC endpoint, skipping")
			continue
		}

		clientChainID, err := client.ChainID(ctx)
		if err != nil {
			// Verification being slow or unavailable is not grounds to
			// discard the endpoint at startup.
			log.Warn().
				Err(err).
				Str("url", url).
				Int64("expected_chain_id", expectedChainID).
				Msg("failed to verify chain ID, proceeding with endpoint anyway")
			clients = append(clients, client)
			continue
		}

		if clientChainID.Int64() != expectedChainID {
			client.Close()
			log.Warn().
				Str("url", url).
				Int64("expected_chain_id", expectedChainID).
				Int64("actual_chain_id", clientChainID.Int64()).
				Msg("chain ID mismatch, closing endpoint")
			continue
		}

		clients = append(clients, client)
		log.Info().Str("url", url).Msg("connected to RPC endpoint")
	}

	if len(clients) == 0 {
		return nil, fmt.Errorf("failed to connect to any valid RPC endpoints")
	}

	return &RPCPool{
		clients: clients,
		logger:  log,
	}, nil
}

// executeWithFailover runs fn against pool members round-robin until one
// succeeds, the error is a contract revert, or every endpoint was tried.
func (p *RPCPool) executeWithFailover(ctx context.Context, operation string, fn func(*ethclient.Client) error) error {
	p.mu.RLock()
	clients := p.clients
	p.mu.RUnlock()

	if len(clients) == 0 {
		return fmt.Errorf("no RPC clients available for %s", operation)
	}

	maxAttempts := len(clients)
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		index := atomic.AddUint64(&p.index, 1) - 1
		client := clients[index%uint64(len(clients))]
		if client == nil {
			continue
		}

		err := fn(client)
		if err == nil {
			return nil
		}
		if revertBytes(err) != nil {
			// Every endpoint would give the same answer.
			return err
		}

		lastErr = err
		p.logger.Warn().
			Str("operation", operation).
			Int("attempt", attempt+1).
			Err(err).
			Msg("operation failed, trying next endpoint")
	}

	return fmt.Errorf("operation %s failed after trying %d endpoints: %w",
		operation, maxAttempts, lastErr)
}

// CallContract performs an eth_call against the latest block.
func (p *RPCPool) CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
	var out []byte
	err := p.executeWithFailover(ctx, "call_contract", func(client *ethclient.Client) error {
		var innerErr error
		out, innerErr = client.CallContract(ctx, msg, nil)
		return innerErr
	})
	return out, err
}

// PendingNonceAt returns the account's next nonce including pending txs.
func (p *RPCPool) PendingNonceAt(ctx context.Context, account ethcommon.Address) (uint64, error) {
	var nonce uint64
	err := p.executeWithFailover(ctx, "pending_nonce", func(client *ethclient.Client) error {
		var innerErr error
		nonce, innerErr = client.PendingNonceAt(ctx, account)
		return innerErr
	})
	return nonce, err
}

// SuggestGasPrice fetches the current gas price.
func (p *RPCPool) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	var gasPrice *big.Int
	err := p.executeWithFailover(ctx, "suggest_gas_price", func(client *ethclient.Client) error {
		var innerErr error
		gasPrice, innerErr = client.SuggestGasPrice(ctx)
		return innerErr
	})
	return gasPrice, err
}

// SendTransaction broadcasts a signed transaction.
func (p *RPCPool) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	return p.executeWithFailover(ctx, "send_transaction", func(client *ethclient.Client) error {
		return client.SendTransaction(ctx, tx)
	})
}

// TransactionReceipt fetches a transaction receipt.
func (p *RPCPool) TransactionReceipt(ctx context.Context, txHash ethcommon.Hash) (*types.Receipt, error) {
	var receipt *types.Receipt
	err := p.executeWithFailover(ctx, "transaction_receipt", func(client *ethclient.Client) error {
		var innerErr error
		receipt, innerErr = client.TransactionReceipt(ctx, txHash)
		return innerErr
	})
	return receipt, err
}

// BlockNumber returns the latest block number.
func (p *RPCPool) BlockNumber(ctx context.Context) (uint64, error) {
	var blockNum uint64
	err := p.executeWithFailover(ctx, "block_number", func(client *ethclient.Client) error {
		var innerErr error
		blockNum, innerErr = client.BlockNumber(ctx)
		return innerErr
	})
	return blockNum, err
}

// IsHealthy reports whether any endpoint in the pool answers.
func (p *RPCPool) IsHealthy(ctx context.Context) bool {
	p.mu.RLock()
	hasClients := len(p.clients) > 0
	p.mu.RUnlock()

	if !hasClients {
		return false
	}
	_, err := p.BlockNumber(ctx)
	return err == nil
}

// Close closes all RPC connections.
func (p *RPCPool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, client := range p.clients {
		if client != nil {
			client.Close()
		}
	}
	p.clients = nil
}

// dataError is the shape of JSON-RPC errors that carry revert data.
type dataError interface {
	ErrorData() interface{}
}

// revertBytes extracts raw revert data from an RPC error, or nil when the
// error carries none.
func revertBytes(err error) []byte {
	var de dataError
	if !errors.As(err, &de) {
		return nil
	}
	encoded, ok := de.ErrorData().(string)
	if !ok {
		return nil
	}
	data, decodeErr := hexutil.Decode(encoded)
	if decodeErr != nil {
		return nil
	}
	return data
}
