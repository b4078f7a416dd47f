// Package core assembles the bridge daemon: configuration, writer
// credentials, the ledger client, the cycle engine and scheduler, record
// cleanup, and the status server.
package core

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/vibeoracle/bridge-node/api"
	"github.com/vibeoracle/bridge-node/bridge"
	"github.com/vibeoracle/bridge-node/config"
	"github.com/vibeoracle/bridge-node/db"
	bridgeerrors "github.com/vibeoracle/bridge-node/errors"
	"github.com/vibeoracle/bridge-node/keys"
	"github.com/vibeoracle/bridge-node/ledger"
	"github.com/vibeoracle/bridge-node/ledger/evm"
	"github.com/vibeoracle/bridge-node/ledger/memory"
	"github.com/vibeoracle/bridge-node/retry"
	"github.com/vibeoracle/bridge-node/source"
)

// Mode selects which ledger the daemon writes to.
type Mode string

const (
	// ModeLive signs real transactions against the configured EVM chain.
	ModeLive Mode = "live"
	// ModeDryRun runs the full cycle against an in-process oracle. No
	// writer key is required and nothing leaves the process.
	ModeDryRun Mode = "dry-run"
)

// dryRunWriter is the identity the in-process oracle authorizes.
const dryRunWriter = "dry-run-writer"

// BridgeClient owns every long-lived component of the daemon and runs them
// as one unit.
type BridgeClient struct {
	log  zerolog.Logger
	cfg  *config.Config
	mode Mode

	database  *db.DB
	ledger    ledger.Client
	engine    *bridge.Engine
	scheduler *bridge.Scheduler
	cleaner   *db.RecordCleaner
	server    *api.Server
}

// NewBridgeClient wires the daemon from configuration. In live mode the
// writer key is loaded and the EVM ledger dialed; failure of either is
// fatal. Dry runs substitute the in-process ledger and an in-memory
// bookkeeping database, leaving no files behind.
func NewBridgeClient(cfg *config.Config, mode Mode, clock clockwork.Clock, log zerolog.Logger) (*BridgeClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if mode != ModeLive && mode != ModeDryRun {
		return nil, fmt.Errorf("unknown mode %q", mode)
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	var (
		database *db.DB
		err      error
	)
	if mode == ModeDryRun {
		database, err = db.OpenInMemoryDB(true)
	} else {
		dir, file := cfg.DatabaseLocation()
		database, err = db.OpenFileDB(dir, file, true)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open bookkeeping database: %w", err)
	}

	ledgerClient, err := buildLedger(cfg, mode, clock, log)
	if err != nil {
		database.Close()
		return nil, err
	}

	scoreSource := source.NewClient(cfg.SourceURL, cfg.SourceTimeout(), log)

	engine, err := bridge.NewEngine(bridge.Options{
		Source:   scoreSource,
		Ledger:   ledgerClient,
		Database: database,
		FetchPolicy: retry.Policy{
			MaxAttempts: cfg.FetchMaxAttempts,
			Backoff:     retry.Linear(cfg.FetchBackoffBase(), cfg.FetchBackoffMax()),
			Retryable:   bridgeerrors.IsRetryable,
		},
		MinPostCount: cfg.MinPostCount,
		ReadTimeout:  cfg.LedgerReadTimeout(),
		WriteTimeout: cfg.LedgerWriteTimeout(),
		Clock:        clock,
		Logger:       log,
	})
	if err != nil {
		ledgerClient.Close()
		database.Close()
		return nil, fmt.Errorf("failed to build cycle engine: %w", err)
	}

	return &BridgeClient{
		log:       log.With().Str("component", "bridge_client").Logger(),
		cfg:       cfg,
		mode:      mode,
		database:  database,
		ledger:    ledgerClient,
		engine:    engine,
		scheduler: bridge.NewScheduler(engine, cfg.CycleInterval(), cfg.CycleSafetyMargin(), clock, log),
		cleaner:   db.NewRecordCleaner(database, cfg.RecordCleanupInterval(), cfg.RecordRetention(), log),
		server: api.NewServer(api.Options{
			Port:          cfg.QueryServerPort,
			Mode:          string(mode),
			WriterAddress: ledgerClient.WriterAddress(),
			Engine:        engine,
			Ledger:        ledgerClient,
			Store:         database,
		}, log),
	}, nil
}

func buildLedger(cfg *config.Config, mode Mode, clock clockwork.Clock, log zerolog.Logger) (ledger.Client, error) {
	if mode == ModeDryRun {
		return memory.New(dryRunWriter, clock)
	}

	writerKey, err := keys.Load(keys.LoadOptions{
		KeyEnvVar:          cfg.WriterKeyEnvVar,
		KeystorePath:       cfg.WriterKeystorePath,
		PassphraseEnvVar:   cfg.KeystorePassphraseEnvVar,
		PassphraseFilePath: cfg.KeystorePassphraseFile,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load writer key: %w", err)
	}

	return evm.NewClient(evm.Config{
		RPCURLs:         cfg.LedgerRPCURLs,
		ChainID:         cfg.LedgerChainID,
		ContractAddress: cfg.OracleContractAddress,
		Confirmations:   cfg.LedgerConfirmations,
		GasLimit:        cfg.LedgerGasLimit,
	}, writerKey, clock, log)
}

// Start runs the daemon until ctx is cancelled, then tears everything down
// in dependency order. The startup check must pass before any cycle runs.
func (c *BridgeClient) Start(ctx context.Context) error {
	c.log.Info().
		Str("mode", string(c.mode)).
		Str("writer", c.ledger.WriterAddress()).
		Msg("🚀 Starting sentiment bridge...")

	validator := NewStartupValidator(c.log, c.ledger)
	if _, err := validator.ValidateStartupRequirements(ctx); err != nil {
		c.Close()
		return fmt.Errorf("startup validation failed: %w", err)
	}

	if err := c.server.Start(); err != nil {
		c.Close()
		return fmt.Errorf("failed to start status server: %w", err)
	}
	if err := c.cleaner.Start(ctx); err != nil {
		c.log.Warn().Err(err).Msg("Record cleaner did not start")
	}
	if err := c.scheduler.Start(ctx); err != nil {
		c.server.Stop()
		c.Close()
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	c.log.Info().Msg("✅ Initialization complete. Entering main loop...")
	<-ctx.Done()

	c.log.Info().Msg("🛑 Shutting down sentiment bridge...")
	c.scheduler.Stop()
	c.cleaner.Stop()
	if err := c.server.Stop(); err != nil {
		c.log.Warn().Err(err).Msg("Status server shutdown failed")
	}
	return c.Close()
}

// RunCycles executes a bounded diagnostic run and returns its summary. The
// status server stays down; only the cycle pipeline is exercised. Callers
// still own Close.
func (c *BridgeClient) RunCycles(ctx context.Context, cycles int) (*bridge.RunSummary, error) {
	if cycles <= 0 {
		cycles = c.cfg.DiagnosticCycles
	}
	return c.scheduler.RunN(ctx, cycles)
}

// Close releases the ledger connection and the bookkeeping database. Start
// calls it during shutdown; diagnostic callers invoke it directly.
func (c *BridgeClient) Close() error {
	var firstErr error
	if err := c.ledger.Close(); err != nil {
		firstErr = err
		c.log.Warn().Err(err).Msg("Ledger close failed")
	}
	if err := c.database.Close(); err != nil {
		if firstErr == nil {
			firstErr = err
		}
		c.log.Warn().Err(err).Msg("Database close failed")
	}
	return firstErr
}
