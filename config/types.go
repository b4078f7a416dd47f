package config

import "time"

type Config struct {
	// Log Config
	LogLevel   int    `json:"log_level"`   // e.g., 0 = debug, 1 = info, etc.
	LogFormat  string `json:"log_format"`  // "json" or "console"
	LogSampler bool   `json:"log_sampler"` // if true, samples logs (e.g., 1 in 5)

	// Bridge home directory (default: ~/.vibebridge)
	BridgeHome string `json:"bridge_home"`

	// Scoring source configuration
	SourceURL            string `json:"source_url"`             // Scoring source base URL (default: http://localhost:8000)
	SourceTimeoutSeconds int    `json:"source_timeout_seconds"` // Per-request fetch timeout (default: 15)
	MinPostCount         int    `json:"min_post_count"`         // Sample-size floor for a reading to be writable (default: 10)

	// Fetch retry policy
	FetchMaxAttempts        int `json:"fetch_max_attempts"`         // Total fetch attempts per cycle (default: 3)
	FetchBackoffBaseSeconds int `json:"fetch_backoff_base_seconds"` // Linear backoff base between attempts (default: 2)
	FetchBackoffMaxSeconds  int `json:"fetch_backoff_max_seconds"`  // Backoff cap (default: 30)

	// Cycle scheduling
	CycleIntervalSeconds     int `json:"cycle_interval_seconds"`      // Production tick interval, aligned with the oracle's min update interval (default: 60)
	CycleSafetyMarginSeconds int `json:"cycle_safety_margin_seconds"` // Extra wait between bounded-mode cycles (default: 2)
	DiagnosticCycles         int `json:"diagnostic_cycles"`           // Cycle count for bounded diagnostic runs (default: 3)

	// Ledger configuration
	LedgerRPCURLs             []string `json:"ledger_rpc_urls"`              // EVM RPC endpoints, tried in order (default: ["http://localhost:8545"])
	LedgerChainID             int64    `json:"ledger_chain_id"`              // Expected chain ID, verified at dial (default: 31337)
	OracleContractAddress     string   `json:"oracle_contract_address"`      // Deployed oracle contract address
	LedgerConfirmations       uint64   `json:"ledger_confirmations"`         // Blocks required on top of inclusion (default: 1)
	LedgerReadTimeoutSeconds  int      `json:"ledger_read_timeout_seconds"`  // Timeout for state reads (default: 10)
	LedgerWriteTimeoutSeconds int      `json:"ledger_write_timeout_seconds"` // Timeout for submit plus confirmation wait (default: 90)
	LedgerGasLimit            uint64   `json:"ledger_gas_limit"`             // Gas limit for score writes (default: 120000)

	// Writer credential sources. Only pointers live here; the secret
	// material itself comes from the environment or key files.
	WriterKeyEnvVar          string `json:"writer_key_env_var"`          // Env var holding the writer's hex private key (default: VIBEBRIDGE_WRITER_KEY)
	WriterKeystorePath       string `json:"writer_keystore_path"`        // Encrypted keystore file, used when the env var is unset
	KeystorePassphraseEnvVar string `json:"keystore_passphrase_env_var"` // Env var holding the keystore passphrase (default: VIBEBRIDGE_KEYSTORE_PASSPHRASE)
	KeystorePassphraseFile   string `json:"keystore_passphrase_file"`    // File holding the keystore passphrase, used when the env var is unset

	// Local bookkeeping database (default: <BridgeHome>/data/bridge.db)
	DatabasePath string `json:"database_path"`

	// Cycle record retention
	RecordCleanupIntervalSeconds int `json:"record_cleanup_interval_seconds"` // How often old cycle records are pruned (default: 21600)
	RecordRetentionSeconds       int `json:"record_retention_seconds"`        // Age past which cycle records are pruned (default: 1209600)

	// Query Server Config
	QueryServerPort int `json:"query_server_port"` // Port for HTTP query server (default: 8080)
}

// Duration accessors for the seconds-denominated fields.

func (c *Config) SourceTimeout() time.Duration {
	return time.Duration(c.SourceTimeoutSeconds) * time.Second
}

func (c *Config) FetchBackoffBase() time.Duration {
	return time.Duration(c.FetchBackoffBaseSeconds) * time.Second
}

func (c *Config) FetchBackoffMax() time.Duration {
	return time.Duration(c.FetchBackoffMaxSeconds) * time.Second
}

func (c *Config) CycleInterval() time.Duration {
	return time.Duration(c.CycleIntervalSeconds) * time.Second
}

func (c *Config) CycleSafetyMargin() time.Duration {
	return time.Duration(c.CycleSafetyMarginSeconds) * time.Second
}

func (c *Config) LedgerReadTimeout() time.Duration {
	return time.Duration(c.LedgerReadTimeoutSeconds) * time.Second
}

func (c *Config) LedgerWriteTimeout() time.Duration {
	return time.Duration(c.LedgerWriteTimeoutSeconds) * time.Second
}

func (c *Config) RecordCleanupInterval() time.Duration {
	return time.Duration(c.RecordCleanupIntervalSeconds) * time.Second
}

func (c *Config) RecordRetention() time.Duration {
	return time.Duration(c.RecordRetentionSeconds) * time.Second
}
