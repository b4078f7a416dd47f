package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// BridgeDir is the hidden directory under $HOME used when bridge_home
	// is not configured.
	BridgeDir = ".vibebridge"

	configSubdir     = "config"
	configFileName   = "vibebridge_config.json"
	dataSubdir       = "data"
	databaseFileName = "bridge.db"
)

// DefaultBridgeHome is the fallback bridge home directory, ~/.vibebridge.
var DefaultBridgeHome = os.ExpandEnv("$HOME/") + BridgeDir

//go:embed default_config.json
var defaultConfigJSON []byte

// Home returns the bridge home directory, falling back to DefaultBridgeHome
// when bridge_home is unset.
func (c *Config) Home() string {
	if c.BridgeHome != "" {
		return c.BridgeHome
	}
	return DefaultBridgeHome
}

// DatabaseLocation resolves the bookkeeping database into a directory and a
// filename, defaulting to <home>/data/bridge.db.
func (c *Config) DatabaseLocation() (dir, file string) {
	if c.DatabasePath != "" {
		return filepath.Dir(c.DatabasePath), filepath.Base(c.DatabasePath)
	}
	return filepath.Join(c.Home(), dataSubdir), databaseFileName
}

func validateConfig(cfg *Config) error {
	// Validate log level
	if cfg.LogLevel < 0 || cfg.LogLevel > 5 {
		return fmt.Errorf("log level must be between 0 and 5")
	}

	// Set default log format, then validate
	if cfg.LogFormat == "" {
		cfg.LogFormat = "console"
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "console" {
		return fmt.Errorf("log format must be 'json' or 'console'")
	}

	// Set defaults for the scoring source
	if cfg.SourceURL == "" {
		cfg.SourceURL = "http://localhost:8000"
	}
	if cfg.SourceTimeoutSeconds == 0 {
		cfg.SourceTimeoutSeconds = 15
	}
	if cfg.MinPostCount == 0 {
		cfg.MinPostCount = 10
	}

	// Set defaults for the fetch retry policy
	if cfg.FetchMaxAttempts == 0 {
		cfg.FetchMaxAttempts = 3
	}
	if cfg.FetchBackoffBaseSeconds == 0 {
		cfg.FetchBackoffBaseSeconds = 2
	}
	if cfg.FetchBackoffMaxSeconds == 0 {
		cfg.FetchBackoffMaxSeconds = 30
	}

	// Set defaults for cycle scheduling
	if cfg.CycleIntervalSeconds == 0 {
		cfg.CycleIntervalSeconds = 60
	}
	if cfg.CycleSafetyMarginSeconds == 0 {
		cfg.CycleSafetyMarginSeconds = 2
	}
	if cfg.DiagnosticCycles == 0 {
		cfg.DiagnosticCycles = 3
	}

	// Set defaults for the ledger
	if len(cfg.LedgerRPCURLs) == 0 {
		cfg.LedgerRPCURLs = []string{"http://localhost:8545"}
	}
	if cfg.LedgerChainID == 0 {
		cfg.LedgerChainID = 31337
	}
	if cfg.LedgerConfirmations == 0 {
		cfg.LedgerConfirmations = 1
	}
	if cfg.LedgerReadTimeoutSeconds == 0 {
		cfg.LedgerReadTimeoutSeconds = 10
	}
	if cfg.LedgerWriteTimeoutSeconds == 0 {
		cfg.LedgerWriteTimeoutSeconds = 90
	}
	if cfg.LedgerGasLimit == 0 {
		cfg.LedgerGasLimit = 120000
	}

	// Set defaults for credential sourcing
	if cfg.WriterKeyEnvVar == "" {
		cfg.WriterKeyEnvVar = "VIBEBRIDGE_WRITER_KEY"
	}
	if cfg.KeystorePassphraseEnvVar == "" {
		cfg.KeystorePassphraseEnvVar = "VIBEBRIDGE_KEYSTORE_PASSPHRASE"
	}

	// Set defaults for cycle record retention
	if cfg.RecordCleanupIntervalSeconds == 0 {
		cfg.RecordCleanupIntervalSeconds = 21600
	}
	if cfg.RecordRetentionSeconds == 0 {
		cfg.RecordRetentionSeconds = 1209600
	}

	// Set defaults for the query server
	if cfg.QueryServerPort == 0 {
		cfg.QueryServerPort = 8080
	}

	// Negative timing values make no sense anywhere
	if cfg.SourceTimeoutSeconds < 0 || cfg.FetchBackoffBaseSeconds < 0 ||
		cfg.FetchBackoffMaxSeconds < 0 || cfg.CycleIntervalSeconds < 0 ||
		cfg.CycleSafetyMarginSeconds < 0 || cfg.LedgerReadTimeoutSeconds < 0 ||
		cfg.LedgerWriteTimeoutSeconds < 0 || cfg.RecordCleanupIntervalSeconds < 0 ||
		cfg.RecordRetentionSeconds < 0 {
		return fmt.Errorf("timing values must not be negative")
	}
	if cfg.FetchMaxAttempts < 0 || cfg.DiagnosticCycles < 0 || cfg.MinPostCount < 0 {
		return fmt.Errorf("count values must not be negative")
	}

	return nil
}

// Validate applies defaults to cfg and reports whether the result is usable.
func Validate(cfg *Config) error {
	return validateConfig(cfg)
}

// Save writes the given config to <basePath>/config/vibebridge_config.json.
func Save(cfg *Config, basePath string) error {
	if err := validateConfig(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	configDir := filepath.Join(basePath, configSubdir)
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configFile := filepath.Join(configDir, configFileName)
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configFile, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Load reads and returns the config from <basePath>/config/vibebridge_config.json.
func Load(basePath string) (Config, error) {
	configFile := filepath.Join(basePath, configSubdir, configFileName)
	data, err := os.ReadFile(filepath.Clean(configFile))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// LoadDefaultConfig loads the default configuration from embedded JSON
func LoadDefaultConfig() (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(defaultConfigJSON, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal default config: %w", err)
	}
	return &cfg, nil
}

// FilePath returns where Load and Save expect the config file under basePath.
func FilePath(basePath string) string {
	return filepath.Join(basePath, configSubdir, configFileName)
}
