// Package keys loads and guards the bridge's writer credential: the ECDSA
// key whose address is the oracle program's writer identity. A failure to
// establish the credential at process start is the one error the bridge
// treats as fatal.
package keys

import (
	"crypto/ecdsa"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rs/zerolog"
)

// WriterKey is the loaded signing credential.
type WriterKey struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

// PrivateKey returns the ECDSA key used for transaction signing.
func (k *WriterKey) PrivateKey() *ecdsa.PrivateKey {
	return k.privateKey
}

// Address returns the writer identity derived from the key.
func (k *WriterKey) Address() common.Address {
	return k.address
}

// AddressHex returns the writer identity in EIP-55 checksum form.
func (k *WriterKey) AddressHex() string {
	return k.address.Hex()
}

// FromHex parses a hex-encoded private key, with or without a 0x prefix.
func FromHex(hexKey string) (*WriterKey, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	if trimmed == "" {
		return nil, fmt.Errorf("private key is empty")
	}
	privateKey, err := crypto.HexToECDSA(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return &WriterKey{
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(privateKey.PublicKey),
	}, nil
}

// FromKeystore decrypts an encrypted keystore file with the passphrase.
func FromKeystore(path, passphrase string) (*WriterKey, error) {
	if err := ValidateKeyFile(path); err != nil {
		return nil, err
	}
	encrypted, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keystore file: %w", err)
	}
	key, err := keystore.DecryptKey(encrypted, passphrase)
	if err != nil {
		return nil, fmt.Errorf("decrypt keystore file: %w", err)
	}
	return &WriterKey{
		privateKey: key.PrivateKey,
		address:    crypto.PubkeyToAddress(key.PrivateKey.PublicKey),
	}, nil
}

// LoadOptions names where the credential may come from. The raw env var wins
// over the keystore; the passphrase env var wins over the passphrase file.
type LoadOptions struct {
	KeyEnvVar          string
	KeystorePath       string
	PassphraseEnvVar   string
	PassphraseFilePath string
}

// Load resolves the writer credential from the configured sources.
func Load(opts LoadOptions, log zerolog.Logger) (*WriterKey, error) {
	logger := log.With().Str("component", "keys").Logger()

	if opts.KeyEnvVar != "" {
		if raw := os.Getenv(opts.KeyEnvVar); raw != "" {
			key, err := FromHex(raw)
			if err != nil {
				return nil, fmt.Errorf("load writer key from env %s: %w", opts.KeyEnvVar, err)
			}
			logger.Info().
				Str("writer", key.AddressHex()).
				Str("source", "env").
				Msg("writer credential loaded")
			return key, nil
		}
	}

	if opts.KeystorePath != "" {
		passphrase, err := resolvePassphrase(opts)
		if err != nil {
			return nil, err
		}
		key, err := FromKeystore(opts.KeystorePath, passphrase)
		if err != nil {
			return nil, fmt.Errorf("load writer key from keystore %s: %w", opts.KeystorePath, err)
		}
		logger.Info().
			Str("writer", key.AddressHex()).
			Str("source", "keystore").
			Msg("writer credential loaded")
		return key, nil
	}

	return nil, fmt.Errorf("no writer credential configured: set %s or a keystore path",
		envVarName(opts.KeyEnvVar))
}

func resolvePassphrase(opts LoadOptions) (string, error) {
	if opts.PassphraseEnvVar != "" {
		if passphrase := os.Getenv(opts.PassphraseEnvVar); passphrase != "" {
			return passphrase, nil
		}
	}
	if opts.PassphraseFilePath != "" {
		if err := ValidateKeyFile(opts.PassphraseFilePath); err != nil {
			return "", err
		}
		data, err := os.ReadFile(opts.PassphraseFilePath)
		if err != nil {
			return "", fmt.Errorf("read passphrase file: %w", err)
		}
		passphrase := strings.TrimSpace(string(data))
		if passphrase == "" {
			return "", fmt.Errorf("passphrase file %s is empty", opts.PassphraseFilePath)
		}
		return passphrase, nil
	}
	return "", fmt.Errorf("keystore passphrase not provided: set %s or a passphrase file",
		envVarName(opts.PassphraseEnvVar))
}

func envVarName(name string) string {
	if name == "" {
		return "the credential env var"
	}
	return name
}
