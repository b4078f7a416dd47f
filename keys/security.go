package keys

import (
	"fmt"
	"os"
)

// ValidateKeyFile checks that a credential file is a regular file readable
// only by its owner. Key material with group or world access is rejected
// rather than silently repaired, so the operator sees the misconfiguration.
func ValidateKeyFile(path string) error {
	if path == "" {
		return fmt.Errorf("credential file path is empty")
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("credential file does not exist: %s", path)
		}
		return fmt.Errorf("stat credential file: %w", err)
	}

	if !info.Mode().IsRegular() {
		return fmt.Errorf("credential path is not a regular file: %s", path)
	}

	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		return fmt.Errorf("credential file %s has permissions %s, expected 600 or stricter",
			path, perm.String())
	}

	return nil
}

// EnsureKeyDirectory creates the directory that holds credential files if it
// is missing and tightens its permissions to owner-only access.
func EnsureKeyDirectory(path string) error {
	if path == "" {
		return fmt.Errorf("credential directory path is empty")
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		if err := os.MkdirAll(path, 0o700); err != nil {
			return fmt.Errorf("create credential directory: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat credential directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("credential path is not a directory: %s", path)
	}

	if perm := info.Mode().Perm(); perm != 0o700 {
		if err := os.Chmod(path, 0o700); err != nil {
			return fmt.Errorf("tighten credential directory permissions: %w", err)
		}
	}

	return nil
}
