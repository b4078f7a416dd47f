package errors

import (
	"errors"
	"strings"
)

// WrapBridgeError wraps an error as a BridgeError if it isn't already one
func WrapBridgeError(err error, code ErrorCode, component, message string) *BridgeError {
	if err == nil {
		return nil
	}

	var bridgeErr *BridgeError
	if errors.As(err, &bridgeErr) {
		bridgeErr.Context["wrapped_message"] = message
		if component != "" && bridgeErr.Component == "" {
			bridgeErr.Component = component
		}
		return bridgeErr
	}

	return NewBridgeError(code, component, message, err)
}

// Is checks if an error is of a specific type
func Is(err error, target error) bool {
	return errors.Is(err, target)
}

// As checks if an error can be assigned to a target type
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// IsBridgeError checks if an error is a BridgeError with a specific code
func IsBridgeError(err error, code ErrorCode) bool {
	var bridgeErr *BridgeError
	if errors.As(err, &bridgeErr) {
		return bridgeErr.Code == code
	}
	return false
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var bridgeErr *BridgeError
	if errors.As(err, &bridgeErr) {
		return bridgeErr.IsRetryable()
	}

	// Check for common retryable transport error patterns
	errStr := strings.ToLower(err.Error())
	retryablePatterns := []string{
		"connection refused",
		"connection reset",
		"timeout",
		"temporary failure",
		"too many requests",
		"rate limit",
	}

	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}

// GetSeverity returns the severity of an error
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityInfo
	}

	var bridgeErr *BridgeError
	if errors.As(err, &bridgeErr) {
		return bridgeErr.Severity
	}

	errStr := strings.ToLower(err.Error())
	if strings.Contains(errStr, "panic") || strings.Contains(errStr, "fatal") {
		return SeverityCritical
	}
	if strings.Contains(errStr, "failed") || strings.Contains(errStr, "error") {
		return SeverityHigh
	}
	if strings.Contains(errStr, "warning") {
		return SeverityMedium
	}

	return SeverityLow
}
