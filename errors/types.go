package errors

import (
	"fmt"
)

// ErrorCode represents different categories of bridge errors
type ErrorCode string

const (
	// ErrCodeFetch indicates scoring-source fetch errors (network, timeout, non-2xx)
	ErrCodeFetch ErrorCode = "FETCH"

	// ErrCodeValidation indicates reading validation errors
	ErrCodeValidation ErrorCode = "VALIDATION"

	// ErrCodeLedgerRead indicates ledger state read errors
	ErrCodeLedgerRead ErrorCode = "LEDGER_READ"

	// ErrCodeLedgerWrite indicates ledger submission or confirmation errors
	ErrCodeLedgerWrite ErrorCode = "LEDGER_WRITE"

	// ErrCodeGuardRejected indicates a write refused by an on-chain guard
	ErrCodeGuardRejected ErrorCode = "GUARD_REJECTED"

	// ErrCodeDatabase indicates local bookkeeping database errors
	ErrCodeDatabase ErrorCode = "DATABASE"

	// ErrCodeConfig indicates configuration errors
	ErrCodeConfig ErrorCode = "CONFIG"

	// ErrCodeCredential indicates writer credential errors
	ErrCodeCredential ErrorCode = "CREDENTIAL"

	// ErrCodeTimeout indicates timeout errors
	ErrCodeTimeout ErrorCode = "TIMEOUT"

	// ErrCodeInternal indicates internal system errors
	ErrCodeInternal ErrorCode = "INTERNAL"
)

// Severity represents the severity level of an error
type Severity string

const (
	// SeverityCritical indicates critical errors that require immediate attention
	SeverityCritical Severity = "CRITICAL"

	// SeverityHigh indicates high priority errors
	SeverityHigh Severity = "HIGH"

	// SeverityMedium indicates medium priority errors
	SeverityMedium Severity = "MEDIUM"

	// SeverityLow indicates low priority errors
	SeverityLow Severity = "LOW"

	// SeverityInfo indicates informational errors
	SeverityInfo Severity = "INFO"
)

// BridgeError represents an error raised by one of the bridge's components
type BridgeError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Component string                 `json:"component,omitempty"`
	Severity  Severity               `json:"severity"`
	Cause     error                  `json:"-"`
	Context   map[string]interface{} `json:"context,omitempty"`
}

// NewBridgeError creates a new BridgeError
func NewBridgeError(code ErrorCode, component, message string, cause error) *BridgeError {
	return &BridgeError{
		Code:      code,
		Message:   message,
		Component: component,
		Severity:  determineSeverity(code),
		Cause:     cause,
		Context:   make(map[string]interface{}),
	}
}

// Error implements the error interface
func (e *BridgeError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("[%s:%s] %s: %s", e.Component, e.Code, e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Severity, e.Message)
}

// Unwrap returns the underlying cause
func (e *BridgeError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *BridgeError) WithContext(key string, value interface{}) *BridgeError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithSeverity overrides the default severity
func (e *BridgeError) WithSeverity(severity Severity) *BridgeError {
	e.Severity = severity
	return e
}

// IsRetryable returns true if the error is retryable. Validation failures and
// guard rejections are deterministic and never retried; transport-level
// failures are.
func (e *BridgeError) IsRetryable() bool {
	switch e.Code {
	case ErrCodeFetch, ErrCodeLedgerRead, ErrCodeTimeout:
		return true
	case ErrCodeDatabase:
		return e.Severity != SeverityCritical
	default:
		return false
	}
}

// determineSeverity determines the default severity based on error code
func determineSeverity(code ErrorCode) Severity {
	switch code {
	case ErrCodeInternal, ErrCodeCredential:
		return SeverityCritical
	case ErrCodeDatabase, ErrCodeLedgerWrite:
		return SeverityHigh
	case ErrCodeFetch, ErrCodeLedgerRead, ErrCodeTimeout, ErrCodeGuardRejected:
		return SeverityMedium
	case ErrCodeValidation, ErrCodeConfig:
		return SeverityLow
	default:
		return SeverityInfo
	}
}

// ErrorGroup represents a collection of errors
type ErrorGroup struct {
	Errors []error
}

// NewErrorGroup creates a new error group
func NewErrorGroup() *ErrorGroup {
	return &ErrorGroup{
		Errors: make([]error, 0),
	}
}

// Add adds an error to the group
func (eg *ErrorGroup) Add(err error) {
	if err != nil {
		eg.Errors = append(eg.Errors, err)
	}
}

// HasErrors returns true if there are any errors
func (eg *ErrorGroup) HasErrors() bool {
	return len(eg.Errors) > 0
}

// Error implements the error interface
func (eg *ErrorGroup) Error() string {
	if len(eg.Errors) == 0 {
		return ""
	}
	if len(eg.Errors) == 1 {
		return eg.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors occurred: %v", len(eg.Errors), eg.Errors[0])
}

// GetErrors returns all errors
func (eg *ErrorGroup) GetErrors() []error {
	return eg.Errors
}

// Common error constructors

// NewFetchError creates a scoring-source fetch error
func NewFetchError(message string, cause error) *BridgeError {
	return NewBridgeError(ErrCodeFetch, "source", message, cause)
}

// NewValidationError creates a reading validation error
func NewValidationError(message string) *BridgeError {
	return NewBridgeError(ErrCodeValidation, "engine", message, nil)
}

// NewLedgerReadError creates a ledger read error
func NewLedgerReadError(message string, cause error) *BridgeError {
	return NewBridgeError(ErrCodeLedgerRead, "ledger", message, cause)
}

// NewLedgerWriteError creates a ledger write error
func NewLedgerWriteError(message string, cause error) *BridgeError {
	return NewBridgeError(ErrCodeLedgerWrite, "ledger", message, cause)
}

// NewGuardRejectedError creates an error for a write refused on-chain
func NewGuardRejectedError(message string, cause error) *BridgeError {
	return NewBridgeError(ErrCodeGuardRejected, "ledger", message, cause)
}

// NewDatabaseError creates a bookkeeping database error
func NewDatabaseError(message string, cause error) *BridgeError {
	return NewBridgeError(ErrCodeDatabase, "store", message, cause)
}

// NewConfigError creates a configuration error
func NewConfigError(message string) *BridgeError {
	return NewBridgeError(ErrCodeConfig, "config", message, nil)
}

// NewCredentialError creates a writer credential error
func NewCredentialError(message string, cause error) *BridgeError {
	return NewBridgeError(ErrCodeCredential, "keys", message, cause)
}

// NewTimeoutError creates a timeout error
func NewTimeoutError(component, message string) *BridgeError {
	return NewBridgeError(ErrCodeTimeout, component, message, nil)
}

// NewInternalError creates an internal error
func NewInternalError(component, message string, cause error) *BridgeError {
	return NewBridgeError(ErrCodeInternal, component, message, cause)
}
