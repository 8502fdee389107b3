// Package errors provides the typed error taxonomy used across probedge:
// config errors, data gaps, transient I/O, invariant violations and risk
// halts each get their own type so callers can branch on errors.As.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for conditions callers commonly check with errors.Is.
var (
	ErrConfigInvalid      = errors.New("invalid configuration")
	ErrDataGap             = errors.New("data gap")
	ErrInvariantViolation  = errors.New("invariant violation")
	ErrSnapshotLocked      = errors.New("snapshot is locked")
	ErrSymbolNotFound      = errors.New("symbol not found")
	ErrConnectionFailed    = errors.New("connection failed")
	ErrTimeout             = errors.New("operation timed out")
	ErrRiskHalted          = errors.New("risk engine halted: trading disabled for the day")
)

// ConfigError represents a fatal configuration problem, caught at startup.
type ConfigError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: %s (%v): %s", e.Field, e.Value, e.Message)
}

func (e *ConfigError) Unwrap() error { return ErrConfigInvalid }

// NewConfigError creates a new ConfigError.
func NewConfigError(field string, value interface{}, message string) *ConfigError {
	return &ConfigError{Field: field, Value: value, Message: message}
}

// DataGapError represents missing or stale market data for a symbol. It is
// a recoverable condition: callers downgrade the affected tag to nil and
// continue rather than halting the run.
type DataGapError struct {
	Symbol  string
	Field   string
	Message string
	Err     error
}

func (e *DataGapError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("data gap [%s] %s: %s: %v", e.Symbol, e.Field, e.Message, e.Err)
	}
	return fmt.Sprintf("data gap [%s] %s: %s", e.Symbol, e.Field, e.Message)
}

func (e *DataGapError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrDataGap
}

// NewDataGapError creates a new DataGapError.
func NewDataGapError(symbol, field, message string, err error) *DataGapError {
	return &DataGapError{Symbol: symbol, Field: field, Message: message, Err: err}
}

// InvariantError represents a violated internal invariant. These are fatal:
// the caller should halt the affected component rather than continue on
// inconsistent state.
type InvariantError struct {
	Invariant string
	Detail    string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violated [%s]: %s", e.Invariant, e.Detail)
}

func (e *InvariantError) Unwrap() error { return ErrInvariantViolation }

// NewInvariantError creates a new InvariantError.
func NewInvariantError(invariant, detail string) *InvariantError {
	return &InvariantError{Invariant: invariant, Detail: detail}
}

// SnapshotWriteError represents a failure to persist a Snapshot or live
// state file to disk.
type SnapshotWriteError struct {
	Path string
	Err  error
}

func (e *SnapshotWriteError) Error() string {
	return fmt.Sprintf("snapshot write failed [%s]: %v", e.Path, e.Err)
}

func (e *SnapshotWriteError) Unwrap() error { return e.Err }

// NewSnapshotWriteError creates a new SnapshotWriteError.
func NewSnapshotWriteError(path string, err error) *SnapshotWriteError {
	return &SnapshotWriteError{Path: path, Err: err}
}

// BrokerError represents an error from the broker/ticker connection.
type BrokerError struct {
	Code    string
	Message string
	Err     error
}

func (e *BrokerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("broker error [%s]: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("broker error [%s]: %s", e.Code, e.Message)
}

func (e *BrokerError) Unwrap() error { return e.Err }

// NewBrokerError creates a new BrokerError.
func NewBrokerError(code, message string, err error) *BrokerError {
	return &BrokerError{Code: code, Message: message, Err: err}
}

// RiskError represents a risk-engine guard rejecting or halting an action.
type RiskError struct {
	Rule    string
	Current float64
	Limit   float64
	Message string
}

func (e *RiskError) Error() string {
	return fmt.Sprintf("risk violation [%s]: %s (current: %.2f, limit: %.2f)", e.Rule, e.Message, e.Current, e.Limit)
}

func (e *RiskError) Unwrap() error { return ErrRiskHalted }

// NewRiskError creates a new RiskError.
func NewRiskError(rule string, current, limit float64, message string) *RiskError {
	return &RiskError{Rule: rule, Current: current, Limit: limit, Message: message}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
