package core

import (
	"errors"
	"fmt"
)

// Error classes. Every error returned by the ledger wraps exactly one of them.
var (
	ErrNotFound            = errors.New("not found")
	ErrConstraintViolation = errors.New("constraint violation")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrStorageFailure      = errors.New("storage failure")
)

var (
	ErrNegativeAmount   = fmt.Errorf("%w: amount must not be negative", ErrInvalidArgument)
	ErrInvalidAmount    = fmt.Errorf("%w: invalid amount", ErrInvalidArgument)
	ErrAmountOutOfRange = fmt.Errorf("%w: amount out of range", ErrInvalidAmount)
	ErrUnknownType      = fmt.Errorf("%w: unknown transaction type", ErrInvalidArgument)
	ErrInvalidCount     = fmt.Errorf("%w: count must be positive", ErrInvalidArgument)
	ErrEmptyName        = fmt.Errorf("%w: empty name", ErrInvalidArgument)
	ErrEmptyEmail       = fmt.Errorf("%w: empty email", ErrInvalidArgument)
)

// ErrBalanceOverflow is returned when applying a write would take a running
// balance outside the int64 cent range.
var ErrBalanceOverflow = fmt.Errorf("%w: balance out of range", ErrConstraintViolation)
