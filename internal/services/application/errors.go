package application

import (
	"fmt"

	"github.com/google/uuid"
)

const (
	CodeAmountNotPositive     = "AMOUNT_NOT_POSITIVE"
	CodeInsufficientFunds     = "INSUFFICIENT_FUNDS"
	CodeOverApplication       = "OVER_APPLICATION"
	CodeCannotReverse         = "CANNOT_REVERSE"
	CodeDepositAmountMismatch = "DEPOSIT_AMOUNT_MISMATCH"
)

// ConservationError rejects a mutation that would break a money invariant.
// Nothing is mutated when one is returned; Requested and Available carry the
// violated quantities so the caller can build an actionable message.
type ConservationError struct {
	Code      string
	EntityID  uuid.UUID
	Requested float64
	Available float64
}

func (e *ConservationError) Error() string {
	return fmt.Sprintf("%s: entity %s requested %.2f, available %.2f",
		e.Code, e.EntityID, e.Requested, e.Available)
}

// ValidationError rejects malformed input before any state is touched.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func validationf(code, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Code: code, Message: fmt.Sprintf(format, args...)}
}
