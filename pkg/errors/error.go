// Package errors gives every failure in argo-replay a numeric code.
//
// Codes are grouped by hundreds (see error_code.go). Callers branch on the code, not on
// the message:
//
//	if errors.IsRefusal(err) {
//		// the account said no; record it and move on
//	}
package errors

import (
	"errors"
	"fmt"
	"slices"
)

// Error is a coded failure, optionally caused by another error.
// It prints as "[code] message" or "[code] message: cause".
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   nil,
	}
}

func Newf(code ErrorCode, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Wrapf takes the cause before the format, unlike Wrap.
func Wrapf(code ErrorCode, cause error, format string, args ...any) *Error {
	return Wrap(code, fmt.Sprintf(format, args...), cause)
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("[%d] %s", e.Code, e.Message)
	}

	return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is and As forward to the standard library so callers need only this package.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

// GetCode returns the code of the outermost *Error in the chain, or ErrCodeUnknown.
func GetCode(err error) ErrorCode {
	var coded *Error
	if !errors.As(err, &coded) {
		return ErrCodeUnknown
	}

	return coded.Code
}

func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// IsRefusal reports an account refusal: insufficient funds or shares. The request is
// dropped and the run goes on.
func IsRefusal(err error) bool {
	return anyCode(err, ErrCodeInsufficientFunds, ErrCodeInsufficientShares)
}

// IsFatal reports whether err, or any coded cause beneath it, must abort the run.
func IsFatal(err error) bool {
	return anyCode(err, ErrCodeEngineInvariantViolation, ErrCodeLiquidationStall)
}

func anyCode(err error, codes ...ErrorCode) bool {
	for err != nil {
		var coded *Error
		if !errors.As(err, &coded) {
			return false
		}

		if slices.Contains(codes, coded.Code) {
			return true
		}

		err = coded.Cause
	}

	return false
}
