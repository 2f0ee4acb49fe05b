package model

import (
	"errors"
	"fmt"
)

// Kind classifies a rejection so callers know how to recover.
type Kind string

const (
	// KindValidation means the input shape was wrong. Fix the input.
	KindValidation Kind = "VALIDATION"

	// KindAuthentication means the authorization did not verify or has expired.
	// Request a fresh authorization instead of retrying.
	KindAuthentication Kind = "AUTHENTICATION"

	// KindReplay means the authorization nonce was already consumed.
	KindReplay Kind = "REPLAY"

	// KindBusinessRule means the score or grant violates a ledger rule.
	KindBusinessRule Kind = "BUSINESS_RULE"

	// KindConfiguration means the service is misconfigured. Nothing was issued.
	KindConfiguration Kind = "CONFIGURATION"
)

// Code identifies the specific rejection.
type Code string

const (
	CodeInvalidAddress       Code = "InvalidAddress"
	CodeInvalidScore         Code = "InvalidScore"
	CodeInvalidNonce         Code = "InvalidNonce"
	CodeInvalidLimit         Code = "InvalidLimit"
	CodeUnknownSkin          Code = "UnknownSkin"
	CodeInvalidSignature     Code = "InvalidSignature"
	CodeSignatureExpired     Code = "SignatureExpired"
	CodeLegacySubmitDisabled Code = "LegacySubmitDisabled"
	CodeNonceAlreadyUsed     Code = "NonceAlreadyUsed"
	CodeZeroScoreRejected    Code = "ZeroScoreRejected"
	CodeScoreNotHigher       Code = "ScoreNotHigher"
	CodeInsufficientPayment  Code = "InsufficientPayment"
	CodeSignerNotConfigured  Code = "SignerNotConfigured"
)

// Error is a structured ledger or signer rejection.
//
// Current and Submitted carry the compared values for ScoreNotHigher
// (stored best vs attempted score) and InsufficientPayment (price vs payment).
type Error struct {
	Kind      Kind
	Code      Code
	Message   string
	Current   uint64
	Submitted uint64
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch e.Code {
	case CodeScoreNotHigher:
		return fmt.Sprintf("%s(%d, %d): %s", e.Code, e.Current, e.Submitted, e.Message)
	case CodeInsufficientPayment:
		return fmt.Sprintf("%s(price=%d, paid=%d): %s", e.Code, e.Current, e.Submitted, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches on Code so errors.Is(err, ErrNonceAlreadyUsed) works for any instance.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Sentinels for errors.Is comparisons. Values are carried on the returned
// instances, not on these.
var (
	ErrInvalidAddress       = &Error{Kind: KindValidation, Code: CodeInvalidAddress, Message: "malformed account identity"}
	ErrInvalidScore         = &Error{Kind: KindValidation, Code: CodeInvalidScore, Message: "score out of range"}
	ErrInvalidLimit         = &Error{Kind: KindValidation, Code: CodeInvalidLimit, Message: "limit out of range"}
	ErrUnknownSkin          = &Error{Kind: KindValidation, Code: CodeUnknownSkin, Message: "skin not in catalog"}
	ErrInvalidSignature     = &Error{Kind: KindAuthentication, Code: CodeInvalidSignature, Message: "signature does not match trusted signer"}
	ErrSignatureExpired     = &Error{Kind: KindAuthentication, Code: CodeSignatureExpired, Message: "authorization expired"}
	ErrLegacySubmitDisabled = &Error{Kind: KindAuthentication, Code: CodeLegacySubmitDisabled, Message: "unauthenticated submission is disabled"}
	ErrNonceAlreadyUsed     = &Error{Kind: KindReplay, Code: CodeNonceAlreadyUsed, Message: "authorization already redeemed"}
	ErrZeroScoreRejected    = &Error{Kind: KindBusinessRule, Code: CodeZeroScoreRejected, Message: "zero score never commits"}
	ErrScoreNotHigher       = &Error{Kind: KindBusinessRule, Code: CodeScoreNotHigher, Message: "score does not beat current best"}
	ErrInsufficientPayment  = &Error{Kind: KindBusinessRule, Code: CodeInsufficientPayment, Message: "payment below skin price"}
	ErrSignerNotConfigured  = &Error{Kind: KindConfiguration, Code: CodeSignerNotConfigured, Message: "signer not configured"}
)

// NewValidationError creates a validation rejection with a custom message.
func NewValidationError(code Code, message string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: message}
}

// NewScoreNotHigher reports the stored best and the rejected value.
func NewScoreNotHigher(current, submitted uint64) *Error {
	return &Error{
		Kind:      KindBusinessRule,
		Code:      CodeScoreNotHigher,
		Message:   "score does not beat current best",
		Current:   current,
		Submitted: submitted,
	}
}

// NewInsufficientPayment reports the skin price and the amount paid.
func NewInsufficientPayment(price, paid uint64) *Error {
	return &Error{
		Kind:      KindBusinessRule,
		Code:      CodeInsufficientPayment,
		Message:   "payment below skin price",
		Current:   price,
		Submitted: paid,
	}
}

// AsError extracts a *Error from err. Uses errors.As to handle wrapped errors.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsKind returns true if err is a *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	e, ok := AsError(err)
	return ok && e.Kind == kind
}

// HasCode returns true if err is a *Error with the given code.
func HasCode(err error, code Code) bool {
	e, ok := AsError(err)
	return ok && e.Code == code
}
