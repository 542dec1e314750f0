// Package apperr defines the closed set of failure kinds surfaced to callers
// of the purchase workflow and the HTTP layer.
package apperr

import (
	"errors"
	"net/http"
)

// Kind tags a failure so callers can branch on it without string matching.
type Kind string

const (
	KindRateUnavailable        Kind = "rate_unavailable"
	KindLinkingRequired        Kind = "linking_required"
	KindAccountNotFound        Kind = "account_not_found"
	KindInsufficientFunds      Kind = "insufficient_funds"
	KindInvalidQuantity        Kind = "invalid_quantity"
	KindWalletProvisionFailed  Kind = "wallet_provision_failed"
	KindSettlementFailed       Kind = "settlement_failed"
	KindStoreWriteFailed       Kind = "store_write_failed"
	KindBankUnavailable        Kind = "bank_unavailable"
	KindAddressAlreadyAssigned Kind = "address_already_assigned"
	KindNotFound               Kind = "not_found"
	KindInvalid                Kind = "invalid_request"
	KindUnauthorized           Kind = "unauthorized"
	KindConflict               Kind = "conflict"
	KindInternal               Kind = "internal"
)

// Class splits kinds into caller mistakes and service-side failures.
type Class int

const (
	ClassService Class = iota
	ClassClient
)

func (c Class) String() string {
	if c == ClassClient {
		return "client"
	}
	return "service"
}

// Class reports whether the kind is a client error or a service error.
func (k Kind) Class() Class {
	switch k {
	case KindAccountNotFound, KindInsufficientFunds, KindInvalidQuantity, KindLinkingRequired,
		KindNotFound, KindInvalid, KindUnauthorized, KindConflict:
		return ClassClient
	default:
		return ClassService
	}
}

// HTTPStatus maps the kind to a response code.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindInvalidQuantity, KindInsufficientFunds, KindLinkingRequired, KindInvalid:
		return http.StatusBadRequest
	case KindAccountNotFound, KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindConflict:
		return http.StatusConflict
	case KindRateUnavailable, KindBankUnavailable:
		return http.StatusServiceUnavailable
	case KindWalletProvisionFailed, KindSettlementFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error is a tagged failure carrying a caller-facing message and the
// underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return string(e.Kind) + ": " + e.Message + ": " + e.Err.Error()
	}
	return string(e.Kind) + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind, so errors.Is(err, apperr.New(kind, ""))
// works as a kind check.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// New builds a failure without a cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds a failure around cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// KindOf extracts the kind from err, defaulting to KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the caller-facing message for err. Untagged errors get a
// generic message so internals never leak to clients.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return "internal error"
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
