package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrDestinationNotFound = errors.New("destination wallet not found")
	ErrDuplicateReference  = errors.New("duplicate reference")
	ErrProviderUnavailable = errors.New("payment provider unavailable")
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrSelfTransfer        = errors.New("cannot transfer to your own wallet")
	ErrUnknownPlan         = errors.New("unknown data plan")
	ErrInvalidNetwork      = errors.New("unsupported network")
	ErrReferenceConflict   = errors.New("reference already used for a different request")
	ErrInvalidTransition   = errors.New("transaction is not pending")
	ErrNotYours            = errors.New("you don't own the source wallet")
	ErrWalletExists        = errors.New("user already has a wallet")
	ErrInvalidRequest      = errors.New("invalid request")
	ErrRecordNotFound      = errors.New("idempotency record not found")
)

// Codes are stable identifiers surfaced to API clients.
var codes = map[error]string{
	ErrInsufficientFunds:   "INSUFFICIENT_FUNDS",
	ErrInvalidAmount:       "INVALID_AMOUNT",
	ErrDestinationNotFound: "DESTINATION_NOT_FOUND",
	ErrDuplicateReference:  "DUPLICATE_REFERENCE",
	ErrProviderUnavailable: "PROVIDER_UNAVAILABLE",
	ErrWalletNotFound:      "WALLET_NOT_FOUND",
	ErrTransactionNotFound: "TRANSACTION_NOT_FOUND",
	ErrSelfTransfer:        "SELF_TRANSFER",
	ErrUnknownPlan:         "UNKNOWN_PLAN",
	ErrInvalidNetwork:      "INVALID_NETWORK",
	ErrReferenceConflict:   "REFERENCE_CONFLICT",
	ErrInvalidTransition:   "INVALID_TRANSITION",
	ErrNotYours:            "FORBIDDEN",
	ErrWalletExists:        "WALLET_EXISTS",
	ErrInvalidRequest:      "INVALID_REQUEST",
	ErrRecordNotFound:      "RECORD_NOT_FOUND",
}

type LedgerError struct {
	ErrorObj  error
	WalletID  string
	Reference string
	Other     []error
}

func (e *LedgerError) Error() string {
	if len(e.Other) == 0 {
		return e.ErrorObj.Error()
	}
	return fmt.Sprintf("%v: %v", e.ErrorObj, errors.Join(e.Other...))
}

func (e *LedgerError) Unwrap() error {
	return e.ErrorObj
}

func (e *LedgerError) ErrorOut() string {
	return fmt.Sprintf("%v: wallet=%v reference=%v", e.Error(), e.WalletID, e.Reference)
}

func NewLedgerError(err error, walletID, reference string, e ...error) *LedgerError {
	return &LedgerError{
		ErrorObj:  err,
		WalletID:  walletID,
		Reference: reference,
		Other:     e,
	}
}

// Code maps err onto its stable code, or INTERNAL when it is not a ledger error.
func Code(err error) string {
	for sentinel, code := range codes {
		if errors.Is(err, sentinel) {
			return code
		}
	}
	return "INTERNAL"
}

// IsValidation reports errors raised before any ledger mutation.
func IsValidation(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrDestinationNotFound),
		errors.Is(err, ErrWalletNotFound),
		errors.Is(err, ErrSelfTransfer),
		errors.Is(err, ErrUnknownPlan),
		errors.Is(err, ErrInvalidNetwork),
		errors.Is(err, ErrInvalidRequest),
		errors.Is(err, ErrNotYours):
		return true
	}
	return false
}
