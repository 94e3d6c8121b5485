// Package models defines the data structures for the financing engine.
package models

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Common errors
var (
	ErrProductNotFound        = errors.New("installment plan product not found")
	ErrProviderNotFound       = errors.New("loan provider not found")
	ErrLedgerAccountMissing   = errors.New("required ledger account not configured")
	ErrInsufficientFunds      = errors.New("insufficient provider funds")
	ErrActivePlanExists       = errors.New("borrower already has an active plan for this product")
	ErrConcurrentDisbursement = errors.New("disbursement conflicted with a concurrent transaction")
	ErrInvalidAmount          = errors.New("loan amount must be greater than zero")
	ErrInvalidDates           = errors.New("due date cannot be before disbursed date")
	ErrLockNotObtained        = errors.New("another financing request for this borrower is in progress")
	ErrSerializationFailure   = errors.New("transaction could not be serialized")
	ErrBorrowerNotFound       = errors.New("customer not found")
	ErrLoanNotFound           = errors.New("installment plan not found")
	ErrInvalidBorrowerStatus  = errors.New("borrower status must be Active or NPL")
)

// InsufficientFundsError reports a provider pool that cannot cover a disbursement.
type InsufficientFundsError struct {
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient provider funds. Available: %s, Requested: %s", e.Available.String(), e.Requested.String())
}

// Unwrap allows errors.Is(err, ErrInsufficientFunds).
func (e *InsufficientFundsError) Unwrap() error {
	return ErrInsufficientFunds
}

// MissingAccountError names the ledger account a disbursement could not resolve.
type MissingAccountError struct {
	Category LedgerCategory
	Type     LedgerAccountType
}

func (e *MissingAccountError) Error() string {
	return fmt.Sprintf("%s %s ledger account not found", e.Category, e.Type)
}

// Unwrap allows errors.Is(err, ErrLedgerAccountMissing).
func (e *MissingAccountError) Unwrap() error {
	return ErrLedgerAccountMissing
}

// DeniedError is returned when a financing request fails its eligibility check.
type DeniedError struct {
	Code   EligibilityCode
	Reason string
}

func (e *DeniedError) Error() string {
	return "financing denied: " + e.Reason
}

// LimitExceededError is returned when the requested amount is above the borrower's spending limit.
type LimitExceededError struct {
	Requested decimal.Decimal
	Max       decimal.Decimal
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("purchase amount of %s exceeds the maximum allowed spending limit of %s", e.Requested.String(), e.Max.String())
}
