// Package models defines the data structures for the financing engine.
package models

import (
	"encoding/json"
	"time"
)

// BorrowerStatus represents the standing of a borrower.
type BorrowerStatus string

const (
	BorrowerStatusActive BorrowerStatus = "Active"
	BorrowerStatusNPL    BorrowerStatus = "NPL"
)

// Valid reports whether s is a known status.
func (s BorrowerStatus) Valid() bool {
	return s == BorrowerStatusActive || s == BorrowerStatusNPL
}

// IsRestricted reports whether the status bars the borrower from new financing.
func (s BorrowerStatus) IsRestricted() bool {
	return s == BorrowerStatusNPL
}

// Borrower represents a customer that may receive financing.
type Borrower struct {
	ID        string         `json:"id" db:"id"`
	Status    BorrowerStatus `json:"status" db:"status"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt time.Time      `json:"updated_at" db:"updated_at"`
}

// BorrowerSnapshot is a borrower with the payload of their newest
// provisioned data entry, if any.
type BorrowerSnapshot struct {
	Borrower
	LatestData json.RawMessage `json:"latest_data,omitempty"`
}

// BorrowerSummary is a borrower as listed to operators.
type BorrowerSummary struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Status BorrowerStatus `json:"status"`
}

// ProvisionedDataEntry is one externally supplied snapshot of borrower attributes.
// Data holds the raw JSON payload exactly as it was ingested.
type ProvisionedDataEntry struct {
	ID         string          `json:"id" db:"id"`
	BorrowerID string          `json:"borrower_id" db:"borrower_id"`
	ConfigID   string          `json:"config_id" db:"config_id"`
	ProviderID string          `json:"provider_id" db:"provider_id"`
	Data       json.RawMessage `json:"data" db:"data"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}
