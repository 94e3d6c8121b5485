// Package models defines the data structures for the financing engine.
package models

import (
	"encoding/json"
	"time"
)

// AuditAction names an audited financing event.
type AuditAction string

const (
	AuditFinancingInitiated AuditAction = "FINANCING_INITIATED"
	AuditFinancingSuccess   AuditAction = "FINANCING_SUCCESS"
	AuditFinancingFailed    AuditAction = "FINANCING_FAILED"
	AuditEligibilityChecked AuditAction = "ELIGIBILITY_CHECKED"
)

// AuditLog is an append-only record of who did what to which entity.
type AuditLog struct {
	ID        string          `json:"id" db:"id"`
	ActorID   string          `json:"actor_id" db:"actor_id"`
	Action    AuditAction     `json:"action" db:"action"`
	Entity    string          `json:"entity" db:"entity"`
	EntityID  string          `json:"entity_id,omitempty" db:"entity_id"`
	Details   json.RawMessage `json:"details,omitempty" db:"details"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}
