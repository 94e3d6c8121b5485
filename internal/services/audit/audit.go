// Package audit records append-only financing events to one or more sinks.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"bnpl-financing-engine/internal/models"
	"bnpl-financing-engine/internal/utils"
)

// Event is one audit record.
type Event = models.AuditLog

// Sink accepts audit events.
type Sink interface {
	Record(ctx context.Context, event Event) error
}

// NewEvent builds an event with a fresh ID and timestamp. Details are
// marshalled to JSON; unmarshalable details are dropped with a warning.
func NewEvent(actorID string, action models.AuditAction, entity, entityID string, details any) Event {
	event := Event{
		ID:        uuid.New().String(),
		ActorID:   actorID,
		Action:    action,
		Entity:    entity,
		EntityID:  entityID,
		CreatedAt: time.Now().UTC(),
	}

	if details != nil {
		raw, err := json.Marshal(details)
		if err != nil {
			utils.GetLogger().Warn("Dropping unmarshalable audit details",
				zap.String("action", string(action)),
				zap.Error(err),
			)
		} else {
			event.Details = raw
		}
	}
	return event
}

// Multi fans an event out to every sink. All sinks are attempted; their
// errors are joined.
type Multi []Sink

// Record implements Sink.
func (m Multi) Record(ctx context.Context, event Event) error {
	var errs []error
	for _, s := range m {
		if err := s.Record(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every event.
type Discard struct{}

// Record implements Sink.
func (Discard) Record(context.Context, Event) error { return nil }

// Writer persists audit rows.
type Writer interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// DBSink stores events in the audit_logs table.
type DBSink struct {
	writer Writer
}

// NewDBSink creates a new database sink.
func NewDBSink(w Writer) *DBSink {
	return &DBSink{writer: w}
}

// Record implements Sink.
func (s *DBSink) Record(ctx context.Context, event Event) error {
	return s.writer.CreateAuditLog(ctx, &event)
}
