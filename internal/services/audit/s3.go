package audit

import (
	"context"
	"fmt"
)

// Uploader stores a JSON document under a key.
type Uploader interface {
	UploadJSON(ctx context.Context, key string, v any) error
}

// S3Sink archives each event as its own JSON object.
type S3Sink struct {
	uploader Uploader
	prefix   string
}

// NewS3Sink creates a new archive sink writing under prefix.
func NewS3Sink(u Uploader, prefix string) *S3Sink {
	if prefix == "" {
		prefix = "audit"
	}
	return &S3Sink{uploader: u, prefix: prefix}
}

// Key returns the object key of an event, partitioned by day and action.
func (s *S3Sink) Key(event Event) string {
	return fmt.Sprintf("%s/%s/%s/%s.json", s.prefix, event.CreatedAt.UTC().Format("2006/01/02"), event.Action, event.ID)
}

// Record implements Sink.
func (s *S3Sink) Record(ctx context.Context, event Event) error {
	if err := s.uploader.UploadJSON(ctx, s.Key(event), event); err != nil {
		return fmt.Errorf("failed to archive audit event: %w", err)
	}
	return nil
}
