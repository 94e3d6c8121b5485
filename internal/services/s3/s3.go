// Package s3service archives financing records to S3
package s3service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"bnpl-financing-engine/internal/utils"
)

// ObjectAPI is the subset of the S3 client the service uses.
type ObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Service handles S3 operations
type Service struct {
	client     ObjectAPI
	bucketName string
}

// NewService creates a new S3 service for the bucket using the default AWS credential chain.
func NewService(ctx context.Context, region, bucket string) (*Service, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewServiceWithClient(s3.NewFromConfig(cfg), bucket), nil
}

// NewServiceWithClient wraps an existing client.
func NewServiceWithClient(client ObjectAPI, bucket string) *Service {
	return &Service{client: client, bucketName: bucket}
}

// UploadJSON marshals v and stores it under key.
func (s *Service) UploadJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal object: %w", err)
	}
	return s.UploadFile(ctx, key, data, "application/json")
}

// UploadFile uploads a file to S3
func (s *Service) UploadFile(ctx context.Context, key string, data []byte, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	}

	_, err := s.client.PutObject(ctx, input)
	if err != nil {
		utils.GetLogger().Error("Failed to upload object to S3",
			zap.String("bucket", s.bucketName),
			zap.String("key", key),
			zap.Error(err),
		)
		return fmt.Errorf("failed to upload file: %w", err)
	}

	utils.GetLogger().Debug("Uploaded object to S3",
		zap.String("bucket", s.bucketName),
		zap.String("key", key),
		zap.Int("size", len(data)),
	)

	return nil
}
