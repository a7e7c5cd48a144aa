// Package awsclients builds the per-bucket S3, Lambda and DynamoDB handles from the
// bucket registry and adapts them to the core ports. Handles are created
// once at startup and shared by every request.
package awsclients

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/s3ui/bucketgate/internal/api/metrics"
	"github.com/s3ui/bucketgate/internal/core/domain"
	"github.com/s3ui/bucketgate/internal/core/ports"
)

var loadConfig = config.LoadDefaultConfig

// LoadBucketConfig returns the SDK config for b. Static keys are used when
// present; otherwise the default credential chain applies.
func LoadBucketConfig(ctx context.Context, b domain.Bucket) (aws.Config, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(b.Region)}
	if b.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(b.AccessKeyID, b.SecretAccessKey, ""),
		))
	}
	cfg, err := loadConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("aws config for bucket %s: %w", b.Name, err)
	}
	return cfg, nil
}

// NewBucketClients wires the object store, job invoker and, when the bucket
// has a progress table, the progress repository for b.
func NewBucketClients(ctx context.Context, b domain.Bucket) (ports.BucketClients, error) {
	cfg, err := LoadBucketConfig(ctx, b)
	if err != nil {
		return ports.BucketClients{}, err
	}

	s3Client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if b.Endpoint != "" {
			o.BaseEndpoint = aws.String(b.Endpoint)
			o.UsePathStyle = true
		}
	})

	clients := ports.BucketClients{
		Objects: NewObjectStore(b.Name, s3Client, s3.NewPresignClient(s3Client)),
	}
	if b.ZipFunction != "" {
		clients.Jobs = NewJobInvoker(b.ZipFunction, lambda.NewFromConfig(cfg))
	}
	if b.ProgressTable != "" {
		clients.Progress = NewProgressRepository(b.ProgressTable, dynamodb.NewFromConfig(cfg))
	}
	return clients, nil
}

// BuildClients creates handles for every bucket in the registry.
func BuildClients(ctx context.Context, registry *domain.BucketRegistry) (map[string]ports.BucketClients, error) {
	out := make(map[string]ports.BucketClients)
	for _, b := range registry.All() {
		c, err := NewBucketClients(ctx, b)
		if err != nil {
			return nil, err
		}
		out[b.Name] = c
	}
	return out, nil
}

func observe(service, op string, start time.Time, err error) {
	metrics.UpstreamDuration.WithLabelValues(service, op).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamErrorsTotal.WithLabelValues(service, op).Inc()
	}
}
