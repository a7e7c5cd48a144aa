package ports

import (
	"context"
	"time"

	"github.com/s3ui/bucketgate/internal/core/domain"
)

// ObjectStore lists and signs objects in one bucket.
type ObjectStore interface {
	List(ctx context.Context, prefix string) (*domain.Listing, error)
	PresignGet(ctx context.Context, key string, expires time.Duration) (string, error)
}

// JobInvoker fires the archive job for one bucket without waiting for it.
// It returns the status code reported by the invocation API.
type JobInvoker interface {
	InvokeZip(ctx context.Context, job domain.ZipJob) (int, error)
}

// ZipProgressRepository reads the archive job's progress rows.
type ZipProgressRepository interface {
	ListByFolder(ctx context.Context, folder string) ([]domain.ZipProgress, error)
}

// BucketClients groups the long-lived service handles created for a bucket
// at startup. Progress may be nil when the bucket has no progress table.
type BucketClients struct {
	Objects  ObjectStore
	Jobs     JobInvoker
	Progress ZipProgressRepository
}
