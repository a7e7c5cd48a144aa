package ports

import (
	"context"

	"github.com/s3ui/bucketgate/internal/core/domain"
)

// ListResult is a folder listing enriched with archive job progress.
type ListResult struct {
	Files       []domain.Object
	Folders     []domain.Folder
	ZipProgress []domain.ZipProgress
}

// PresignInput requests GET URLs for Keys valid for ExpiresIn seconds.
type PresignInput struct {
	Bucket    string
	Keys      []string
	ExpiresIn int
}

// ZipInput requests an archive of Prefixes under Folder named ZipFileName.
type ZipInput struct {
	Bucket      string
	Folder      string
	Prefixes    []string
	ZipFileName string
}

type StorageService interface {
	List(ctx context.Context, bucket, folder string) (*ListResult, error)
	Presign(ctx context.Context, input PresignInput) ([]domain.PresignedURL, error)
	Zip(ctx context.Context, input ZipInput) error
}
