package service

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/s3ui/bucketgate/internal/core/domain"
	"github.com/s3ui/bucketgate/internal/core/ports"
	"github.com/s3ui/bucketgate/internal/core/validation"
)

// Upstream service names used in UpstreamError and metrics.
const (
	UpstreamS3       = "s3"
	UpstreamLambda   = "lambda"
	UpstreamDynamoDB = "dynamodb"
)

// StorageService lists, signs and archives objects in the registered
// buckets. Every call goes straight to the bucket's clients; nothing is
// cached or retried.
type StorageService struct {
	buckets *domain.BucketRegistry
	clients map[string]ports.BucketClients
	files   validation.FileNamePolicy
	log     zerolog.Logger
	now     func() time.Time
}

func NewStorageService(buckets *domain.BucketRegistry, clients map[string]ports.BucketClients, log zerolog.Logger) *StorageService {
	return &StorageService{
		buckets: buckets,
		clients: clients,
		files:   validation.DefaultFileNamePolicy(),
		log:     log,
		now:     time.Now,
	}
}

// WithFileNamePolicy replaces the archive file name rule.
func (s *StorageService) WithFileNamePolicy(p validation.FileNamePolicy) *StorageService {
	s.files = p
	return s
}

func (s *StorageService) resolve(name string) (domain.Bucket, ports.BucketClients, error) {
	b, err := s.buckets.Get(name)
	if err != nil {
		return domain.Bucket{}, ports.BucketClients{}, err
	}
	c, ok := s.clients[name]
	if !ok || c.Objects == nil {
		return domain.Bucket{}, ports.BucketClients{}, domain.ErrBucketNotFound
	}
	return b, c, nil
}

// List returns the files and sub-folders directly under folder, plus the
// progress of archive jobs started from it.
func (s *StorageService) List(ctx context.Context, bucket, folder string) (*ports.ListResult, error) {
	_, c, err := s.resolve(bucket)
	if err != nil {
		return nil, err
	}

	listing, err := c.Objects.List(ctx, folder)
	if err != nil {
		return nil, upstream(UpstreamS3, err)
	}

	res := &ports.ListResult{
		Files:       make([]domain.Object, 0, len(listing.Files)),
		Folders:     make([]domain.Folder, 0, len(listing.Folders)),
		ZipProgress: []domain.ZipProgress{},
	}
	for _, f := range listing.Files {
		if f.Key == folder {
			continue
		}
		res.Files = append(res.Files, f)
	}
	res.Folders = append(res.Folders, listing.Folders...)

	if c.Progress != nil {
		rows, err := c.Progress.ListByFolder(ctx, "/"+folder)
		if err != nil {
			s.log.Warn().Err(err).Str("bucket", bucket).Str("folder", folder).Msg("zip progress lookup failed")
		} else {
			now := s.now().UTC()
			for _, r := range rows {
				res.ZipProgress = append(res.ZipProgress, r.Settled(now))
			}
		}
	}
	return res, nil
}

// Presign returns one GET URL per key, in request order.
func (s *StorageService) Presign(ctx context.Context, in ports.PresignInput) ([]domain.PresignedURL, error) {
	if len(in.Keys) == 0 {
		return nil, domain.NewValidationError("keys must contain at least 1 item")
	}
	if in.ExpiresIn < 1 || in.ExpiresIn > domain.MaxPresignExpiry {
		return nil, domain.NewValidationError("expires_in must be between 1 and %d", domain.MaxPresignExpiry)
	}

	_, c, err := s.resolve(in.Bucket)
	if err != nil {
		return nil, err
	}

	expires := time.Duration(in.ExpiresIn) * time.Second
	urls := make([]domain.PresignedURL, 0, len(in.Keys))
	for _, key := range in.Keys {
		u, err := c.Objects.PresignGet(ctx, key, expires)
		if err != nil {
			return nil, upstream(UpstreamS3, err)
		}
		urls = append(urls, domain.PresignedURL{Key: key, URL: u})
	}
	return urls, nil
}

// Zip hands an archive request to the bucket's job function and returns as
// soon as the invocation is accepted.
func (s *StorageService) Zip(ctx context.Context, in ports.ZipInput) error {
	if len(in.Prefixes) == 0 {
		return domain.NewValidationError("prefixes must contain at least 1 item")
	}
	if err := s.files.Check(in.ZipFileName); err != nil {
		return &domain.ValidationError{Reason: err.Error()}
	}

	b, c, err := s.resolve(in.Bucket)
	if err != nil {
		return err
	}
	if c.Jobs == nil || b.ZipFunction == "" {
		return &domain.UpstreamError{Service: UpstreamLambda, Message: "zip function not configured for bucket " + b.Name}
	}

	status, err := c.Jobs.InvokeZip(ctx, domain.ZipJob{
		Bucket:      b.Name,
		Folder:      in.Folder,
		Prefixes:    in.Prefixes,
		ZipFileName: in.ZipFileName,
		Region:      b.Region,
	})
	if err != nil {
		return upstream(UpstreamLambda, err)
	}
	if status != http.StatusAccepted {
		return &domain.UpstreamError{
			Service:    UpstreamLambda,
			StatusCode: status,
			Message:    "Lambda Invoke Failed",
		}
	}

	s.log.Info().
		Str("bucket", b.Name).
		Str("folder", in.Folder).
		Str("zip_file_name", in.ZipFileName).
		Int("prefixes", len(in.Prefixes)).
		Msg("zip job invoked")
	return nil
}

func upstream(service string, err error) error {
	var ue *domain.UpstreamError
	if errors.As(err, &ue) {
		return ue
	}
	return &domain.UpstreamError{Service: service, Message: err.Error(), Err: err}
}
