package awsclients

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/s3ui/bucketgate/internal/core/domain"
)

const listDelimiter = "/"

// Presigner is the subset of *s3.PresignClient used here.
type Presigner interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// ObjectStore lists and signs objects in a single bucket.
type ObjectStore struct {
	bucket  string
	api     s3.ListObjectsV2APIClient
	presign Presigner
}

func NewObjectStore(bucket string, api s3.ListObjectsV2APIClient, presign Presigner) *ObjectStore {
	return &ObjectStore{bucket: bucket, api: api, presign: presign}
}

// List returns every object and common prefix one level below prefix,
// following continuation tokens until the listing is exhausted.
func (s *ObjectStore) List(ctx context.Context, prefix string) (listing *domain.Listing, err error) {
	defer func(start time.Time) { observe("s3", "list", start, err) }(time.Now())

	p := s3.NewListObjectsV2Paginator(s.api, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String(listDelimiter),
	})

	listing = &domain.Listing{}
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, o := range page.Contents {
			listing.Files = append(listing.Files, domain.Object{
				Key:          aws.ToString(o.Key),
				LastModified: aws.ToTime(o.LastModified),
				ETag:         aws.ToString(o.ETag),
				Size:         aws.ToInt64(o.Size),
				StorageClass: string(o.StorageClass),
			})
		}
		for _, cp := range page.CommonPrefixes {
			listing.Folders = append(listing.Folders, domain.Folder{Prefix: aws.ToString(cp.Prefix)})
		}
	}
	return listing, nil
}

// PresignGet returns a GET URL for key valid for expires.
func (s *ObjectStore) PresignGet(ctx context.Context, key string, expires time.Duration) (url string, err error) {
	defer func(start time.Time) { observe("s3", "presign", start, err) }(time.Now())

	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return req.URL, nil
}
