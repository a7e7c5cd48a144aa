package domain

import "sort"

// Bucket holds the per-bucket settings supplied at process start.
type Bucket struct {
	Name            string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	// Endpoint overrides the S3 endpoint, e.g. for MinIO. Empty means AWS.
	Endpoint      string
	ZipFunction   string
	ProgressTable string
}

// BucketRegistry is the read-only set of buckets the process serves.
type BucketRegistry struct {
	buckets map[string]Bucket
	names   []string
}

// NewBucketRegistry copies buckets into an immutable registry.
func NewBucketRegistry(buckets []Bucket) *BucketRegistry {
	r := &BucketRegistry{buckets: make(map[string]Bucket, len(buckets))}
	for _, b := range buckets {
		if _, dup := r.buckets[b.Name]; !dup {
			r.names = append(r.names, b.Name)
		}
		r.buckets[b.Name] = b
	}
	sort.Strings(r.names)
	return r
}

// Get returns the named bucket or ErrBucketNotFound.
func (r *BucketRegistry) Get(name string) (Bucket, error) {
	b, ok := r.buckets[name]
	if !ok {
		return Bucket{}, ErrBucketNotFound
	}
	return b, nil
}

// Names returns the bucket names in sorted order. The slice is a copy.
func (r *BucketRegistry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// All returns every bucket in name order.
func (r *BucketRegistry) All() []Bucket {
	out := make([]Bucket, 0, len(r.names))
	for _, n := range r.names {
		out = append(out, r.buckets[n])
	}
	return out
}
