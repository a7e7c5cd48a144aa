package domain

import "time"

// Progress values written by the archive job.
const (
	ZipInitialized = "Initialized"
	ZipFinalized   = "Finalized"
	ZipFailed      = "Failed"
)

// ZipStaleAfter is how long an unfinished archive job may run before it is
// reported as failed.
const ZipStaleAfter = 16 * time.Minute

// MaxPresignExpiry is the longest lifetime S3 accepts for a SigV4 URL.
const MaxPresignExpiry = 604800

// Object is a single file entry in a listing.
type Object struct {
	Key          string    `json:"Key"`
	LastModified time.Time `json:"LastModified"`
	ETag         string    `json:"ETag"`
	Size         int64     `json:"Size"`
	StorageClass string    `json:"StorageClass"`
}

// Folder is a common prefix one level below the listed folder.
type Folder struct {
	Prefix string `json:"Prefix"`
}

// Listing is one delimiter-grouped page of a bucket folder.
type Listing struct {
	Files   []Object
	Folders []Folder
}

// PresignedURL pairs an object key with its time-limited GET URL.
type PresignedURL struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// ZipJob is the payload handed to the archive function.
type ZipJob struct {
	Bucket      string   `json:"bucket"`
	Folder      string   `json:"folder"`
	Prefixes    []string `json:"prefixes"`
	ZipFileName string   `json:"zipFileName"`
	Region      string   `json:"region"`
}

// ZipProgress is one row of the archive job's progress table.
type ZipProgress struct {
	Folder      string `json:"folder" dynamodbav:"folder"`
	ZipFileName string `json:"zipFileName" dynamodbav:"zipFileName"`
	CreatedAt   string `json:"createdAt" dynamodbav:"createdAt"`
	UpdatedAt   string `json:"updatedAt" dynamodbav:"updatedAt"`
	Progress    string `json:"progress" dynamodbav:"progress"`
	Error       string `json:"zipError,omitempty" dynamodbav:"zipError,omitempty"`
}

// Settled reports the progress to show at now. Jobs that neither finished
// nor failed within ZipStaleAfter of creation are reported as failed.
func (p ZipProgress) Settled(now time.Time) ZipProgress {
	if p.Progress == ZipFinalized || p.Progress == ZipFailed {
		return p
	}
	created, err := time.Parse(time.RFC3339Nano, p.CreatedAt)
	if err != nil || now.Sub(created) >= ZipStaleAfter {
		p.Progress = ZipFailed
	}
	return p
}
