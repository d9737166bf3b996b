package progress

import (
	"context"
	"fmt"
	"log"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Snapshot identifies a pre-built progress file in S3-compatible object
// storage. Fetching it on first run saves re-embedding a catalog that was
// already processed elsewhere.
type Snapshot struct {
	Endpoint  string
	Bucket    string
	Object    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// Configured reports whether enough fields are set to attempt a fetch.
func (s *Snapshot) Configured() bool {
	return s != nil && s.Endpoint != "" && s.Bucket != "" && s.Object != ""
}

// Fetch downloads the snapshot object to destPath. Errors are returned to
// the caller, which treats them as "start from empty state".
func (s *Snapshot) Fetch(ctx context.Context, destPath string) error {
	if !s.Configured() {
		return fmt.Errorf("snapshot is not fully configured")
	}

	opts := &minio.Options{
		Secure: s.UseSSL,
	}
	if s.AccessKey != "" {
		opts.Creds = credentials.NewStaticV4(s.AccessKey, s.SecretKey, "")
	} else {
		opts.Creds = credentials.NewStaticV4("", "", "")
	}

	client, err := minio.New(s.Endpoint, opts)
	if err != nil {
		return fmt.Errorf("failed to create object storage client: %w", err)
	}

	log.Printf("Fetching snapshot %s/%s from %s", s.Bucket, s.Object, s.Endpoint)

	if err := client.FGetObject(ctx, s.Bucket, s.Object, destPath, minio.GetObjectOptions{}); err != nil {
		return fmt.Errorf("failed to download snapshot %s/%s: %w", s.Bucket, s.Object, err)
	}

	return nil
}
