package writerbackends

import (
	"context"
	"fmt"
	"io"
	"os"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

type gcsUploader struct {
	client *storage.Client
	bucket *storage.BucketHandle
}

// newGCSUploader reads a service account key from GOOGLE_APPLICATION_CREDENTIALS
func newGCSUploader(ctx context.Context, target Target) (*gcsUploader, error) {
	credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
	if credFile == "" {
		return nil, fmt.Errorf("gs publish needs GOOGLE_APPLICATION_CREDENTIALS")
	}
	client, err := storage.NewClient(ctx, option.WithCredentialsFile(credFile))
	if err != nil {
		return nil, fmt.Errorf("storage.NewClient: %w", err)
	}
	return &gcsUploader{client: client, bucket: client.Bucket(target.Host)}, nil
}

func (u *gcsUploader) Upload(ctx context.Context, key, contentType string, reader io.Reader) error {
	wc := u.bucket.Object(key).NewWriter(ctx)
	wc.ContentType = contentType

	if _, err := io.Copy(wc, reader); err != nil {
		wc.Close()
		return fmt.Errorf("io.Copy: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("Writer.Close: %w", err)
	}
	return nil
}

func (u *gcsUploader) Close() error {
	return u.client.Close()
}
