package writerbackends

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type s3Uploader struct {
	bucket   string
	uploader *manager.Uploader
}

// newS3Uploader uses static credentials from AWS_ACCESS_KEY_ID and
// AWS_SECRET_ACCESS_KEY, and the region from AWS_REGION
func newS3Uploader(target Target) (*s3Uploader, error) {
	accessKey := os.Getenv("AWS_ACCESS_KEY_ID")
	secretKey := os.Getenv("AWS_SECRET_ACCESS_KEY")
	region := os.Getenv("AWS_REGION")
	if accessKey == "" || secretKey == "" {
		return nil, fmt.Errorf("s3 publish needs AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY")
	}
	if region == "" {
		region = "us-east-1"
	}

	client := s3.New(s3.Options{
		Region:      region,
		Credentials: credentials.NewStaticCredentialsProvider(accessKey, secretKey, os.Getenv("AWS_SESSION_TOKEN")),
	})
	return &s3Uploader{bucket: target.Host, uploader: manager.NewUploader(client)}, nil
}

func (u *s3Uploader) Upload(ctx context.Context, key, contentType string, reader io.Reader) error {
	_, err := u.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        reader,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload object %s to bucket %s: %w", key, u.bucket, err)
	}
	return nil
}

func (u *s3Uploader) Close() error { return nil }
