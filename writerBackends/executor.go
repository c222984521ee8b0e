package writerbackends

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"pixscale/logger"
)

// Uploader writes one object to a publish target
type Uploader interface {
	Upload(ctx context.Context, key, contentType string, reader io.Reader) error
	Close() error
}

// Result counts published and failed files
type Result struct {
	Uploaded int
	Failed   []string
}

// NewUploader connects to the backend named by the target scheme
func NewUploader(ctx context.Context, target Target) (Uploader, error) {
	switch target.Scheme {
	case "file":
		return newLocalMirror(target), nil
	case "s3":
		return newS3Uploader(target)
	case "gs":
		return newGCSUploader(ctx, target)
	case "sftp":
		return newSFTPUploader(ctx, target)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedTarget, target.Scheme)
	}
}

// Publish uploads files (paths below outputRoot) to target, keeping their
// path relative to outputRoot. A failed file does not stop the others.
func Publish(ctx context.Context, target Target, outputRoot string, files []string) (Result, error) {
	uploader, err := NewUploader(ctx, target)
	if err != nil {
		return Result{}, err
	}
	defer uploader.Close()
	return publishWith(ctx, uploader, target, outputRoot, files), nil
}

func publishWith(ctx context.Context, uploader Uploader, target Target, outputRoot string, files []string) Result {
	var res Result
	for _, file := range files {
		if ctx.Err() != nil {
			res.Failed = append(res.Failed, file)
			continue
		}
		if err := publishFile(ctx, uploader, target, outputRoot, file); err != nil {
			logger.Errorf("Failed to publish %s: %v", file, err)
			res.Failed = append(res.Failed, file)
			continue
		}
		res.Uploaded++
	}
	return res
}

func publishFile(ctx context.Context, uploader Uploader, target Target, outputRoot, file string) error {
	rel, err := filepath.Rel(outputRoot, file)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%s is not below %s", file, outputRoot)
	}

	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	mtype, err := mimetype.DetectReader(f)
	if err != nil {
		return fmt.Errorf("detect content type: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}

	key := target.Key(filepath.ToSlash(rel))
	if err := uploader.Upload(ctx, key, mtype.String(), f); err != nil {
		return err
	}
	logger.Debugf("Published %s to %s", rel, key)
	return nil
}
