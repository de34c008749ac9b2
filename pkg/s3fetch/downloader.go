package s3fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ArseniyKD/yt-history-analysis/pkg/logging"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// TransferConfig configures the S3 transfer managers.
type TransferConfig struct {
	// Concurrency is the number of parts transferred in parallel.
	// Default: 4. Watch-history exports are tens of megabytes at most.
	Concurrency int

	// PartSize is the size of each part in bytes. Default: 8MB.
	PartSize int64

	// TempDir is the directory for temporary download files.
	// If empty, os.TempDir() is used.
	TempDir string
}

// DefaultTransferConfig returns the default transfer settings.
func DefaultTransferConfig() TransferConfig {
	return TransferConfig{
		Concurrency: 4,
		PartSize:    8 * 1024 * 1024, // 8MB
	}
}

// withDefaults fills zero fields from DefaultTransferConfig.
func (c TransferConfig) withDefaults() TransferConfig {
	def := DefaultTransferConfig()
	if c.Concurrency <= 0 {
		c.Concurrency = def.Concurrency
	}
	if c.PartSize < manager.MinUploadPartSize {
		c.PartSize = def.PartSize
	}
	return c
}

// Transfer wraps the AWS download and upload managers.
type Transfer struct {
	downloader *manager.Downloader
	uploader   *manager.Uploader
	config     TransferConfig
}

// NewTransfer creates transfer managers from an existing S3 client.
func NewTransfer(s3Client *s3.Client, cfg TransferConfig) *Transfer {
	cfg = cfg.withDefaults()

	return &Transfer{
		downloader: manager.NewDownloader(s3Client, func(d *manager.Downloader) {
			d.Concurrency = cfg.Concurrency
			d.PartSize = cfg.PartSize
		}),
		uploader: manager.NewUploader(s3Client, func(u *manager.Uploader) {
			u.Concurrency = cfg.Concurrency
			u.PartSize = cfg.PartSize
		}),
		config: cfg,
	}
}

// TransferResult contains information about a completed transfer.
type TransferResult struct {
	// Bytes is the number of bytes moved. Uploads from a non-seekable
	// reader report -1.
	Bytes int64

	// Duration is how long the transfer took.
	Duration time.Duration
}

// DownloadToReader downloads an S3 object and returns a reader over a local
// copy. The temp file is removed when the reader is closed.
func (t *Transfer) DownloadToReader(ctx context.Context, bucket, key string) (io.ReadCloser, *TransferResult, error) {
	start := time.Now()

	tempFile, err := os.CreateTemp(t.config.TempDir, "ythist-download-*.tmp")
	if err != nil {
		return nil, nil, fmt.Errorf("create temp file: %w", err)
	}

	n, err := t.downloader.Download(ctx, tempFile, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		tempFile.Close()
		os.Remove(tempFile.Name())
		return nil, nil, fmt.Errorf("download s3://%s/%s: %w", bucket, key, err)
	}

	if _, err := tempFile.Seek(0, io.SeekStart); err != nil {
		tempFile.Close()
		os.Remove(tempFile.Name())
		return nil, nil, fmt.Errorf("seek temp file: %w", err)
	}

	result := &TransferResult{Bytes: n, Duration: time.Since(start)}
	log := logging.WithPhase("s3_download")
	log.Debug().
		Str("bucket", bucket).
		Str("key", key).
		Int64("bytes", n).
		Dur("duration", result.Duration).
		Msg("downloaded object")

	return &tempFileReader{file: tempFile, path: tempFile.Name()}, result, nil
}

// Upload streams r to s3://bucket/key using multipart upload for large bodies.
func (t *Transfer) Upload(ctx context.Context, bucket, key string, r io.Reader) (*TransferResult, error) {
	start := time.Now()

	size := int64(-1)
	if s, ok := r.(io.Seeker); ok {
		if end, err := s.Seek(0, io.SeekEnd); err == nil {
			if _, err := s.Seek(0, io.SeekStart); err != nil {
				return nil, fmt.Errorf("rewind upload body: %w", err)
			}
			size = end
		}
	}

	if _, err := t.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   r,
	}); err != nil {
		return nil, fmt.Errorf("upload s3://%s/%s: %w", bucket, key, err)
	}

	return &TransferResult{Bytes: size, Duration: time.Since(start)}, nil
}

// tempFileReader wraps an os.File and deletes it on close.
type tempFileReader struct {
	file *os.File
	path string
}

func (r *tempFileReader) Read(p []byte) (n int, err error) {
	n, err = r.file.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, fmt.Errorf("read temp file: %w", err)
	}
	return n, err
}

func (r *tempFileReader) Close() error {
	err := r.file.Close()
	os.Remove(r.path)
	if err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	return nil
}
