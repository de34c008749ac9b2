// Package s3fetch moves watch-history exports and Parquet files between S3
// and the local machine.
package s3fetch

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Options configures a Client.
type Options struct {
	// Region overrides the region from the default AWS configuration chain.
	Region string
	// Transfer tunes multipart downloads and uploads.
	Transfer TransferConfig
}

// Client provides the S3 operations used by ingest and export.
type Client struct {
	s3Client *s3.Client
	transfer *Transfer
}

// NewClient creates a new S3 client using the default AWS configuration chain.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	var loadOpts []func(*config.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return NewClientWithConfig(cfg, opts.Transfer), nil
}

// NewClientWithConfig creates a new S3 client with a custom AWS config.
func NewClientWithConfig(cfg aws.Config, tc TransferConfig) *Client {
	s3Client := s3.NewFromConfig(cfg)
	return &Client{
		s3Client: s3Client,
		transfer: NewTransfer(s3Client, tc),
	}
}

// Open downloads the object at uri to a temporary file and returns a reader
// over it. Closing the reader removes the temporary file.
func (c *Client) Open(ctx context.Context, uri string) (io.ReadCloser, *TransferResult, error) {
	bucket, key, err := ParseObjectURI(uri)
	if err != nil {
		return nil, nil, err
	}
	return c.transfer.DownloadToReader(ctx, bucket, key)
}

// Put uploads the contents of r to uri.
func (c *Client) Put(ctx context.Context, uri string, r io.Reader) (*TransferResult, error) {
	bucket, key, err := ParseObjectURI(uri)
	if err != nil {
		return nil, err
	}
	return c.transfer.Upload(ctx, bucket, key, r)
}
