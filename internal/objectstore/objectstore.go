// Package objectstore implements the external `fetch(id) → bytes`
// boundary named by the Execution Coordinator (spec.md §4.D) against
// S3-compatible object storage.
package objectstore

import (
	"bytes"
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"sandboxcore/internal/apierr"
	"sandboxcore/internal/config"
)

// Client fetches and stores session-attached files by id.
type Client struct {
	bucket     string
	s3Client   *s3.Client
	downloader *manager.Downloader
	uploader   *manager.Uploader
}

// New builds a Client from cfg, resolving AWS credentials and region the
// standard SDK way (environment, shared config, instance profile); cfg.Endpoint
// overrides the resolved endpoint for MinIO-style deployments.
func New(ctx context.Context, cfg config.ObjectStoreConfig) (*Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, apierr.NewInternalError(err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &Client{
		bucket:     cfg.Bucket,
		s3Client:   s3Client,
		downloader: manager.NewDownloader(s3Client),
		uploader:   manager.NewUploader(s3Client),
	}, nil
}

// Fetch downloads the object keyed by id into memory.
func (c *Client) Fetch(ctx context.Context, id string) ([]byte, error) {
	buf := manager.NewWriteAtBuffer(nil)
	_, err := c.downloader.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(id),
	})
	if err != nil {
		return nil, apierr.NewInputFileError(id, err)
	}
	return buf.Bytes(), nil
}

// Put uploads data under id. Used for the harvested-output half of the
// path the Coordinator does not itself persist long-term.
func (c *Client) Put(ctx context.Context, id string, data []byte) error {
	_, err := c.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(id),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return apierr.NewInternalError(err)
	}
	return nil
}

// Delete removes the object keyed by id; used by the health probe's
// put/get/delete round trip against a fixed probe key.
func (c *Client) Delete(ctx context.Context, id string) error {
	_, err := c.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(id),
	})
	if err != nil {
		return apierr.NewInternalError(err)
	}
	return nil
}

// Exists reports whether the bucket itself is reachable (HeadBucket), a
// liveness signal lighter than a full put/get/delete round trip. The
// health probe does not call it; it runs the full round trip.
func (c *Client) Exists(ctx context.Context) error {
	_, err := c.s3Client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.bucket)})
	if err != nil {
		return apierr.NewInternalError(err)
	}
	return nil
}
