// Package upload handles object upload operations.
//
// Objects are sent with a single PutObject request. The source is read into
// memory first so the request body is seekable for signing and retries, and
// reading it stops as soon as the caller's context is canceled.
package upload

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/input-output-hk/catalyst-forge-libs/storage/errors"
	"github.com/input-output-hk/catalyst-forge-libs/storage/internal/pool"
	"github.com/input-output-hk/catalyst-forge-libs/storage/internal/s3api"
	"github.com/input-output-hk/catalyst-forge-libs/storage/internal/transfer"
	"github.com/input-output-hk/catalyst-forge-libs/storage/s3types"
)

// Uploader handles upload operations with progress tracking support.
type Uploader struct {
	s3Client s3api.S3API
}

// New creates a new Uploader instance.
func New(s3Client s3api.S3API) *Uploader {
	return &Uploader{
		s3Client: s3Client,
	}
}

// Upload reads reader to the end and stores it under key. size is a hint
// used for progress totals; pass 0 when it is unknown.
func (u *Uploader) Upload(
	ctx context.Context,
	bucket, key string,
	reader io.Reader,
	size int64,
	config *s3types.UploadConfig,
	startTime time.Time,
	optFns ...func(*s3.Options),
) (*s3types.UploadResult, error) {
	if config == nil {
		config = &s3types.UploadConfig{}
	}

	src := transfer.NewProgressReader(transfer.NewCancelableReader(ctx, reader), config.ProgressTracker, size)
	buf := pool.GetBody(size)
	defer pool.PutBody(buf)

	if _, err := buf.ReadFrom(src); err != nil {
		u.reportError(config, err)
		if ctx.Err() != nil {
			return nil, errors.NewCanceledError("upload", context.Cause(ctx)).WithBucket(bucket).WithKey(key)
		}
		return nil, errors.NewValidationError("upload", err).
			WithBucket(bucket).
			WithKey(key).
			WithMessage("failed to read upload source")
	}

	return u.put(ctx, bucket, key, buf.Bytes(), config, startTime, optFns...)
}

func (u *Uploader) put(
	ctx context.Context,
	bucket, key string,
	data []byte,
	config *s3types.UploadConfig,
	startTime time.Time,
	optFns ...func(*s3.Options),
) (*s3types.UploadResult, error) {
	size := int64(len(data))

	input := &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(size),
	}

	if config.ContentType != "" {
		input.ContentType = aws.String(config.ContentType)
	}

	if len(config.Metadata) > 0 {
		input.Metadata = config.Metadata
	}

	output, err := u.s3Client.PutObject(ctx, input, optFns...)
	if err != nil {
		u.reportError(config, err)
		return nil, errors.FromService("upload", bucket, key, err)
	}

	if config.ProgressTracker != nil {
		config.ProgressTracker.Update(size, size)
		config.ProgressTracker.Complete()
	}

	return &s3types.UploadResult{
		Key:         key,
		Size:        size,
		ContentType: config.ContentType,
		ETag:        aws.ToString(output.ETag),
		VersionID:   aws.ToString(output.VersionId),
		Duration:    time.Since(startTime),
	}, nil
}

func (u *Uploader) reportError(config *s3types.UploadConfig, err error) {
	if config.ProgressTracker != nil {
		config.ProgressTracker.Error(err)
	}
}
