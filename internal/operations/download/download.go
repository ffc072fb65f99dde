// Package download handles S3 object download operations.
// This includes stream-based downloads, buffered downloads, and range requests.
//
// Downloads are bound to the caller's context: when it is canceled the
// response body is closed immediately so an in-flight read terminates and
// the connection is released.
package download

import (
	"bytes"
	"context"
	"io"
	"maps"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/input-output-hk/catalyst-forge-libs/storage/errors"
	"github.com/input-output-hk/catalyst-forge-libs/storage/internal/pool"
	"github.com/input-output-hk/catalyst-forge-libs/storage/internal/s3api"
	"github.com/input-output-hk/catalyst-forge-libs/storage/internal/transfer"
	"github.com/input-output-hk/catalyst-forge-libs/storage/s3types"
)

// Downloader handles S3 download operations with progress tracking support.
type Downloader struct {
	s3Client s3api.S3API
}

// New creates a new Downloader instance.
func New(s3Client s3api.S3API) *Downloader {
	return &Downloader{
		s3Client: s3Client,
	}
}

// Download downloads an object from S3 and writes it to an io.Writer.
// The returned result carries every metadata attribute reported by GetObject.
// Result.Key is set to key; callers that strip a prefix overwrite it.
func (d *Downloader) Download(
	ctx context.Context,
	bucket, key string,
	writer io.Writer,
	config *s3types.DownloadConfig,
	startTime time.Time,
	optFns ...func(*s3.Options),
) (*s3types.DownloadResult, error) {
	if config == nil {
		config = &s3types.DownloadConfig{}
	}

	// Prepare the GetObject input
	input := &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}

	// Set range if specified
	if config.RangeSpec != "" {
		input.Range = aws.String(config.RangeSpec)
	}

	output, err := d.s3Client.GetObject(ctx, input, optFns...)
	if err != nil {
		d.reportError(config, err)
		return nil, errors.FromService("download", bucket, key, err)
	}

	body := transfer.NewCancelableBody(ctx, output.Body)
	defer body.Close()

	size := aws.ToInt64(output.ContentLength)
	reader := transfer.NewProgressReader(body, config.ProgressTracker, size)

	dst := &destination{w: writer}
	bytesWritten, err := pool.Copy(dst, reader)
	if err != nil {
		d.reportError(config, err)
		switch {
		case ctx.Err() != nil:
			return nil, errors.NewCanceledError("download", context.Cause(ctx)).WithBucket(bucket).WithKey(key)
		case dst.err != nil:
			return nil, errors.NewLocalError("download", dst.err).
				WithBucket(bucket).
				WithKey(key).
				WithMessage("failed to write destination")
		}
		return nil, errors.FromService("download", bucket, key, err)
	}

	// Update size if ContentLength was not provided
	if size == 0 {
		size = bytesWritten
	}

	if config.ProgressTracker != nil {
		config.ProgressTracker.Update(bytesWritten, size)
		config.ProgressTracker.Complete()
	}

	result := &s3types.DownloadResult{
		Key:          key,
		LastModified: aws.ToTime(output.LastModified),
		Size:         size,
		ContentType:  aws.ToString(output.ContentType),
		ETag:         aws.ToString(output.ETag),
		VersionID:    aws.ToString(output.VersionId),
		Duration:     time.Since(startTime),
	}

	// Copy user metadata if present
	if output.Metadata != nil {
		result.Metadata = make(map[string]string, len(output.Metadata))
		maps.Copy(result.Metadata, output.Metadata)
	}

	return result, nil
}

// Get downloads an entire object and returns it in Result.Body.
// This is a convenience method for objects that fit in memory.
func (d *Downloader) Get(
	ctx context.Context,
	bucket, key string,
	config *s3types.DownloadConfig,
	startTime time.Time,
	optFns ...func(*s3.Options),
) (*s3types.DownloadResult, error) {
	var buf bytes.Buffer
	result, err := d.Download(ctx, bucket, key, &buf, config, startTime, optFns...)
	if err != nil {
		return nil, err
	}
	result.Body = buf.Bytes()
	return result, nil
}

// destination remembers the first write failure so it can be told apart
// from a failure reading the response body.
type destination struct {
	w   io.Writer
	err error
}

func (d *destination) Write(p []byte) (int, error) {
	n, err := d.w.Write(p)
	if err == nil && n < len(p) {
		err = io.ErrShortWrite
	}
	if err != nil && d.err == nil {
		d.err = err
	}
	//nolint:wrapcheck // io.Writer interface contract - error comes from the caller's writer
	return n, err
}

func (d *Downloader) reportError(config *s3types.DownloadConfig, err error) {
	if config.ProgressTracker != nil {
		config.ProgressTracker.Error(err)
	}
}
