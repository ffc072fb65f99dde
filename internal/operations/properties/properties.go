// Package properties reads object metadata without transferring the body.
package properties

import (
	"context"
	"maps"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/input-output-hk/catalyst-forge-libs/storage/errors"
	"github.com/input-output-hk/catalyst-forge-libs/storage/internal/s3api"
	"github.com/input-output-hk/catalyst-forge-libs/storage/s3types"
)

// Reader issues HeadObject requests.
type Reader struct {
	s3Client s3api.S3API
}

// New creates a new Reader.
func New(s3Client s3api.S3API) *Reader {
	return &Reader{s3Client: s3Client}
}

// Head returns the properties of bucket/key. Result.Key is set to key.
func (r *Reader) Head(
	ctx context.Context,
	bucket, key string,
	optFns ...func(*s3.Options),
) (*s3types.ObjectProperties, error) {
	output, err := r.s3Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, optFns...)
	if err != nil {
		return nil, errors.FromService("getProperties", bucket, key, err)
	}

	props := &s3types.ObjectProperties{
		Key:          key,
		ContentType:  aws.ToString(output.ContentType),
		Size:         aws.ToInt64(output.ContentLength),
		LastModified: aws.ToTime(output.LastModified),
		ETag:         aws.ToString(output.ETag),
		VersionID:    aws.ToString(output.VersionId),
	}
	if output.Metadata != nil {
		props.Metadata = make(map[string]string, len(output.Metadata))
		maps.Copy(props.Metadata, output.Metadata)
	}

	return props, nil
}

// Exists reports whether bucket/key exists. A not-found response is not an
// error; any other failure is.
func (r *Reader) Exists(ctx context.Context, bucket, key string, optFns ...func(*s3.Options)) (bool, error) {
	_, err := r.Head(ctx, bucket, key, optFns...)
	if err == nil {
		return true, nil
	}
	if errors.IsObjectNotFound(err) {
		return false, nil
	}
	return false, err
}
