package storage

import (
	"io"
	"maps"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/input-output-hk/catalyst-forge-libs/fs"
	"github.com/sirupsen/logrus"

	"github.com/input-output-hk/catalyst-forge-libs/storage/s3types"
)

// WithRegion sets the AWS region for S3 operations.
// If not specified, uses the default AWS region from the credential chain.
func WithRegion(region string) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Region = region
	}
}

// WithBucket sets the bucket used by the default resolver.
func WithBucket(bucket string) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Bucket = bucket
	}
}

// WithMaxRetries sets the maximum number of attempts made by the AWS SDK.
// Default is 3. The storage operations themselves never retry.
func WithMaxRetries(maxRetries int) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.MaxRetries = maxRetries
	}
}

// WithForcePathStyle forces the use of path-style URLs instead of virtual-hosted style.
// This is required for S3-compatible services that don't support virtual hosting.
func WithForcePathStyle(forcePathStyle bool) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.ForcePathStyle = forcePathStyle
	}
}

// WithAWSConfig allows providing a custom AWS configuration.
// This overrides the default configuration loading behavior.
func WithAWSConfig(config *aws.Config) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.CustomAWSConfig = config
	}
}

// WithEndpoint sets a custom S3 endpoint URL.
// This is useful for S3-compatible services or local testing with LocalStack.
func WithEndpoint(endpoint string) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Endpoint = endpoint
	}
}

// WithCustomHTTPClient allows providing a custom HTTP client.
func WithCustomHTTPClient(client *http.Client) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.CustomHTTPClient = client
	}
}

// WithCredentialsProvider sets the provider the default resolver retrieves
// credentials from on every call.
func WithCredentialsProvider(provider aws.CredentialsProvider) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.CredentialsProvider = provider
	}
}

// WithIdentityID sets the caller's identity for the protected and private
// access levels.
func WithIdentityID(identityID string) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.IdentityID = identityID
	}
}

// WithDefaultAccessLevel sets the access level used when an operation does
// not name one. Default is guest.
func WithDefaultAccessLevel(level s3types.AccessLevel) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.DefaultAccessLevel = level
	}
}

// WithResolver replaces the default resolver. Bucket, region, identity and
// credentials options are then ignored by resolution.
func WithResolver(r s3types.Resolver) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Resolver = r
	}
}

// WithLogger sets the logger. Default is the logrus standard logger.
func WithLogger(logger *logrus.Logger) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Logger = logger
	}
}

// WithFilesystem sets the filesystem used by DownloadFile and UploadFile.
// If not specified, defaults to the OS filesystem.
func WithFilesystem(filesystem fs.Filesystem) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Filesystem = filesystem
	}
}

// WithClock sets the time source used for URL expiration.
func WithClock(now func() time.Time) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Clock = now
	}
}

// WithDownloadProgress sets a progress tracker for download operations.
func WithDownloadProgress(tracker s3types.ProgressTracker) s3types.DownloadOption {
	return func(c *s3types.DownloadOptionConfig) {
		c.ProgressTracker = tracker
	}
}

// WithDownloadProgressFunc reports download progress to fn.
func WithDownloadProgressFunc(fn func(s3types.TransferProgress)) s3types.DownloadOption {
	return WithDownloadProgress(s3types.ProgressFunc(fn))
}

// WithRange requests a byte range, e.g. "bytes=0-1023".
func WithRange(rangeSpec string) s3types.DownloadOption {
	return func(c *s3types.DownloadOptionConfig) {
		c.RangeSpec = rangeSpec
	}
}

// WithDestination streams the object into w instead of buffering it in
// DownloadResult.Body.
func WithDestination(w io.Writer) s3types.DownloadOption {
	return func(c *s3types.DownloadOptionConfig) {
		c.Destination = w
	}
}

// WithAccessLevel selects the namespace a download reads from.
func WithAccessLevel(level s3types.AccessLevel) s3types.DownloadOption {
	return func(c *s3types.DownloadOptionConfig) {
		c.AccessLevel = level
	}
}

// WithTargetIdentityID reads another identity's protected objects.
// It has no effect for the guest and private levels.
func WithTargetIdentityID(identityID string) s3types.DownloadOption {
	return func(c *s3types.DownloadOptionConfig) {
		c.TargetIdentityID = identityID
	}
}

// WithContentType sets the content type for upload operations.
func WithContentType(contentType string) s3types.UploadOption {
	return func(c *s3types.UploadOptionConfig) {
		c.ContentType = contentType
	}
}

// WithMetadata sets metadata for upload operations.
func WithMetadata(metadata map[string]string) s3types.UploadOption {
	return func(c *s3types.UploadOptionConfig) {
		if c.Metadata == nil {
			c.Metadata = make(map[string]string, len(metadata))
		}
		maps.Copy(c.Metadata, metadata)
	}
}

// WithProgress sets a progress tracker for upload operations.
func WithProgress(tracker s3types.ProgressTracker) s3types.UploadOption {
	return func(c *s3types.UploadOptionConfig) {
		c.ProgressTracker = tracker
	}
}

// WithProgressFunc reports upload progress to fn.
func WithProgressFunc(fn func(s3types.TransferProgress)) s3types.UploadOption {
	return WithProgress(s3types.ProgressFunc(fn))
}

// WithUploadAccessLevel selects the namespace an upload writes to.
func WithUploadAccessLevel(level s3types.AccessLevel) s3types.UploadOption {
	return func(c *s3types.UploadOptionConfig) {
		c.AccessLevel = level
	}
}

// WithExpiresIn sets the requested URL lifetime. It is rounded down to whole
// seconds. Default is 900 seconds.
func WithExpiresIn(d time.Duration) s3types.GetURLOption {
	return func(c *s3types.GetURLOptionConfig) {
		c.ExpiresIn = d
	}
}

// WithValidateObjectExistence makes GetURL check the object exists before signing.
func WithValidateObjectExistence(validate bool) s3types.GetURLOption {
	return func(c *s3types.GetURLOptionConfig) {
		c.ValidateObjectExistence = validate
	}
}

// WithURLAccessLevel selects the namespace of the object to sign.
func WithURLAccessLevel(level s3types.AccessLevel) s3types.GetURLOption {
	return func(c *s3types.GetURLOptionConfig) {
		c.AccessLevel = level
	}
}

// WithURLTargetIdentityID signs a URL for another identity's protected object.
func WithURLTargetIdentityID(identityID string) s3types.GetURLOption {
	return func(c *s3types.GetURLOptionConfig) {
		c.TargetIdentityID = identityID
	}
}

// WithPropertiesAccessLevel selects the namespace of the object to inspect.
func WithPropertiesAccessLevel(level s3types.AccessLevel) s3types.PropertiesOption {
	return func(c *s3types.PropertiesOptionConfig) {
		c.AccessLevel = level
	}
}

// WithPropertiesTargetIdentityID inspects another identity's protected object.
func WithPropertiesTargetIdentityID(identityID string) s3types.PropertiesOption {
	return func(c *s3types.PropertiesOptionConfig) {
		c.TargetIdentityID = identityID
	}
}
