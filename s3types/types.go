// Package s3types provides shared type definitions for the storage module.
package s3types

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/input-output-hk/catalyst-forge-libs/fs"
	"github.com/sirupsen/logrus"
)

// AccessLevel is the logical namespace an object key lives in.
type AccessLevel string

// Predefined access levels
const (
	// AccessLevelGuest stores objects under the shared "public/" prefix
	AccessLevelGuest AccessLevel = "guest"

	// AccessLevelProtected stores objects under "protected/{identityId}/".
	// Other identities may read them by naming the owner as target identity.
	AccessLevelProtected AccessLevel = "protected"

	// AccessLevelPrivate stores objects under "private/{identityId}/"
	AccessLevelPrivate AccessLevel = "private"
)

// Valid reports whether the access level is one of the predefined values.
func (l AccessLevel) Valid() bool {
	switch l {
	case AccessLevelGuest, AccessLevelProtected, AccessLevelPrivate:
		return true
	default:
		return false
	}
}

// ProgressTracker defines the interface for tracking transfer progress.
// Implementations can provide real-time progress updates during uploads and downloads.
type ProgressTracker interface {
	// Update is called periodically with transfer progress
	Update(bytesTransferred, totalBytes int64)

	// Complete is called when the transfer completes successfully
	Complete()

	// Error is called when the transfer fails
	Error(err error)
}

// TransferProgress is a single progress event. Total is zero when the
// service did not report a content length.
type TransferProgress struct {
	Transferred int64
	Total       int64
}

// ProgressFunc adapts a plain callback to ProgressTracker.
// Complete and Error are no-ops.
type ProgressFunc func(TransferProgress)

// Update implements ProgressTracker.
func (f ProgressFunc) Update(bytesTransferred, totalBytes int64) {
	f(TransferProgress{Transferred: bytesTransferred, Total: totalBytes})
}

// Complete implements ProgressTracker.
func (f ProgressFunc) Complete() {}

// Error implements ProgressTracker.
func (f ProgressFunc) Error(error) {}

// DownloadResult contains the result of a download operation.
// All metadata returned by the service is carried through unchanged.
type DownloadResult struct {
	// Key is the logical key the caller asked for (without prefix)
	Key string

	// Body holds the object content when no destination writer was supplied
	Body []byte

	// LastModified is when the object was last modified
	LastModified time.Time

	// Size is the size of the downloaded object in bytes
	Size int64

	// ContentType is the MIME type of the object
	ContentType string

	// ETag is the S3 entity tag for the downloaded object
	ETag string

	// VersionID is the version ID if versioning is enabled
	VersionID string

	// Metadata contains user-defined metadata
	Metadata map[string]string

	// Duration is how long the download took
	Duration time.Duration
}

// UploadResult contains the result of an upload operation.
type UploadResult struct {
	// Key is the logical key that was uploaded (without prefix)
	Key string

	// Size is the size of the uploaded object in bytes
	Size int64

	// ContentType is the content type sent with the object
	ContentType string

	// ETag is the S3 entity tag for the uploaded object
	ETag string

	// VersionID is the version ID if versioning is enabled
	VersionID string

	// Duration is how long the upload took
	Duration time.Duration
}

// ObjectProperties contains detailed metadata about an object.
type ObjectProperties struct {
	// Key is the logical key (without prefix)
	Key string

	// ContentType is the MIME type of the object
	ContentType string

	// Size is the size of the object in bytes
	Size int64

	// LastModified is when the object was last modified
	LastModified time.Time

	// ETag is the S3 entity tag for the object
	ETag string

	// VersionID is the version ID if versioning is enabled
	VersionID string

	// Metadata contains user-defined metadata
	Metadata map[string]string
}

// GetURLResult is a presigned URL together with the instant it stops being valid.
type GetURLResult struct {
	URL       string
	ExpiresAt time.Time
}

// ResolveInput carries the per-call namespace selection for a Resolver.
type ResolveInput struct {
	// AccessLevel overrides the default access level when non-empty
	AccessLevel AccessLevel

	// TargetIdentityID names another identity's namespace. Only honoured
	// for AccessLevelProtected.
	TargetIdentityID string
}

// ResolvedConfig is the physical location and credentials for one call.
type ResolvedConfig struct {
	Bucket      string
	KeyPrefix   string
	Region      string
	IdentityID  string
	AccessLevel AccessLevel
	Credentials aws.Credentials
}

// ResolvedCredentials is the outcome of a credentials-only resolution.
type ResolvedCredentials struct {
	Credentials aws.Credentials
	IdentityID  string
}

// Resolver maps a logical storage target to bucket, key prefix and credentials.
// Implementations must be safe for concurrent use and must not cache
// credentials on behalf of the caller.
type Resolver interface {
	Resolve(ctx context.Context, in ResolveInput) (*ResolvedConfig, error)
	ResolveCredentials(ctx context.Context) (*ResolvedCredentials, error)
}

// Configuration types for functional options

// ClientConfig holds configuration for the storage client.
type ClientConfig struct {
	Region              string
	Bucket              string
	Endpoint            string
	MaxRetries          int
	ForcePathStyle      bool
	CustomAWSConfig     *aws.Config
	CustomHTTPClient    *http.Client
	CredentialsProvider aws.CredentialsProvider
	IdentityID          string
	DefaultAccessLevel  AccessLevel
	Resolver            Resolver
	Logger              *logrus.Logger
	Filesystem          fs.Filesystem
	Clock               func() time.Time
}

// DownloadOptionConfig holds configuration for download operations via functional options.
type DownloadOptionConfig struct {
	ProgressTracker  ProgressTracker
	RangeSpec        string // renamed from "range" to avoid Go keyword conflict
	AccessLevel      AccessLevel
	TargetIdentityID string
	Destination      io.Writer
}

// UploadOptionConfig holds configuration for upload operations via functional options.
type UploadOptionConfig struct {
	ContentType     string
	Metadata        map[string]string
	ProgressTracker ProgressTracker
	AccessLevel     AccessLevel
}

// GetURLOptionConfig holds configuration for presigned URL generation.
type GetURLOptionConfig struct {
	ExpiresIn               time.Duration
	ValidateObjectExistence bool
	AccessLevel             AccessLevel
	TargetIdentityID        string
}

// PropertiesOptionConfig holds configuration for property lookups.
type PropertiesOptionConfig struct {
	AccessLevel      AccessLevel
	TargetIdentityID string
}

// DownloadConfig is the resolved configuration handed to the download operation.
type DownloadConfig struct {
	ProgressTracker ProgressTracker
	RangeSpec       string
}

// UploadConfig is the resolved configuration handed to the upload operation.
type UploadConfig struct {
	ContentType     string
	Metadata        map[string]string
	ProgressTracker ProgressTracker
}

// Option is a functional option for configuring the storage client.
type (
	Option func(*ClientConfig)
	// DownloadOption is a functional option for configuring download operations.
	DownloadOption func(*DownloadOptionConfig)
	// UploadOption is a functional option for configuring upload operations.
	UploadOption func(*UploadOptionConfig)
	// GetURLOption is a functional option for configuring presigned URL generation.
	GetURLOption func(*GetURLOptionConfig)
	// PropertiesOption is a functional option for configuring property lookups.
	PropertiesOption func(*PropertiesOptionConfig)
)
