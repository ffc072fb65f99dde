// Package errors provides error types and handling for storage operations.
package errors

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
)

// Kind classifies an Error so callers can branch on the failure category
// without inspecting messages.
type Kind int

const (
	// KindUnknown is used for errors that have not been classified.
	KindUnknown Kind = iota

	// KindValidation marks caller input errors raised before any network I/O.
	KindValidation

	// KindResolution marks failures to resolve configuration, identity or credentials.
	KindResolution

	// KindService marks failures reported by the object service or the presigner.
	KindService

	// KindCanceled marks operations that were canceled before they settled.
	KindCanceled

	// KindLocal marks failures of the local side of a transfer, such as
	// writing to a destination or creating a file.
	KindLocal
)

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindResolution:
		return "resolution"
	case KindService:
		return "service"
	case KindCanceled:
		return "canceled"
	case KindLocal:
		return "local"
	default:
		return "unknown"
	}
}

// Error represents a storage operation error with context about the operation that failed.
// It wraps the underlying AWS SDK error with additional context for better debugging.
type Error struct {
	// Op is the operation that failed (e.g., "downloadData", "getUrl")
	Op string

	// Kind is the failure category
	Kind Kind

	// Bucket is the S3 bucket name (if applicable)
	Bucket string

	// Key is the S3 object key (if applicable)
	Key string

	// Err is the underlying error from the AWS SDK or other source
	Err error
}

// Error implements the error interface by providing a formatted error message.
func (e *Error) Error() string {
	if e.Bucket != "" && e.Key != "" {
		return fmt.Sprintf("storage.%s %s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
	}
	if e.Bucket != "" {
		return fmt.Sprintf("storage.%s bucket %s: %v", e.Op, e.Bucket, e.Err)
	}
	if e.Key != "" {
		return fmt.Sprintf("storage.%s object %s: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("storage.%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error chaining support.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithBucket adds bucket context to an existing error.
func (e *Error) WithBucket(bucket string) *Error {
	e.Bucket = bucket
	return e
}

// WithKey adds object key context to an existing error.
func (e *Error) WithKey(key string) *Error {
	e.Key = key
	return e
}

// WithMessage wraps the underlying error with a custom message.
func (e *Error) WithMessage(message string) *Error {
	e.Err = fmt.Errorf("%s: %w", message, e.Err)
	return e
}

// NewError creates a new unclassified Error with the given operation and underlying error.
func NewError(op string, err error) *Error {
	return &Error{
		Op:  op,
		Err: err,
	}
}

// NewValidationError creates an Error of kind KindValidation.
func NewValidationError(op string, err error) *Error {
	return &Error{Op: op, Kind: KindValidation, Err: err}
}

// NewResolutionError creates an Error of kind KindResolution.
func NewResolutionError(op string, err error) *Error {
	return &Error{Op: op, Kind: KindResolution, Err: err}
}

// NewServiceError creates an Error of kind KindService.
func NewServiceError(op string, err error) *Error {
	return &Error{Op: op, Kind: KindService, Err: err}
}

// NewLocalError creates an Error of kind KindLocal.
func NewLocalError(op string, err error) *Error {
	return &Error{Op: op, Kind: KindLocal, Err: err}
}

// NewCanceledError creates an Error of kind KindCanceled. The result matches
// ErrCanceled and, when non-nil, the supplied reason.
func NewCanceledError(op string, reason error) *Error {
	err := ErrCanceled
	if reason != nil && !errors.Is(reason, ErrCanceled) {
		err = fmt.Errorf("%w: %w", ErrCanceled, reason)
	} else if reason != nil {
		err = reason
	}
	return &Error{Op: op, Kind: KindCanceled, Err: err}
}

// FromService classifies an error returned by the object service client.
// Errors that are already classified keep their kind. Context cancellation
// becomes KindCanceled, everything else is KindService. The original error
// stays reachable through errors.As.
func FromService(op, bucket, key string, err error) error {
	if err == nil {
		return nil
	}

	var se *Error
	if errors.As(err, &se) && se.Kind != KindUnknown {
		return err
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, ErrCanceled) {
		return NewCanceledError(op, err).WithBucket(bucket).WithKey(key)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound", "NoSuchVersion":
			err = fmt.Errorf("%w: %w", ErrObjectNotFound, err)
		case "NoSuchBucket":
			err = fmt.Errorf("%w: %w", ErrBucketNotFound, err)
		case "AccessDenied", "Forbidden":
			err = fmt.Errorf("%w: %w", ErrAccessDenied, err)
		}
	}

	return NewServiceError(op, err).WithBucket(bucket).WithKey(key)
}

// Sentinel errors for common storage failures.
// These can be used with errors.Is() for error checking.
var (
	// ErrInvalidInput indicates that the provided input is invalid
	ErrInvalidInput = errors.New("storage: invalid input")

	// ErrNoKey indicates that a required object key was not supplied
	ErrNoKey = fmt.Errorf("%w: missing key", ErrInvalidInput)

	// ErrInvalidObjectKey indicates that the object key is invalid
	ErrInvalidObjectKey = fmt.Errorf("%w: invalid object key", ErrInvalidInput)

	// ErrInvalidExpiration indicates that a requested URL lifetime is not positive
	ErrInvalidExpiration = fmt.Errorf("%w: expiration must be positive", ErrInvalidInput)

	// ErrURLExpirationMaxLimitExceeded indicates that a URL lifetime reached the hard ceiling
	ErrURLExpirationMaxLimitExceeded = fmt.Errorf("%w: url expiration exceeds maximum", ErrInvalidInput)

	// ErrInvalidConfig indicates that client configuration could not be loaded or is inconsistent
	ErrInvalidConfig = errors.New("storage: invalid configuration")

	// ErrNoBucket indicates that no bucket could be resolved
	ErrNoBucket = errors.New("storage: no bucket configured")

	// ErrNoIdentityID indicates that an identity is required for the access level but none was resolved
	ErrNoIdentityID = errors.New("storage: missing identity id")

	// ErrNoCredentials indicates that credentials could not be retrieved
	ErrNoCredentials = errors.New("storage: credentials unavailable")

	// ErrCredentialsExpired indicates that the resolved credentials are already expired
	ErrCredentialsExpired = errors.New("storage: credentials expired")

	// ErrObjectNotFound indicates that the requested object does not exist
	ErrObjectNotFound = errors.New("storage: object not found")

	// ErrBucketNotFound indicates that the requested bucket does not exist
	ErrBucketNotFound = errors.New("storage: bucket not found")

	// ErrAccessDenied indicates that access to the resource is denied
	ErrAccessDenied = errors.New("storage: access denied")

	// ErrCanceled indicates that the operation was canceled
	ErrCanceled = errors.New("storage: canceled")
)

// KindOf returns the kind of the first *Error in the chain, or KindUnknown.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool {
	return KindOf(err) == KindValidation
}

// IsResolution reports whether err is a configuration or credential resolution error.
func IsResolution(err error) bool {
	return KindOf(err) == KindResolution
}

// IsService reports whether err was surfaced by the object service or presigner.
func IsService(err error) bool {
	return KindOf(err) == KindService
}

// IsCanceled reports whether err represents a canceled operation.
func IsCanceled(err error) bool {
	return KindOf(err) == KindCanceled || errors.Is(err, ErrCanceled)
}

// IsLocal reports whether err is a failure of the local side of a transfer.
func IsLocal(err error) bool {
	return KindOf(err) == KindLocal
}

// IsObjectNotFound checks if an error indicates that an object was not found.
// This is a convenience function that handles both sentinel errors and wrapped errors.
func IsObjectNotFound(err error) bool {
	return errors.Is(err, ErrObjectNotFound)
}

// IsAccessDenied checks if an error indicates access was denied.
// This is a convenience function that handles both sentinel errors and wrapped errors.
func IsAccessDenied(err error) bool {
	return errors.Is(err, ErrAccessDenied)
}

// IsInvalidInput checks if an error indicates invalid input.
// This is a convenience function that handles both sentinel errors and wrapped errors.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// Is forwards to the standard library errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As forwards to the standard library errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}
