package errors

import "errors"

// ErrorCode is a stable, string-based identifier for a storage failure.
// Codes are intended for logs, exit statuses and API serialization.
type ErrorCode string

const (
	// Resource errors.

	// CodeNotFound indicates a requested object or bucket does not exist.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// Permission errors.

	// CodeUnauthorized indicates credentials or identity could not be resolved.
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"

	// CodeForbidden indicates the credentials lack permission for the operation.
	CodeForbidden ErrorCode = "FORBIDDEN"

	// Validation errors.

	// CodeInvalidInput indicates the provided input is invalid or malformed.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeInvalidConfig indicates a configuration error prevents the operation.
	CodeInvalidConfig ErrorCode = "INVALID_CONFIGURATION"

	// Execution errors.

	// CodeCanceled indicates the operation was canceled by its caller.
	CodeCanceled ErrorCode = "CANCELED"

	// CodeServiceFailed indicates the object service rejected the request.
	CodeServiceFailed ErrorCode = "SERVICE_ERROR"

	// CodeExecutionFailed indicates the local side of a transfer failed.
	CodeExecutionFailed ErrorCode = "EXECUTION_FAILED"

	// Generic errors.

	// CodeUnknown indicates an unknown or unclassified error occurred.
	CodeUnknown ErrorCode = "UNKNOWN"
)

// CodeOf maps an error to its ErrorCode. Sentinels take precedence over kinds.
func CodeOf(err error) ErrorCode {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrObjectNotFound), errors.Is(err, ErrBucketNotFound):
		return CodeNotFound
	case errors.Is(err, ErrAccessDenied):
		return CodeForbidden
	case errors.Is(err, ErrNoBucket), errors.Is(err, ErrInvalidConfig):
		return CodeInvalidConfig
	case errors.Is(err, ErrNoCredentials), errors.Is(err, ErrCredentialsExpired), errors.Is(err, ErrNoIdentityID):
		return CodeUnauthorized
	}

	switch KindOf(err) {
	case KindValidation:
		return CodeInvalidInput
	case KindResolution:
		return CodeInvalidConfig
	case KindService:
		return CodeServiceFailed
	case KindCanceled:
		return CodeCanceled
	case KindLocal:
		return CodeExecutionFailed
	default:
		if errors.Is(err, ErrCanceled) {
			return CodeCanceled
		}
		return CodeUnknown
	}
}
