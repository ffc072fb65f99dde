// Package validation provides centralized input validation logic.
//
// Every check here runs before any network I/O so that invalid input is
// reported synchronously as a validation error.
package validation

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"github.com/input-output-hk/catalyst-forge-libs/storage/errors"
	"github.com/input-output-hk/catalyst-forge-libs/storage/s3types"
)

const maxKeyLength = 1024

var (
	mimePattern  = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9\-+.]*\/[a-zA-Z0-9][a-zA-Z0-9\-+.]*(\s*;.*)?$`)
	rangePattern = regexp.MustCompile(`^bytes=(\d+-\d*|-\d+)$`)
)

// ValidateObjectKey validates a logical object key for operation op.
// The key is relative to the access-level prefix, so it must not try to
// escape it.
func ValidateObjectKey(op, key string) error {
	if key == "" {
		return errors.NewValidationError(op, errors.ErrNoKey)
	}

	// Check for path traversal attempts
	if hasPathTraversal(key) {
		return errors.NewValidationError(op, errors.ErrInvalidObjectKey).
			WithKey(key).
			WithMessage("object key cannot contain path traversal sequences")
	}

	// Prefix and key together must fit in 1024 bytes; the prefix is checked later.
	if len(key) > maxKeyLength {
		return errors.NewValidationError(op, errors.ErrInvalidObjectKey).
			WithKey(key).
			WithMessage("object key cannot exceed 1024 characters")
	}

	if hasControlCharacters(key) {
		return errors.NewValidationError(op, errors.ErrInvalidObjectKey).
			WithKey(key).
			WithMessage("object key cannot contain control characters")
	}

	return nil
}

// ValidateFullKey checks the prefixed key against the service limit.
func ValidateFullKey(op, fullKey string) error {
	if len(fullKey) > maxKeyLength {
		return errors.NewValidationError(op, errors.ErrInvalidObjectKey).
			WithKey(fullKey).
			WithMessage("prefixed object key cannot exceed 1024 characters")
	}
	return nil
}

// ValidateAccessLevel accepts the empty level (meaning "use the default")
// and the predefined levels.
func ValidateAccessLevel(op string, level s3types.AccessLevel) error {
	if level == "" || level.Valid() {
		return nil
	}
	return errors.NewValidationError(op, errors.ErrInvalidInput).
		WithMessage(fmt.Sprintf("unknown access level %q", level))
}

// ValidateRange validates an HTTP byte range such as "bytes=0-99".
// An empty range is allowed.
func ValidateRange(op, rangeSpec string) error {
	if rangeSpec == "" {
		return nil
	}
	if !rangePattern.MatchString(rangeSpec) {
		return errors.NewValidationError(op, errors.ErrInvalidInput).
			WithMessage(fmt.Sprintf("invalid byte range %q", rangeSpec))
	}
	return nil
}

// ValidateBucketName validates that a bucket name is DNS-compliant according to AWS S3 rules.
func ValidateBucketName(bucket string) error {
	if bucket == "" {
		return errors.NewResolutionError("validateBucketName", errors.ErrNoBucket)
	}

	// Bucket names must be between 3 and 63 characters long
	if len(bucket) < 3 || len(bucket) > 63 {
		return invalidBucket(bucket, "bucket name must be between 3 and 63 characters long")
	}

	// Bucket names can consist only of lowercase letters, numbers, dots (.), and hyphens (-)
	for _, char := range bucket {
		if !isValidBucketChar(char) {
			return invalidBucket(bucket, "bucket name can only contain lowercase letters, numbers, dots, and hyphens")
		}
	}

	if bucket[0] == '-' || bucket[0] == '.' || bucket[len(bucket)-1] == '-' || bucket[len(bucket)-1] == '.' {
		return invalidBucket(bucket, "bucket name cannot start or end with a hyphen or dot")
	}

	if strings.Contains(bucket, "..") {
		return invalidBucket(bucket, "bucket name cannot contain two adjacent periods")
	}

	if isIPAddress(bucket) {
		return invalidBucket(bucket, "bucket name cannot be formatted as an IP address")
	}

	return nil
}

// ValidateMetadata validates metadata keys and values according to S3 rules.
func ValidateMetadata(op string, metadata map[string]string) error {
	for key, value := range metadata {
		if err := validateMetadataKey(op, key); err != nil {
			return err
		}
		if err := validateMetadataValue(op, value); err != nil {
			return err
		}
	}
	return nil
}

// ValidateContentType validates that a content type looks like a MIME type.
// An empty content type is allowed.
func ValidateContentType(op, contentType string) error {
	if contentType == "" {
		return nil
	}
	if !mimePattern.MatchString(contentType) {
		return errors.NewValidationError(op, errors.ErrInvalidInput).
			WithMessage("content type must be a valid MIME type")
	}
	return nil
}

func invalidBucket(bucket, message string) error {
	return errors.NewValidationError("validateBucketName", errors.ErrInvalidInput).
		WithBucket(bucket).
		WithMessage(message)
}

func isValidBucketChar(char rune) bool {
	return (char >= '0' && char <= '9') || (char >= 'a' && char <= 'z') || char == '.' || char == '-'
}

// isIPAddress checks if a string is formatted as an IPv4 address
func isIPAddress(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return false
	}

	for _, part := range parts {
		if part == "" || len(part) > 3 {
			return false
		}
		num := 0
		for _, char := range part {
			if char < '0' || char > '9' {
				return false
			}
			num = num*10 + int(char-'0')
		}
		if num > 255 {
			return false
		}
	}

	return true
}

// hasPathTraversal checks for path traversal attempts in object keys
func hasPathTraversal(key string) bool {
	for _, segment := range strings.Split(key, "/") {
		if segment == ".." {
			return true
		}
	}

	cleaned := filepath.ToSlash(filepath.Clean(key))
	if strings.HasPrefix(cleaned, "..") || strings.HasPrefix(key, "/") {
		return true
	}

	// Windows-style absolute paths
	if len(key) >= 3 && key[1] == ':' && (key[2] == '\\' || key[2] == '/') {
		return true
	}

	return false
}

func hasControlCharacters(key string) bool {
	for _, char := range key {
		if unicode.IsControl(char) {
			return true
		}
	}
	return false
}

func validateMetadataKey(op, key string) error {
	if key == "" {
		return errors.NewValidationError(op, errors.ErrInvalidInput).
			WithMessage("metadata key cannot be empty")
	}

	if len(key) > 128 {
		return errors.NewValidationError(op, errors.ErrInvalidInput).
			WithMessage("metadata key cannot exceed 128 characters")
	}

	// Keys cannot start with prefixes reserved by AWS
	for _, prefix := range []string{"aws:", "x-amz-", "x-amz:"} {
		if strings.HasPrefix(strings.ToLower(key), prefix) {
			return errors.NewValidationError(op, errors.ErrInvalidInput).
				WithMessage(fmt.Sprintf("metadata key cannot start with reserved prefix: %s", prefix))
		}
	}

	for _, char := range key {
		if char <= 32 || char > 126 {
			return errors.NewValidationError(op, errors.ErrInvalidInput).
				WithMessage("metadata key can only contain printable ASCII characters without spaces")
		}
	}

	return nil
}

func validateMetadataValue(op, value string) error {
	// S3 metadata values can be up to 2KB
	if len(value) > 2048 {
		return errors.NewValidationError(op, errors.ErrInvalidInput).
			WithMessage("metadata value cannot exceed 2048 characters")
	}

	for _, char := range value {
		if !unicode.IsPrint(char) && char != '\t' {
			return errors.NewValidationError(op, errors.ErrInvalidInput).
				WithMessage("metadata value can only contain printable characters")
		}
	}

	return nil
}
