// Package presign computes presigned URL lifetimes and signs GET requests.
//
// A presigned URL stops working when the credentials that signed it expire,
// whatever lifetime was encoded in the URL. Reconcile therefore caps the
// requested lifetime at the credentials' remaining validity and reports the
// real instant the URL becomes unusable.
package presign

import (
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/input-output-hk/catalyst-forge-libs/storage/errors"
)

const (
	// DefaultExpiration is the lifetime in seconds used when the caller does not ask for one.
	DefaultExpiration int64 = 900

	// MaxURLExpiration is the exclusive upper bound on a URL lifetime in seconds (7 days).
	MaxURLExpiration int64 = 7 * 24 * 60 * 60
)

// Expiration is the outcome of reconciling a requested lifetime with the
// signing credentials.
type Expiration struct {
	// Requested is the lifetime the caller asked for, in seconds.
	Requested int64

	// Remaining is the credentials' remaining validity in seconds, or -1
	// when the credentials do not expire.
	Remaining int64

	// Effective is the lifetime that will be signed into the URL, in seconds.
	Effective int64

	// ExpiresAt is now plus Effective.
	ExpiresAt time.Time
}

// Duration returns Effective as a time.Duration.
func (e Expiration) Duration() time.Duration {
	return time.Duration(e.Effective) * time.Second
}

// CappedByCredentials reports whether the credentials shortened the lifetime.
func (e Expiration) CappedByCredentials() bool {
	return e.Effective < e.Requested
}

// Reconcile returns the effective lifetime for a URL signed with creds at now.
// The effective lifetime is the smaller of requestedSeconds and the whole
// seconds left before creds expire, and must stay below MaxURLExpiration.
func Reconcile(requestedSeconds int64, creds aws.Credentials, now time.Time) (Expiration, error) {
	if requestedSeconds <= 0 {
		return Expiration{}, errors.NewValidationError("getUrl", errors.ErrInvalidExpiration)
	}

	exp := Expiration{
		Requested: requestedSeconds,
		Remaining: -1,
		Effective: requestedSeconds,
	}

	if creds.CanExpire {
		remaining := int64(creds.Expires.Sub(now) / time.Second)
		if remaining <= 0 {
			return Expiration{}, errors.NewResolutionError("getUrl", errors.ErrCredentialsExpired)
		}
		exp.Remaining = remaining
		if remaining < requestedSeconds {
			exp.Effective = remaining
		}
	}

	if exp.Effective >= MaxURLExpiration {
		return Expiration{}, errors.NewValidationError("getUrl", errors.ErrURLExpirationMaxLimitExceeded).
			WithMessage("expiration must be less than 7 days")
	}

	exp.ExpiresAt = now.Add(exp.Duration())
	return exp, nil
}
