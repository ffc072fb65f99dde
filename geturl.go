package storage

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/input-output-hk/catalyst-forge-libs/storage/errors"
	"github.com/input-output-hk/catalyst-forge-libs/storage/internal/operations/presign"
	"github.com/input-output-hk/catalyst-forge-libs/storage/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/storage/s3types"
)

// GetURL returns a presigned GET URL for key and the instant it stops working.
//
// The URL lifetime is the smaller of the requested lifetime (900 seconds by
// default) and the remaining validity of the credentials that sign it, and
// must be less than 7 days. With WithValidateObjectExistence the object is
// checked before signing and a missing object is reported as ErrObjectNotFound.
//
// Example:
//
//	res, err := client.GetURL(ctx, "report.pdf", storage.WithExpiresIn(time.Hour))
//	if err != nil {
//	    return err
//	}
//	fmt.Println(res.URL, "valid until", res.ExpiresAt)
func (c *Client) GetURL(ctx context.Context, key string, opts ...s3types.GetURLOption) (*s3types.GetURLResult, error) {
	config := &s3types.GetURLOptionConfig{}
	for _, opt := range opts {
		opt(config)
	}

	if err := validation.ValidateObjectKey(opGetURL, key); err != nil {
		return nil, err
	}
	if err := validation.ValidateAccessLevel(opGetURL, config.AccessLevel); err != nil {
		return nil, err
	}

	requested := presign.DefaultExpiration
	if config.ExpiresIn != 0 {
		requested = int64(config.ExpiresIn / time.Second)
		if requested == 0 {
			return nil, errors.NewValidationError(opGetURL, errors.ErrInvalidExpiration).
				WithKey(key).
				WithMessage("expiration must be at least one second")
		}
	}

	rc, fullKey, err := c.resolveKey(ctx, opGetURL, key, s3types.ResolveInput{
		AccessLevel:      config.AccessLevel,
		TargetIdentityID: config.TargetIdentityID,
	})
	if err != nil {
		return nil, err
	}

	if config.ValidateObjectExistence {
		if _, err := c.properties.Head(ctx, rc.Bucket, fullKey, callOptions(rc)...); err != nil {
			return nil, relabel(err, opGetURL)
		}
	}

	now := c.now()
	result, exp, err := c.presigner.PresignGet(ctx, presign.Request{
		Bucket:           rc.Bucket,
		Key:              fullKey,
		Region:           rc.Region,
		Credentials:      rc.Credentials,
		RequestedSeconds: requested,
		Now:              now,
	})
	if err != nil {
		return nil, relabel(err, opGetURL)
	}

	c.log.WithFields(logrus.Fields{
		"op":                    opGetURL,
		"bucket":                rc.Bucket,
		"key":                   fullKey,
		"requested_seconds":     exp.Requested,
		"remaining_seconds":     exp.Remaining,
		"effective_seconds":     exp.Effective,
		"capped_by_credentials": exp.CappedByCredentials(),
		"expires_at":            exp.ExpiresAt,
	}).Debug("presigned url")

	return result, nil
}
