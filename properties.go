package storage

import (
	"context"

	"github.com/input-output-hk/catalyst-forge-libs/storage/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/storage/s3types"
)

// GetProperties retrieves the metadata of key without downloading its body.
//
// Errors:
//   - ErrNoKey, ErrInvalidObjectKey: if key is empty or invalid
//   - ErrObjectNotFound: if the object doesn't exist
//   - ErrAccessDenied: if the credentials lack permission
func (c *Client) GetProperties(
	ctx context.Context,
	key string,
	opts ...s3types.PropertiesOption,
) (*s3types.ObjectProperties, error) {
	config := &s3types.PropertiesOptionConfig{}
	for _, opt := range opts {
		opt(config)
	}

	if err := validation.ValidateObjectKey(opGetProperties, key); err != nil {
		return nil, err
	}
	if err := validation.ValidateAccessLevel(opGetProperties, config.AccessLevel); err != nil {
		return nil, err
	}

	rc, fullKey, err := c.resolveKey(ctx, opGetProperties, key, s3types.ResolveInput{
		AccessLevel:      config.AccessLevel,
		TargetIdentityID: config.TargetIdentityID,
	})
	if err != nil {
		return nil, err
	}

	props, err := c.properties.Head(ctx, rc.Bucket, fullKey, callOptions(rc)...)
	if err != nil {
		return nil, err
	}

	props.Key = key
	return props, nil
}

// Exists reports whether key exists in the selected namespace. A missing
// object is not an error.
func (c *Client) Exists(ctx context.Context, key string, opts ...s3types.PropertiesOption) (bool, error) {
	config := &s3types.PropertiesOptionConfig{}
	for _, opt := range opts {
		opt(config)
	}

	if err := validation.ValidateObjectKey(opExists, key); err != nil {
		return false, err
	}
	if err := validation.ValidateAccessLevel(opExists, config.AccessLevel); err != nil {
		return false, err
	}

	rc, fullKey, err := c.resolveKey(ctx, opExists, key, s3types.ResolveInput{
		AccessLevel:      config.AccessLevel,
		TargetIdentityID: config.TargetIdentityID,
	})
	if err != nil {
		return false, err
	}

	ok, err := c.properties.Exists(ctx, rc.Bucket, fullKey, callOptions(rc)...)
	if err != nil {
		return false, relabel(err, opExists)
	}
	return ok, nil
}
