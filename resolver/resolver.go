// Package resolver maps a logical storage target to a physical location and
// the credentials allowed to reach it.
//
// Every call resolves afresh: credentials are retrieved from the provider
// on each Resolve, and the identity is looked up again. Providers that
// cache, such as aws.CredentialsCache, remain responsible for their own
// refresh.
package resolver

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/input-output-hk/catalyst-forge-libs/storage/errors"
	"github.com/input-output-hk/catalyst-forge-libs/storage/s3types"
)

// Aliases of the shared resolution types.
type (
	Input               = s3types.ResolveInput
	Resolved            = s3types.ResolvedConfig
	ResolvedCredentials = s3types.ResolvedCredentials
	Resolver            = s3types.Resolver
)

// Config holds the static part of the resolution.
type Config struct {
	Bucket             string
	Region             string
	DefaultAccessLevel s3types.AccessLevel
}

// IdentityProvider yields the caller's identity ID.
type IdentityProvider interface {
	IdentityID(ctx context.Context) (string, error)
}

// IdentityFunc adapts a function to IdentityProvider.
type IdentityFunc func(ctx context.Context) (string, error)

// IdentityID implements IdentityProvider.
func (f IdentityFunc) IdentityID(ctx context.Context) (string, error) {
	return f(ctx)
}

// StaticIdentity is an IdentityProvider that always returns itself.
type StaticIdentity string

// IdentityID implements IdentityProvider.
func (s StaticIdentity) IdentityID(context.Context) (string, error) {
	return string(s), nil
}

// Default is the AWS-backed Resolver.
type Default struct {
	cfg      Config
	provider aws.CredentialsProvider
	identity IdentityProvider
}

// New creates a Default resolver. identity may be nil when only the guest
// access level is used.
func New(cfg Config, provider aws.CredentialsProvider, identity IdentityProvider) *Default {
	if cfg.DefaultAccessLevel == "" {
		cfg.DefaultAccessLevel = s3types.AccessLevelGuest
	}
	return &Default{
		cfg:      cfg,
		provider: provider,
		identity: identity,
	}
}

// ResolveCredentials retrieves credentials and the caller's identity.
func (d *Default) ResolveCredentials(ctx context.Context) (*ResolvedCredentials, error) {
	if d.provider == nil {
		return nil, errors.NewResolutionError("resolveCredentials", errors.ErrNoCredentials).
			WithMessage("no credentials provider configured")
	}

	creds, err := d.provider.Retrieve(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.NewCanceledError("resolveCredentials", context.Cause(ctx))
		}
		return nil, errors.NewResolutionError("resolveCredentials",
			fmt.Errorf("%w: %w", errors.ErrNoCredentials, err))
	}

	identityID, err := d.identityID(ctx)
	if err != nil {
		return nil, err
	}

	return &ResolvedCredentials{
		Credentials: creds,
		IdentityID:  identityID,
	}, nil
}

// Resolve returns bucket, key prefix, region and credentials for in.
func (d *Default) Resolve(ctx context.Context, in Input) (*Resolved, error) {
	if d.cfg.Bucket == "" {
		return nil, errors.NewResolutionError("resolve", errors.ErrNoBucket)
	}

	level := in.AccessLevel
	if level == "" {
		level = d.cfg.DefaultAccessLevel
	}

	rc, err := d.ResolveCredentials(ctx)
	if err != nil {
		return nil, err
	}

	prefix, err := KeyPrefix(level, namespaceOwner(level, rc.IdentityID, in.TargetIdentityID))
	if err != nil {
		var se *errors.Error
		if errors.As(err, &se) {
			se.WithBucket(d.cfg.Bucket)
		}
		return nil, err
	}

	return &Resolved{
		Bucket:      d.cfg.Bucket,
		KeyPrefix:   prefix,
		Region:      d.cfg.Region,
		IdentityID:  rc.IdentityID,
		AccessLevel: level,
		Credentials: rc.Credentials,
	}, nil
}

func (d *Default) identityID(ctx context.Context) (string, error) {
	if d.identity == nil {
		return "", nil
	}
	id, err := d.identity.IdentityID(ctx)
	if err != nil {
		return "", errors.NewResolutionError("resolveIdentity", fmt.Errorf("%w: %w", errors.ErrNoIdentityID, err))
	}
	return id, nil
}

// namespaceOwner picks whose namespace the key lives in. Only the protected
// level lets a caller address another identity.
func namespaceOwner(level s3types.AccessLevel, self, target string) string {
	if level == s3types.AccessLevelProtected && target != "" {
		return target
	}
	return self
}

// KeyPrefix returns the key prefix for level and identityID:
// "public/", "protected/{id}/" or "private/{id}/".
func KeyPrefix(level s3types.AccessLevel, identityID string) (string, error) {
	switch level {
	case s3types.AccessLevelGuest, "":
		return "public/", nil
	case s3types.AccessLevelProtected, s3types.AccessLevelPrivate:
		if identityID == "" {
			return "", errors.NewResolutionError("resolve", errors.ErrNoIdentityID).
				WithMessage(fmt.Sprintf("access level %s requires an identity", level))
		}
		return fmt.Sprintf("%s/%s/", level, identityID), nil
	default:
		return "", errors.NewValidationError("resolve", errors.ErrInvalidInput).
			WithMessage(fmt.Sprintf("unknown access level %q", level))
	}
}

var _ Resolver = (*Default)(nil)
