package presign

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/input-output-hk/catalyst-forge-libs/storage/errors"
	"github.com/input-output-hk/catalyst-forge-libs/storage/internal/s3api"
	"github.com/input-output-hk/catalyst-forge-libs/storage/s3types"
)

// Presigner signs GET requests with caller-supplied credentials.
type Presigner struct {
	client s3api.PresignAPI
}

// New creates a new Presigner.
func New(client s3api.PresignAPI) *Presigner {
	return &Presigner{client: client}
}

// Request describes one URL to sign.
type Request struct {
	Bucket      string
	Key         string
	Region      string
	Credentials aws.Credentials

	// RequestedSeconds is the lifetime asked for. Zero selects DefaultExpiration.
	RequestedSeconds int64

	// Now is the single instant used for both reconciliation and ExpiresAt.
	Now time.Time
}

// PresignGet reconciles the lifetime and signs a GET URL for the object.
// The signer is not called when reconciliation fails.
func (p *Presigner) PresignGet(ctx context.Context, req Request) (*s3types.GetURLResult, Expiration, error) {
	requested := req.RequestedSeconds
	if requested == 0 {
		requested = DefaultExpiration
	}

	exp, err := Reconcile(requested, req.Credentials, req.Now)
	if err != nil {
		var se *errors.Error
		if errors.As(err, &se) {
			se.WithBucket(req.Bucket).WithKey(req.Key)
		}
		return nil, Expiration{}, err
	}

	creds := req.Credentials
	region := req.Region
	signed, err := p.client.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(req.Bucket),
		Key:    aws.String(req.Key),
	},
		s3.WithPresignExpires(exp.Duration()),
		s3.WithPresignClientFromClientOptions(func(o *s3.Options) {
			o.Credentials = credentials.StaticCredentialsProvider{Value: creds}
			if region != "" {
				o.Region = region
			}
		}),
	)
	if err != nil {
		return nil, Expiration{}, errors.FromService("getUrl", req.Bucket, req.Key, err)
	}

	return &s3types.GetURLResult{
		URL:       signed.URL,
		ExpiresAt: exp.ExpiresAt,
	}, exp, nil
}
