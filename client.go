package storage

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/input-output-hk/catalyst-forge-libs/fs"
	"github.com/input-output-hk/catalyst-forge-libs/fs/billy"
	"github.com/sirupsen/logrus"

	"github.com/input-output-hk/catalyst-forge-libs/storage/errors"
	"github.com/input-output-hk/catalyst-forge-libs/storage/internal/operations/download"
	"github.com/input-output-hk/catalyst-forge-libs/storage/internal/operations/presign"
	"github.com/input-output-hk/catalyst-forge-libs/storage/internal/operations/properties"
	"github.com/input-output-hk/catalyst-forge-libs/storage/internal/operations/upload"
	"github.com/input-output-hk/catalyst-forge-libs/storage/internal/s3api"
	"github.com/input-output-hk/catalyst-forge-libs/storage/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/storage/resolver"
	"github.com/input-output-hk/catalyst-forge-libs/storage/s3types"
)

const defaultRegion = "us-east-1"

// Client is safe for concurrent use. Every transfer it starts is an
// independent task with its own cancellation.
type Client struct {
	// s3Client is the underlying AWS SDK S3 client
	s3Client s3api.S3API

	// resolver maps access levels to bucket, prefix and credentials
	resolver s3types.Resolver

	// fs is the filesystem used by DownloadFile and UploadFile
	fs fs.Filesystem

	log *logrus.Entry
	now func() time.Time

	downloader *download.Downloader
	uploader   *upload.Uploader
	properties *properties.Reader
	presigner  *presign.Presigner
}

// New creates a new storage client with the provided options.
// It loads AWS credentials using the default credential chain unless a
// custom AWS config, credentials provider or resolver is supplied.
//
// Example:
//
//	client, err := storage.New(
//	    storage.WithRegion("us-west-2"),
//	    storage.WithBucket("media"),
//	    storage.WithIdentityID(identityID),
//	)
func New(opts ...s3types.Option) (*Client, error) {
	clientCfg := defaultClientConfig()
	for _, opt := range opts {
		opt(clientCfg)
	}

	if clientCfg.Bucket != "" {
		if err := validation.ValidateBucketName(clientCfg.Bucket); err != nil {
			return nil, err
		}
	}

	// Start with default AWS configuration or use custom config
	var cfg aws.Config
	if clientCfg.CustomAWSConfig != nil {
		cfg = clientCfg.CustomAWSConfig.Copy()
	} else {
		var err error
		cfg, err = config.LoadDefaultConfig(context.Background())
		if err != nil {
			return nil, errors.NewResolutionError("client initialization", err)
		}
	}

	// Apply region from options if specified, otherwise ensure a region is set
	if clientCfg.Region != "" {
		cfg.Region = clientCfg.Region
	} else if cfg.Region == "" {
		cfg.Region = defaultRegion
	}
	clientCfg.Region = cfg.Region

	if clientCfg.MaxRetries > 0 {
		cfg.RetryMaxAttempts = clientCfg.MaxRetries
	}

	if clientCfg.CredentialsProvider != nil {
		cfg.Credentials = clientCfg.CredentialsProvider
	} else {
		clientCfg.CredentialsProvider = cfg.Credentials
	}

	var s3Opts []func(*s3.Options)
	if clientCfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}
	if clientCfg.Endpoint != "" {
		endpoint := clientCfg.Endpoint
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	}
	if clientCfg.CustomHTTPClient != nil {
		httpClient := clientCfg.CustomHTTPClient
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.HTTPClient = httpClient
		})
	}

	s3Client := s3.NewFromConfig(cfg, s3Opts...)

	return newClient(s3Client, s3.NewPresignClient(s3Client), clientCfg), nil
}

// NewWithClient creates a client around custom S3 and presign implementations.
// This is primarily used for testing with mocked clients. Without
// WithResolver the default resolver is built from the remaining options.
func NewWithClient(s3Client s3api.S3API, presigner s3api.PresignAPI, opts ...s3types.Option) *Client {
	clientCfg := defaultClientConfig()
	for _, opt := range opts {
		opt(clientCfg)
	}
	if clientCfg.Region == "" {
		clientCfg.Region = defaultRegion
	}
	return newClient(s3Client, presigner, clientCfg)
}

func defaultClientConfig() *s3types.ClientConfig {
	return &s3types.ClientConfig{
		MaxRetries:         3,
		DefaultAccessLevel: s3types.AccessLevelGuest,
	}
}

func newClient(s3Client s3api.S3API, presigner s3api.PresignAPI, clientCfg *s3types.ClientConfig) *Client {
	res := clientCfg.Resolver
	if res == nil {
		var identity resolver.IdentityProvider
		if clientCfg.IdentityID != "" {
			identity = resolver.StaticIdentity(clientCfg.IdentityID)
		}
		res = resolver.New(resolver.Config{
			Bucket:             clientCfg.Bucket,
			Region:             clientCfg.Region,
			DefaultAccessLevel: clientCfg.DefaultAccessLevel,
		}, clientCfg.CredentialsProvider, identity)
	}

	filesystem := clientCfg.Filesystem
	if filesystem == nil {
		filesystem = billy.NewOSFS("/")
	}

	logger := clientCfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	now := clientCfg.Clock
	if now == nil {
		now = time.Now
	}

	return &Client{
		s3Client:   s3Client,
		resolver:   res,
		fs:         filesystem,
		log:        logger.WithField("component", "storage"),
		now:        now,
		downloader: download.New(s3Client),
		uploader:   upload.New(s3Client),
		properties: properties.New(s3Client),
		presigner:  presign.New(presigner),
	}
}

// Resolver returns the resolver used by the client.
func (c *Client) Resolver() s3types.Resolver {
	return c.resolver
}

// Close releases any resources held by the client.
// Tasks that are still running are not affected.
func (c *Client) Close() error {
	return nil
}
