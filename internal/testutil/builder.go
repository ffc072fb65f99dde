package testutil

import (
	"context"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// MockBuilder provides a fluent interface for building MockS3Client instances.
type MockBuilder struct {
	client *MockS3Client
}

// NewMockBuilder creates a new MockBuilder.
func NewMockBuilder() *MockBuilder {
	return &MockBuilder{
		client: &MockS3Client{},
	}
}

// Build returns the configured MockS3Client.
func (b *MockBuilder) Build() *MockS3Client {
	return b.client
}

// WithPutObject configures the PutObject behavior.
func (b *MockBuilder) WithPutObject(
	fn func(context.Context, *s3.PutObjectInput) (*s3.PutObjectOutput, error),
) *MockBuilder {
	b.client.PutObjectFunc = func(ctx context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return fn(ctx, params)
	}
	return b
}

// WithGetObject configures the GetObject behavior.
func (b *MockBuilder) WithGetObject(
	fn func(context.Context, *s3.GetObjectInput) (*s3.GetObjectOutput, error),
) *MockBuilder {
	b.client.GetObjectFunc = func(ctx context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
		return fn(ctx, params)
	}
	return b
}

// WithHeadObject configures the HeadObject behavior.
func (b *MockBuilder) WithHeadObject(
	fn func(context.Context, *s3.HeadObjectInput) (*s3.HeadObjectOutput, error),
) *MockBuilder {
	b.client.HeadObjectFunc = func(ctx context.Context, params *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
		return fn(ctx, params)
	}
	return b
}

// WithObject serves data for every GetObject and HeadObject call.
func (b *MockBuilder) WithObject(data []byte, contentType string) *MockBuilder {
	b.client.GetObjectFunc = func(ctx context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
		return CreateGetObjectOutput(data, contentType), nil
	}
	b.client.HeadObjectFunc = func(ctx context.Context, params *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
		return CreateHeadObjectOutput(int64(len(data)), contentType), nil
	}
	return b
}

// WithBlockingObject makes GetObject return body, which blocks after its
// first chunk until it is closed.
func (b *MockBuilder) WithBlockingObject(body *BlockingBody) *MockBuilder {
	b.client.GetObjectFunc = func(ctx context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
		return &s3.GetObjectOutput{
			Body:          body,
			ContentLength: Int64Ptr(body.Size),
			ContentType:   StringPtr("application/octet-stream"),
		}, nil
	}
	return b
}

// WithSuccessfulUpload configures the mock to always return successful uploads.
func (b *MockBuilder) WithSuccessfulUpload() *MockBuilder {
	b.client.PutObjectFunc = func(ctx context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		// Consume the body if provided
		if params.Body != nil {
			_, _ = io.Copy(io.Discard, params.Body)
		}
		return &s3.PutObjectOutput{
			ETag:      StringPtr(`"test-etag"`),
			VersionId: StringPtr("v1"),
		}, nil
	}
	return b
}

// WithFailedUpload configures the mock to always return upload failures.
func (b *MockBuilder) WithFailedUpload(err error) *MockBuilder {
	b.client.PutObjectFunc = func(ctx context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return nil, err
	}
	return b
}

// WithObjectNotFound configures the mock to return object not found errors.
func (b *MockBuilder) WithObjectNotFound() *MockBuilder {
	b.client.GetObjectFunc = func(ctx context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
		return nil, &types.NoSuchKey{Message: StringPtr("The specified key does not exist.")}
	}
	b.client.HeadObjectFunc = func(ctx context.Context, params *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
		return nil, &types.NotFound{Message: StringPtr("Not Found")}
	}
	return b
}

// WithAccessDenied configures the mock to return access denied errors.
func (b *MockBuilder) WithAccessDenied() *MockBuilder {
	accessDeniedErr := &smithy.GenericAPIError{Code: "AccessDenied", Message: "Access Denied"}

	b.client.PutObjectFunc = func(ctx context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return nil, accessDeniedErr
	}
	b.client.GetObjectFunc = func(ctx context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
		return nil, accessDeniedErr
	}
	b.client.HeadObjectFunc = func(ctx context.Context, params *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
		return nil, accessDeniedErr
	}
	return b
}

// BlockingBody is a response body that returns First on the first Read and
// then blocks until Close is called. It simulates a stalled transfer.
type BlockingBody struct {
	First []byte
	Size  int64

	once     sync.Once
	closed   chan struct{}
	read     chan struct{}
	readOnce sync.Once
	served   bool
	mu       sync.Mutex
}

// NewBlockingBody creates a BlockingBody that reports size bytes in total.
func NewBlockingBody(first []byte, size int64) *BlockingBody {
	return &BlockingBody{
		First:  first,
		Size:   size,
		closed: make(chan struct{}),
		read:   make(chan struct{}),
	}
}

// Read implements io.Reader.
func (b *BlockingBody) Read(p []byte) (int, error) {
	b.mu.Lock()
	if !b.served {
		b.served = true
		b.mu.Unlock()
		n := copy(p, b.First)
		b.readOnce.Do(func() { close(b.read) })
		return n, nil
	}
	b.mu.Unlock()

	<-b.closed
	return 0, io.ErrClosedPipe
}

// Close unblocks pending reads. It is safe to call more than once.
func (b *BlockingBody) Close() error {
	b.once.Do(func() { close(b.closed) })
	return nil
}

// FirstRead is closed once the first chunk has been served.
func (b *BlockingBody) FirstRead() <-chan struct{} {
	return b.read
}

// Closed is closed once Close has been called.
func (b *BlockingBody) Closed() <-chan struct{} {
	return b.closed
}
