// Package testutil provides test utilities and mocks for storage operations.
// This package is internal and should only be used for testing within the storage module.
package testutil

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/input-output-hk/catalyst-forge-libs/storage/internal/s3api"
	"github.com/input-output-hk/catalyst-forge-libs/storage/s3types"
)

// MockS3Client is a mock implementation of the S3API interface for testing.
// It allows customization of each S3 operation through function fields.
type MockS3Client struct {
	PutObjectFunc  func(context.Context, *s3.PutObjectInput, ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObjectFunc  func(context.Context, *s3.GetObjectInput, ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObjectFunc func(context.Context, *s3.HeadObjectInput, ...func(*s3.Options)) (*s3.HeadObjectOutput, error)

	putCalls  atomic.Int32
	getCalls  atomic.Int32
	headCalls atomic.Int32
}

// PutObject mocks the S3 PutObject operation.
func (m *MockS3Client) PutObject(
	ctx context.Context,
	params *s3.PutObjectInput,
	optFns ...func(*s3.Options),
) (*s3.PutObjectOutput, error) {
	m.putCalls.Add(1)
	if m.PutObjectFunc != nil {
		return m.PutObjectFunc(ctx, params, optFns...)
	}
	return &s3.PutObjectOutput{}, nil
}

// GetObject mocks the S3 GetObject operation.
func (m *MockS3Client) GetObject(
	ctx context.Context,
	params *s3.GetObjectInput,
	optFns ...func(*s3.Options),
) (*s3.GetObjectOutput, error) {
	m.getCalls.Add(1)
	if m.GetObjectFunc != nil {
		return m.GetObjectFunc(ctx, params, optFns...)
	}
	return &s3.GetObjectOutput{}, nil
}

// HeadObject mocks the S3 HeadObject operation.
func (m *MockS3Client) HeadObject(
	ctx context.Context,
	params *s3.HeadObjectInput,
	optFns ...func(*s3.Options),
) (*s3.HeadObjectOutput, error) {
	m.headCalls.Add(1)
	if m.HeadObjectFunc != nil {
		return m.HeadObjectFunc(ctx, params, optFns...)
	}
	return &s3.HeadObjectOutput{}, nil
}

// PutCalls returns how many times PutObject was invoked.
func (m *MockS3Client) PutCalls() int { return int(m.putCalls.Load()) }

// GetCalls returns how many times GetObject was invoked.
func (m *MockS3Client) GetCalls() int { return int(m.getCalls.Load()) }

// HeadCalls returns how many times HeadObject was invoked.
func (m *MockS3Client) HeadCalls() int { return int(m.headCalls.Load()) }

// MockPresigner is a mock implementation of the PresignAPI interface.
// Without PresignGetObjectFunc it returns a URL derived from the request key.
type MockPresigner struct {
	PresignGetObjectFunc func(context.Context, *s3.GetObjectInput, ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)

	calls atomic.Int32
}

// PresignGetObject mocks the presign GetObject operation.
func (m *MockPresigner) PresignGetObject(
	ctx context.Context,
	params *s3.GetObjectInput,
	optFns ...func(*s3.PresignOptions),
) (*v4.PresignedHTTPRequest, error) {
	m.calls.Add(1)
	if m.PresignGetObjectFunc != nil {
		return m.PresignGetObjectFunc(ctx, params, optFns...)
	}
	return &v4.PresignedHTTPRequest{
		URL:    "https://example.invalid/" + *params.Bucket + "/" + *params.Key,
		Method: http.MethodGet,
	}, nil
}

// Calls returns how many times the signer was invoked.
func (m *MockPresigner) Calls() int { return int(m.calls.Load()) }

// MockResolver is a Resolver returning fixed values. ResolveFunc, when set,
// takes precedence over Config.
type MockResolver struct {
	Config      s3types.ResolvedConfig
	Err         error
	ResolveFunc func(context.Context, s3types.ResolveInput) (*s3types.ResolvedConfig, error)

	mu     sync.Mutex
	inputs []s3types.ResolveInput
}

// Resolve records the input and returns the configured result.
func (m *MockResolver) Resolve(ctx context.Context, in s3types.ResolveInput) (*s3types.ResolvedConfig, error) {
	m.mu.Lock()
	m.inputs = append(m.inputs, in)
	m.mu.Unlock()

	if m.ResolveFunc != nil {
		return m.ResolveFunc(ctx, in)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	cfg := m.Config
	return &cfg, nil
}

// ResolveCredentials returns the credentials of Config.
func (m *MockResolver) ResolveCredentials(context.Context) (*s3types.ResolvedCredentials, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return &s3types.ResolvedCredentials{
		Credentials: m.Config.Credentials,
		IdentityID:  m.Config.IdentityID,
	}, nil
}

// Inputs returns a copy of every ResolveInput seen so far.
func (m *MockResolver) Inputs() []s3types.ResolveInput {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]s3types.ResolveInput(nil), m.inputs...)
}

// Ensure the mocks implement their interfaces
var (
	_ s3api.S3API      = (*MockS3Client)(nil)
	_ s3api.PresignAPI = (*MockPresigner)(nil)
	_ s3types.Resolver = (*MockResolver)(nil)
)
