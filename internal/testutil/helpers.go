package testutil

import (
	"bytes"
	"crypto/md5"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// StringPtr returns a pointer to the given string.
// This is useful for AWS SDK inputs that require string pointers.
func StringPtr(s string) *string {
	return aws.String(s)
}

// Int64Ptr returns a pointer to the given int64.
// This is useful for AWS SDK inputs that require int64 pointers.
func Int64Ptr(i int64) *int64 {
	return aws.Int64(i)
}

// TimePtr returns a pointer to the given time.
// This is useful for AWS SDK outputs that return time pointers.
func TimePtr(t time.Time) *time.Time {
	return &t
}

// GenerateRandomData generates random bytes of the specified size.
// This is useful for creating test data for uploads.
func GenerateRandomData(size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(rand.Intn(256))
	}
	return data
}

// GenerateTestKey generates a test object key with optional prefix.
// This helps ensure test isolation by using unique keys.
func GenerateTestKey(prefix string) string {
	timestamp := time.Now().UnixNano()
	random := rand.Int63n(100000)
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return fmt.Sprintf("%stest-object-%d-%d", prefix, timestamp, random)
}

// GenerateTestBucketName generates a valid test bucket name.
// Bucket names must be DNS-compliant and globally unique.
func GenerateTestBucketName(prefix string) string {
	timestamp := time.Now().Unix()
	random := rand.Int31n(10000)
	name := fmt.Sprintf("%s-%d-%d", prefix, timestamp, random)
	// Ensure DNS compliance
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, "_", "-")
	if len(name) > 63 {
		name = name[:63]
	}
	return name
}

// CalculateETag calculates the ETag for the given data.
func CalculateETag(data []byte) string {
	h := md5.Sum(data)
	return fmt.Sprintf(`"%x"`, h)
}

// CreateHeadObjectOutput creates a test HeadObjectOutput structure.
// This is useful for mocking HeadObject operations.
func CreateHeadObjectOutput(size int64, contentType string) *s3.HeadObjectOutput {
	return &s3.HeadObjectOutput{
		ContentLength: Int64Ptr(size),
		LastModified:  TimePtr(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		ContentType:   StringPtr(contentType),
		ETag:          StringPtr(CalculateETag([]byte("test"))),
		Metadata:      map[string]string{},
	}
}

// CreateGetObjectOutput creates a test GetObjectOutput structure.
// This is useful for mocking download operations.
func CreateGetObjectOutput(data []byte, contentType string) *s3.GetObjectOutput {
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(data)),
		ContentLength: Int64Ptr(int64(len(data))),
		ContentType:   StringPtr(contentType),
		ETag:          StringPtr(CalculateETag(data)),
		LastModified:  TimePtr(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
	}
}

// StaticCredentials returns credentials that expire after ttl from now.
// A zero ttl yields credentials that never expire.
func StaticCredentials(now time.Time, ttl time.Duration) aws.Credentials {
	creds := aws.Credentials{
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "secret",
		SessionToken:    "token",
		Source:          "testutil",
	}
	if ttl != 0 {
		creds.CanExpire = true
		creds.Expires = now.Add(ttl)
	}
	return creds
}
