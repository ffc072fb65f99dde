package storage

import (
	"bytes"
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/input-output-hk/catalyst-forge-libs/fs"
	"github.com/input-output-hk/catalyst-forge-libs/fs/billy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/storage/errors"
	"github.com/input-output-hk/catalyst-forge-libs/storage/internal/testutil"
	"github.com/input-output-hk/catalyst-forge-libs/storage/s3types"
	"github.com/input-output-hk/catalyst-forge-libs/storage/task"
)

// waitTimeout bounds every wait on a task so a regression fails instead of hanging.
const waitTimeout = 5 * time.Second

func result[T any](t *testing.T, tk *task.Task[T]) (T, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	v, err := tk.Result(ctx)
	require.NotErrorIs(t, err, context.DeadlineExceeded, "task did not settle")
	return v, err
}

func TestClient_DownloadData(t *testing.T) {
	data := []byte("hello, storage")
	var gotInput *s3.GetObjectInput
	mock := testutil.NewMockBuilder().
		WithGetObject(func(_ context.Context, in *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
			gotInput = in
			return testutil.CreateGetObjectOutput(data, "text/plain"), nil
		}).
		Build()
	env := newTestEnv(t, mock, time.Hour)

	tk, err := env.client.DownloadData(t.Context(), "notes/hello.txt")
	require.NoError(t, err)
	require.NotNil(t, tk)
	assert.NotEmpty(t, tk.ID())

	res, err := result(t, tk)
	require.NoError(t, err)
	assert.Equal(t, task.StateSucceeded, tk.State())

	assert.Equal(t, "notes/hello.txt", res.Key)
	assert.Equal(t, data, res.Body)
	assert.Equal(t, int64(len(data)), res.Size)
	assert.Equal(t, "text/plain", res.ContentType)
	assert.Equal(t, testutil.CalculateETag(data), res.ETag)

	require.NotNil(t, gotInput)
	assert.Equal(t, testBucket, aws.ToString(gotInput.Bucket))
	assert.Equal(t, "private/user-1/notes/hello.txt", aws.ToString(gotInput.Key))
}

func TestClient_DownloadData_PassesSelectionToResolver(t *testing.T) {
	mock := testutil.NewMockBuilder().WithObject([]byte("x"), "text/plain").Build()
	env := newTestEnv(t, mock, time.Hour)

	tk, err := env.client.DownloadData(t.Context(), "a.txt",
		WithAccessLevel(s3types.AccessLevelProtected),
		WithTargetIdentityID("owner-2"),
	)
	require.NoError(t, err)
	_, err = result(t, tk)
	require.NoError(t, err)

	inputs := env.resolver.Inputs()
	require.Len(t, inputs, 1)
	assert.Equal(t, s3types.AccessLevelProtected, inputs[0].AccessLevel)
	assert.Equal(t, "owner-2", inputs[0].TargetIdentityID)
}

func TestClient_DownloadData_WithDestination(t *testing.T) {
	data := testutil.GenerateRandomData(64 * 1024)
	mock := testutil.NewMockBuilder().WithObject(data, "application/octet-stream").Build()
	env := newTestEnv(t, mock, time.Hour)

	var buf bytes.Buffer
	tracker := &testutil.MockProgressTracker{}
	tk, err := env.client.DownloadData(t.Context(), "blob.bin",
		WithDestination(&buf),
		WithDownloadProgress(tracker),
	)
	require.NoError(t, err)

	res, err := result(t, tk)
	require.NoError(t, err)
	assert.Nil(t, res.Body)
	assert.Equal(t, data, buf.Bytes())
	assert.True(t, tracker.Completed())

	updates := tracker.Snapshot()
	require.NotEmpty(t, updates)
	last := updates[len(updates)-1]
	assert.Equal(t, int64(len(data)), last.Transferred)
	assert.Equal(t, int64(len(data)), last.Total)
}

func TestClient_DownloadData_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		opts    []s3types.DownloadOption
		wantErr error
	}{
		{
			name:    "empty key",
			key:     "",
			wantErr: errors.ErrNoKey,
		},
		{
			name:    "path traversal",
			key:     "../secret",
			wantErr: errors.ErrInvalidObjectKey,
		},
		{
			name:    "unknown access level",
			key:     "file.txt",
			opts:    []s3types.DownloadOption{WithAccessLevel("shared")},
			wantErr: errors.ErrInvalidInput,
		},
		{
			name:    "malformed range",
			key:     "file.txt",
			opts:    []s3types.DownloadOption{WithRange("0-10")},
			wantErr: errors.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockBuilder().WithObject([]byte("x"), "text/plain").Build()
			env := newTestEnv(t, mock, time.Hour)

			tk, err := env.client.DownloadData(t.Context(), tt.key, tt.opts...)
			require.Error(t, err)
			assert.Nil(t, tk)
			assert.True(t, errors.IsValidation(err))
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, errors.CodeInvalidInput, errors.CodeOf(err))

			assert.Empty(t, env.resolver.Inputs())
			assert.Zero(t, env.s3.GetCalls())
		})
	}
}

func TestClient_DownloadData_ResolutionFailure(t *testing.T) {
	mock := testutil.NewMockBuilder().WithObject([]byte("x"), "text/plain").Build()
	env := newTestEnv(t, mock, time.Hour)
	env.resolver.Err = errors.ErrNoIdentityID

	tracker := &testutil.MockProgressTracker{}
	tk, err := env.client.DownloadData(t.Context(), "file.txt", WithDownloadProgress(tracker))
	require.NoError(t, err)

	_, err = result(t, tk)
	require.Error(t, err)
	assert.True(t, errors.IsResolution(err))
	assert.ErrorIs(t, err, errors.ErrNoIdentityID)
	assert.Equal(t, task.StateFailed, tk.State())
	assert.True(t, tracker.Errored())
	assert.Zero(t, env.s3.GetCalls())

	var se *errors.Error
	require.True(t, errors.As(err, &se))
	assert.Equal(t, opDownloadData, se.Op)
	assert.Equal(t, "file.txt", se.Key)
}

func TestClient_DownloadData_EmptyResolvedBucket(t *testing.T) {
	env := newTestEnv(t, &testutil.MockS3Client{}, time.Hour)
	env.resolver.Config.Bucket = ""

	tk, err := env.client.DownloadData(t.Context(), "file.txt")
	require.NoError(t, err)

	_, err = result(t, tk)
	assert.True(t, errors.IsResolution(err))
	assert.ErrorIs(t, err, errors.ErrNoBucket)
	assert.Zero(t, env.s3.GetCalls())
}

func TestClient_DownloadData_ServiceErrors(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		env := newTestEnv(t, testutil.NewMockBuilder().WithObjectNotFound().Build(), time.Hour)

		tk, err := env.client.DownloadData(t.Context(), "missing.txt")
		require.NoError(t, err)

		_, err = result(t, tk)
		assert.True(t, errors.IsService(err))
		assert.True(t, errors.IsObjectNotFound(err))
		assert.Equal(t, errors.CodeNotFound, errors.CodeOf(err))
		assert.Equal(t, task.StateFailed, tk.State())
	})

	t.Run("access denied", func(t *testing.T) {
		env := newTestEnv(t, testutil.NewMockBuilder().WithAccessDenied().Build(), time.Hour)

		tk, err := env.client.DownloadData(t.Context(), "locked.txt")
		require.NoError(t, err)

		_, err = result(t, tk)
		assert.True(t, errors.IsAccessDenied(err))
		assert.Equal(t, errors.CodeForbidden, errors.CodeOf(err))
	})
}

func TestClient_DownloadData_CancelInFlight(t *testing.T) {
	body := testutil.NewBlockingBody([]byte("partial"), 1<<20)
	env := newTestEnv(t, testutil.NewMockBuilder().WithBlockingObject(body).Build(), time.Hour)

	tracker := &testutil.MockProgressTracker{}
	tk, err := env.client.DownloadData(t.Context(), "big.bin", WithDownloadProgress(tracker))
	require.NoError(t, err)

	select {
	case <-body.FirstRead():
	case <-time.After(waitTimeout):
		t.Fatal("download never started reading")
	}

	reason := stderrors.New("user navigated away")
	tk.Cancel(reason)
	tk.Cancel(nil)

	res, err := result(t, tk)
	assert.Nil(t, res)
	require.Error(t, err)
	assert.True(t, errors.IsCanceled(err))
	assert.ErrorIs(t, err, reason)
	assert.Equal(t, errors.CodeCanceled, errors.CodeOf(err))
	assert.Equal(t, task.StateCanceled, tk.State())
	assert.False(t, tracker.Completed())

	select {
	case <-body.Closed():
	case <-time.After(waitTimeout):
		t.Fatal("response body was not closed on cancel")
	}
}

func TestClient_DownloadData_ParentContextCanceled(t *testing.T) {
	body := testutil.NewBlockingBody([]byte("partial"), 1<<20)
	env := newTestEnv(t, testutil.NewMockBuilder().WithBlockingObject(body).Build(), time.Hour)

	ctx, cancel := context.WithCancel(t.Context())
	tk, err := env.client.DownloadData(ctx, "big.bin")
	require.NoError(t, err)

	<-body.FirstRead()
	cancel()

	_, err = result(t, tk)
	assert.True(t, errors.IsCanceled(err))
	assert.Equal(t, task.StateCanceled, tk.State())
}

func TestClient_DownloadData_CancelAfterSuccess(t *testing.T) {
	data := []byte("done")
	env := newTestEnv(t, testutil.NewMockBuilder().WithObject(data, "text/plain").Build(), time.Hour)

	tk, err := env.client.DownloadData(t.Context(), "done.txt")
	require.NoError(t, err)

	first, err := result(t, tk)
	require.NoError(t, err)

	tk.Cancel(nil)

	second, err := result(t, tk)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, task.StateSucceeded, tk.State())
}

func TestClient_DownloadData_ConcurrentCancel(t *testing.T) {
	body := testutil.NewBlockingBody([]byte("x"), 100)
	env := newTestEnv(t, testutil.NewMockBuilder().WithBlockingObject(body).Build(), time.Hour)

	tk, err := env.client.DownloadData(t.Context(), "big.bin")
	require.NoError(t, err)
	<-body.FirstRead()

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tk.Cancel(nil)
		}()
	}
	wg.Wait()

	_, err = result(t, tk)
	assert.True(t, errors.IsCanceled(err))
	assert.ErrorIs(t, err, errors.ErrCanceled)
}

func TestClient_DownloadFile(t *testing.T) {
	data := []byte("file contents")
	env := newTestEnv(t, testutil.NewMockBuilder().WithObject(data, "text/plain").Build(), time.Hour)

	tk, err := env.client.DownloadFile(t.Context(), "docs/readme.txt", "/out/nested/readme.txt")
	require.NoError(t, err)

	res, err := result(t, tk)
	require.NoError(t, err)
	assert.Equal(t, "docs/readme.txt", res.Key)
	assert.Nil(t, res.Body)

	got, err := env.fs.ReadFile("/out/nested/readme.txt")
	require.NoError(t, err)
	assert.Equal(t, data, got)

	exists, err := env.fs.Exists("/out/nested/readme.txt.part")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestClient_DownloadFile_FailureLeavesNoFile(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		env := newTestEnv(t, testutil.NewMockBuilder().WithObjectNotFound().Build(), time.Hour)

		tk, err := env.client.DownloadFile(t.Context(), "missing.txt", "/out/missing.txt")
		require.NoError(t, err)

		_, err = result(t, tk)
		assert.True(t, errors.IsObjectNotFound(err))

		for _, p := range []string{"/out/missing.txt", "/out/missing.txt.part"} {
			exists, err := env.fs.Exists(p)
			require.NoError(t, err)
			assert.False(t, exists, p)
		}
	})

	t.Run("canceled", func(t *testing.T) {
		body := testutil.NewBlockingBody([]byte("partial"), 1<<20)
		env := newTestEnv(t, testutil.NewMockBuilder().WithBlockingObject(body).Build(), time.Hour)

		tk, err := env.client.DownloadFile(t.Context(), "big.bin", "/out/big.bin")
		require.NoError(t, err)
		<-body.FirstRead()
		tk.Cancel(nil)

		_, err = result(t, tk)
		assert.True(t, errors.IsCanceled(err))

		for _, p := range []string{"/out/big.bin", "/out/big.bin.part"} {
			exists, err := env.fs.Exists(p)
			require.NoError(t, err)
			assert.False(t, exists, p)
		}
	})

	t.Run("empty path", func(t *testing.T) {
		env := newTestEnv(t, &testutil.MockS3Client{}, time.Hour)

		tk, err := env.client.DownloadFile(t.Context(), "a.txt", "")
		assert.Nil(t, tk)
		assert.True(t, errors.IsValidation(err))
	})
}

func TestClient_UploadData(t *testing.T) {
	var gotInput *s3.PutObjectInput
	var gotBody []byte
	mock := testutil.NewMockBuilder().
		WithPutObject(func(_ context.Context, in *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
			gotInput = in
			buf := new(bytes.Buffer)
			_, _ = buf.ReadFrom(in.Body)
			gotBody = buf.Bytes()
			return &s3.PutObjectOutput{ETag: aws.String(`"abc"`), VersionId: aws.String("v7")}, nil
		}).
		Build()
	env := newTestEnv(t, mock, time.Hour)

	tracker := &testutil.MockProgressTracker{}
	tk, err := env.client.UploadData(t.Context(), "notes/today.json", strings.NewReader("remember the milk"),
		WithMetadata(map[string]string{"author": "tester"}),
		WithProgress(tracker),
	)
	require.NoError(t, err)

	res, err := result(t, tk)
	require.NoError(t, err)
	assert.Equal(t, "notes/today.json", res.Key)
	assert.Equal(t, int64(len("remember the milk")), res.Size)
	assert.Equal(t, `"abc"`, res.ETag)
	assert.Equal(t, "v7", res.VersionID)
	assert.Equal(t, "application/json", res.ContentType)
	assert.True(t, tracker.Completed())

	require.NotNil(t, gotInput)
	assert.Equal(t, testBucket, aws.ToString(gotInput.Bucket))
	assert.Equal(t, "private/user-1/notes/today.json", aws.ToString(gotInput.Key))
	assert.Equal(t, "tester", gotInput.Metadata["author"])
	assert.Equal(t, []byte("remember the milk"), gotBody)
}

func TestClient_UploadData_ValidationErrors(t *testing.T) {
	env := newTestEnv(t, testutil.NewMockBuilder().WithSuccessfulUpload().Build(), time.Hour)

	tests := []struct {
		name string
		run  func() (*task.Task[*s3types.UploadResult], error)
	}{
		{
			name: "nil body",
			run: func() (*task.Task[*s3types.UploadResult], error) {
				return env.client.UploadData(t.Context(), "a.txt", nil)
			},
		},
		{
			name: "empty key",
			run: func() (*task.Task[*s3types.UploadResult], error) {
				return env.client.UploadData(t.Context(), "", strings.NewReader("x"))
			},
		},
		{
			name: "bad access level",
			run: func() (*task.Task[*s3types.UploadResult], error) {
				return env.client.UploadData(t.Context(), "a.txt", strings.NewReader("x"),
					WithUploadAccessLevel("everyone"))
			},
		},
		{
			name: "empty upload path",
			run: func() (*task.Task[*s3types.UploadResult], error) {
				return env.client.UploadFile(t.Context(), "a.txt", "")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tk, err := tt.run()
			assert.Nil(t, tk)
			require.Error(t, err)
			assert.True(t, errors.IsValidation(err))
		})
	}

	assert.Zero(t, env.s3.PutCalls())
	assert.Empty(t, env.resolver.Inputs())
}

func TestClient_UploadData_ServiceError(t *testing.T) {
	env := newTestEnv(t, testutil.NewMockBuilder().WithAccessDenied().Build(), time.Hour)

	tk, err := env.client.UploadData(t.Context(), "a.txt", strings.NewReader("x"))
	require.NoError(t, err)

	_, err = result(t, tk)
	assert.True(t, errors.IsAccessDenied(err))

	var se *errors.Error
	require.True(t, errors.As(err, &se))
	assert.Equal(t, opUploadData, se.Op)
}

func TestClient_UploadFile(t *testing.T) {
	pngHeader := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

	var gotInput *s3.PutObjectInput
	mock := testutil.NewMockBuilder().
		WithPutObject(func(_ context.Context, in *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
			gotInput = in
			return &s3.PutObjectOutput{ETag: aws.String(`"png"`)}, nil
		}).
		Build()
	env := newTestEnv(t, mock, time.Hour)
	require.NoError(t, env.fs.WriteFile("/pics/avatar", pngHeader, 0o644))

	tk, err := env.client.UploadFile(t.Context(), "avatar", "/pics/avatar")
	require.NoError(t, err)

	res, err := result(t, tk)
	require.NoError(t, err)
	assert.Equal(t, "image/png", res.ContentType)
	assert.Equal(t, int64(len(pngHeader)), res.Size)
	require.NotNil(t, gotInput)
	assert.Equal(t, "image/png", aws.ToString(gotInput.ContentType))
	assert.Equal(t, int64(len(pngHeader)), aws.ToInt64(gotInput.ContentLength))
}

func TestClient_UploadFile_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		env := newTestEnv(t, testutil.NewMockBuilder().WithSuccessfulUpload().Build(), time.Hour)

		tk, err := env.client.UploadFile(t.Context(), "a.txt", "/nope.txt")
		require.NoError(t, err)

		_, err = result(t, tk)
		assert.True(t, errors.IsValidation(err))
		assert.Zero(t, env.s3.PutCalls())
	})

	t.Run("directory", func(t *testing.T) {
		env := newTestEnv(t, testutil.NewMockBuilder().WithSuccessfulUpload().Build(), time.Hour)
		require.NoError(t, env.fs.MkdirAll("/dir", 0o755))

		tk, err := env.client.UploadFile(t.Context(), "a.txt", "/dir")
		require.NoError(t, err)

		_, err = result(t, tk)
		assert.True(t, errors.IsValidation(err))
		assert.ErrorIs(t, err, errors.ErrInvalidInput)
		assert.Zero(t, env.s3.PutCalls())
	})
}

func TestClient_UploadData_CanceledBeforeSend(t *testing.T) {
	env := newTestEnv(t, testutil.NewMockBuilder().WithSuccessfulUpload().Build(), time.Hour)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	tk, err := env.client.UploadData(ctx, "a.txt", strings.NewReader("x"))
	require.NoError(t, err)

	_, err = result(t, tk)
	assert.True(t, errors.IsCanceled(err))
	assert.Equal(t, task.StateCanceled, tk.State())
	assert.Zero(t, env.s3.PutCalls())
}

func TestClient_TasksAreIndependent(t *testing.T) {
	body := testutil.NewBlockingBody([]byte("x"), 100)
	blocking := testutil.NewMockBuilder().WithBlockingObject(body).Build()
	env := newTestEnv(t, blocking, time.Hour)

	slow, err := env.client.DownloadData(t.Context(), "slow.bin")
	require.NoError(t, err)
	<-body.FirstRead()

	fast, err := env.client.UploadData(t.Context(), "fast.txt", strings.NewReader("y"))
	require.NoError(t, err)

	slow.Cancel(nil)

	_, err = result(t, fast)
	require.NoError(t, err)
	_, err = result(t, slow)
	assert.True(t, errors.IsCanceled(err))
	assert.NotEqual(t, slow.ID(), fast.ID())
}

type failingWriter struct{ err error }

func (w failingWriter) Write([]byte) (int, error) { return 0, w.err }

func TestClient_DownloadData_DestinationWriteFailure(t *testing.T) {
	errDiskFull := stderrors.New("disk full")
	env := newTestEnv(t, testutil.NewMockBuilder().WithObject([]byte("payload"), "text/plain").Build(), time.Hour)

	tk, err := env.client.DownloadData(t.Context(), "a.txt", WithDestination(failingWriter{err: errDiskFull}))
	require.NoError(t, err)

	_, err = result(t, tk)
	require.Error(t, err)
	assert.ErrorIs(t, err, errDiskFull)
	assert.True(t, errors.IsLocal(err))
	assert.False(t, errors.IsService(err))
	assert.Equal(t, errors.CodeExecutionFailed, errors.CodeOf(err))
	assert.Equal(t, task.StateFailed, tk.State())

	var se *errors.Error
	require.True(t, errors.As(err, &se))
	assert.Equal(t, opDownloadData, se.Op)
}

func TestClient_DurationUsesWallClock(t *testing.T) {
	mock := testutil.NewMockBuilder().
		WithObject([]byte("payload"), "text/plain").
		WithSuccessfulUpload().
		Build()
	// The client clock is pinned to testNow, far in the past.
	env := newTestEnv(t, mock, 0)

	down, err := env.client.DownloadData(t.Context(), "a.txt")
	require.NoError(t, err)
	downRes, err := result(t, down)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, downRes.Duration, time.Duration(0))
	assert.Less(t, downRes.Duration, waitTimeout)

	up, err := env.client.UploadData(t.Context(), "a.txt", strings.NewReader("payload"))
	require.NoError(t, err)
	upRes, err := result(t, up)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, upRes.Duration, time.Duration(0))
	assert.Less(t, upRes.Duration, waitTimeout)
}

func TestClient_ResolverErrorIsNotModified(t *testing.T) {
	env := newTestEnv(t, &testutil.MockS3Client{}, time.Hour)
	shared := errors.NewResolutionError("resolve", errors.ErrNoIdentityID)
	env.resolver.Err = shared

	_, err := env.client.GetURL(t.Context(), "first.txt")
	require.Error(t, err)

	tk, err := env.client.DownloadData(t.Context(), "second.txt")
	require.NoError(t, err)
	_, err = result(t, tk)
	require.Error(t, err)

	var se *errors.Error
	require.True(t, errors.As(err, &se))
	assert.Equal(t, opDownloadData, se.Op)
	assert.Equal(t, "second.txt", se.Key)
	assert.ErrorIs(t, err, errors.ErrNoIdentityID)
	assert.True(t, errors.IsResolution(err))

	assert.Equal(t, "resolve", shared.Op)
	assert.Empty(t, shared.Key)
}

// renamelessFS exposes only the portable filesystem methods.
type renamelessFS struct {
	fs.Filesystem
}

func TestClient_DownloadFile_WithoutRename(t *testing.T) {
	data := []byte("copied into place")
	mem := billy.NewInMemoryFS()
	mock := testutil.NewMockBuilder().WithObject(data, "text/plain").Build()
	env := newTestEnv(t, mock, time.Hour)
	env.client.fs = renamelessFS{mem}

	tk, err := env.client.DownloadFile(t.Context(), "a.txt", "/out/a.txt")
	require.NoError(t, err)
	_, err = result(t, tk)
	require.NoError(t, err)

	got, err := mem.ReadFile("/out/a.txt")
	require.NoError(t, err)
	assert.Equal(t, data, got)

	exists, err := mem.Exists("/out/a.txt.part")
	require.NoError(t, err)
	assert.False(t, exists)
}
