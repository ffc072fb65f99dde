package storage

import (
	"context"
	"io"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	gobilly "github.com/go-git/go-billy/v5"
	"github.com/sirupsen/logrus"

	"github.com/input-output-hk/catalyst-forge-libs/storage/errors"
	"github.com/input-output-hk/catalyst-forge-libs/storage/internal/pool"
	"github.com/input-output-hk/catalyst-forge-libs/storage/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/storage/s3types"
	"github.com/input-output-hk/catalyst-forge-libs/storage/task"
)

// Operation names used in errors and log fields.
const (
	opDownloadData  = "downloadData"
	opDownloadFile  = "downloadFile"
	opUploadData    = "uploadData"
	opUploadFile    = "uploadFile"
	opGetURL        = "getUrl"
	opGetProperties = "getProperties"
	opExists        = "exists"
)

// DownloadData starts downloading key and returns a handle to the transfer.
// Input errors are returned immediately and no task is created; everything
// else, including resolution failures, settles the task.
//
// Example:
//
//	t, err := client.DownloadData(ctx, "photo.jpg",
//	    storage.WithAccessLevel(s3types.AccessLevelProtected),
//	    storage.WithTargetIdentityID(ownerID),
//	)
//	if err != nil {
//	    return err
//	}
//	go func() { <-stop; t.Cancel(nil) }()
//	result, err := t.Result(ctx)
func (c *Client) DownloadData(
	ctx context.Context,
	key string,
	opts ...s3types.DownloadOption,
) (*task.Task[*s3types.DownloadResult], error) {
	config := &s3types.DownloadOptionConfig{}
	for _, opt := range opts {
		opt(config)
	}

	if err := validateDownload(opDownloadData, key, config); err != nil {
		return nil, err
	}

	return startTask(c, ctx, opDownloadData, key, func(ctx context.Context) (*s3types.DownloadResult, error) {
		return c.download(ctx, opDownloadData, key, config, config.Destination)
	}), nil
}

// DownloadFile starts downloading key into path on the client's filesystem.
// The file is written to a temporary sibling and moved into place only
// after the whole object has arrived, so a canceled or failed download
// never leaves a partial file at path.
func (c *Client) DownloadFile(
	ctx context.Context,
	key, path string,
	opts ...s3types.DownloadOption,
) (*task.Task[*s3types.DownloadResult], error) {
	config := &s3types.DownloadOptionConfig{}
	for _, opt := range opts {
		opt(config)
	}

	if err := validateDownload(opDownloadFile, key, config); err != nil {
		return nil, err
	}
	if path == "" {
		return nil, errors.NewValidationError(opDownloadFile, errors.ErrInvalidInput).
			WithKey(key).
			WithMessage("file path cannot be empty")
	}

	return startTask(c, ctx, opDownloadFile, key, func(ctx context.Context) (*s3types.DownloadResult, error) {
		return c.downloadToFile(ctx, key, path, config)
	}), nil
}

// UploadData starts uploading body under key with a single PutObject request.
func (c *Client) UploadData(
	ctx context.Context,
	key string,
	body io.Reader,
	opts ...s3types.UploadOption,
) (*task.Task[*s3types.UploadResult], error) {
	config := &s3types.UploadOptionConfig{}
	for _, opt := range opts {
		opt(config)
	}

	if err := validateUpload(opUploadData, key, config); err != nil {
		return nil, err
	}
	if body == nil {
		return nil, errors.NewValidationError(opUploadData, errors.ErrInvalidInput).
			WithKey(key).
			WithMessage("body cannot be nil")
	}
	if config.ContentType == "" {
		config.ContentType = detectContentTypeFromExtension(key)
	}

	return startTask(c, ctx, opUploadData, key, func(ctx context.Context) (*s3types.UploadResult, error) {
		return c.upload(ctx, opUploadData, key, body, 0, config)
	}), nil
}

// UploadFile starts uploading the file at path on the client's filesystem.
// Without WithContentType the type is sniffed from the file content.
func (c *Client) UploadFile(
	ctx context.Context,
	key, path string,
	opts ...s3types.UploadOption,
) (*task.Task[*s3types.UploadResult], error) {
	config := &s3types.UploadOptionConfig{}
	for _, opt := range opts {
		opt(config)
	}

	if err := validateUpload(opUploadFile, key, config); err != nil {
		return nil, err
	}
	if path == "" {
		return nil, errors.NewValidationError(opUploadFile, errors.ErrInvalidInput).
			WithKey(key).
			WithMessage("file path cannot be empty")
	}

	return startTask(c, ctx, opUploadFile, key, func(ctx context.Context) (*s3types.UploadResult, error) {
		file, err := c.fs.Open(path)
		if err != nil {
			return nil, errors.NewValidationError(opUploadFile, err).WithKey(key).WithMessage("failed to open file")
		}
		defer file.Close()

		info, err := file.Stat()
		if err != nil {
			return nil, errors.NewValidationError(opUploadFile, err).WithKey(key).WithMessage("failed to stat file")
		}
		if info.IsDir() {
			return nil, errors.NewValidationError(opUploadFile, errors.ErrInvalidInput).
				WithKey(key).
				WithMessage("path is a directory")
		}

		fileConfig := *config
		if fileConfig.ContentType == "" {
			fileConfig.ContentType = c.detectContentType(path)
		}

		return c.upload(ctx, opUploadFile, key, file, info.Size(), &fileConfig)
	}), nil
}

func (c *Client) download(
	ctx context.Context,
	op, key string,
	config *s3types.DownloadOptionConfig,
	dst io.Writer,
) (*s3types.DownloadResult, error) {
	start := time.Now()

	rc, fullKey, err := c.resolveKey(ctx, op, key, s3types.ResolveInput{
		AccessLevel:      config.AccessLevel,
		TargetIdentityID: config.TargetIdentityID,
	})
	if err != nil {
		reportError(config.ProgressTracker, err)
		return nil, err
	}

	internalConfig := &s3types.DownloadConfig{
		ProgressTracker: config.ProgressTracker,
		RangeSpec:       config.RangeSpec,
	}

	var result *s3types.DownloadResult
	if dst != nil {
		result, err = c.downloader.Download(ctx, rc.Bucket, fullKey, dst, internalConfig, start, callOptions(rc)...)
	} else {
		result, err = c.downloader.Get(ctx, rc.Bucket, fullKey, internalConfig, start, callOptions(rc)...)
	}
	if err != nil {
		return nil, relabel(err, op)
	}

	result.Key = key
	return result, nil
}

func (c *Client) downloadToFile(
	ctx context.Context,
	key, path string,
	config *s3types.DownloadOptionConfig,
) (*s3types.DownloadResult, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := c.fs.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.NewLocalError(opDownloadFile, err).WithKey(key).WithMessage("failed to create directory")
		}
	}

	tmpPath := path + ".part"
	file, err := c.fs.Create(tmpPath)
	if err != nil {
		return nil, errors.NewLocalError(opDownloadFile, err).WithKey(key).WithMessage("failed to create file")
	}

	result, err := c.download(ctx, opDownloadFile, key, config, file)
	closeErr := file.Close()
	if err == nil && closeErr != nil {
		err = errors.NewLocalError(opDownloadFile, closeErr).WithKey(key).WithMessage("failed to close file")
	}
	if err != nil {
		_ = c.fs.Remove(tmpPath)
		return nil, err
	}

	if err := c.promote(tmpPath, path); err != nil {
		_ = c.fs.Remove(tmpPath)
		return nil, errors.NewLocalError(opDownloadFile, err).WithKey(key).WithMessage("failed to move file into place")
	}

	return result, nil
}

// promote moves a finished download from tmpPath to path. Filesystems that
// cannot rename get a copy followed by removal of tmpPath.
func (c *Client) promote(tmpPath, path string) error {
	switch fsys := c.fs.(type) {
	case interface{ Rename(oldpath, newpath string) error }:
		return fsys.Rename(tmpPath, path)
	case interface{ Raw() gobilly.Filesystem }:
		return fsys.Raw().Rename(tmpPath, path)
	}

	src, err := c.fs.Open(tmpPath)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := c.fs.Create(path)
	if err != nil {
		return err
	}
	if _, err := pool.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = c.fs.Remove(path)
		return err
	}
	if err := dst.Close(); err != nil {
		_ = c.fs.Remove(path)
		return err
	}
	return c.fs.Remove(tmpPath)
}

func (c *Client) upload(
	ctx context.Context,
	op, key string,
	body io.Reader,
	size int64,
	config *s3types.UploadOptionConfig,
) (*s3types.UploadResult, error) {
	start := time.Now()

	rc, fullKey, err := c.resolveKey(ctx, op, key, s3types.ResolveInput{AccessLevel: config.AccessLevel})
	if err != nil {
		reportError(config.ProgressTracker, err)
		return nil, err
	}

	result, err := c.uploader.Upload(ctx, rc.Bucket, fullKey, body, size, &s3types.UploadConfig{
		ContentType:     config.ContentType,
		Metadata:        config.Metadata,
		ProgressTracker: config.ProgressTracker,
	}, start, callOptions(rc)...)
	if err != nil {
		return nil, relabel(err, op)
	}

	result.Key = key
	return result, nil
}

// resolveKey resolves the namespace for one call and returns the full key.
func (c *Client) resolveKey(
	ctx context.Context,
	op, key string,
	in s3types.ResolveInput,
) (*s3types.ResolvedConfig, string, error) {
	rc, err := c.resolver.Resolve(ctx, in)
	if err != nil {
		if errors.KindOf(err) == errors.KindUnknown {
			if ctx.Err() != nil {
				err = errors.NewCanceledError(op, context.Cause(ctx))
			} else {
				err = errors.NewResolutionError(op, err)
			}
		}
		return nil, "", relabelKey(err, op, key)
	}
	if rc.Bucket == "" {
		return nil, "", errors.NewResolutionError(op, errors.ErrNoBucket).WithKey(key)
	}

	fullKey := rc.KeyPrefix + key
	if err := validation.ValidateFullKey(op, fullKey); err != nil {
		return nil, "", err
	}

	entry := c.log.WithFields(logrus.Fields{
		"op":           op,
		"bucket":       rc.Bucket,
		"key":          fullKey,
		"access_level": rc.AccessLevel,
	})
	if id, ok := task.IDFromContext(ctx); ok {
		entry = entry.WithField("task_id", id)
	}
	entry.Debug("resolved storage target")

	return rc, fullKey, nil
}

// startTask wraps job in a task and logs its lifecycle.
func startTask[T any](
	c *Client,
	ctx context.Context,
	op, key string,
	job task.Job[T],
) *task.Task[T] {
	entry := c.log.WithFields(logrus.Fields{"op": op, "key": key})

	var t *task.Task[T]
	t = task.NewNamed(ctx, op, job, func(reason error) {
		entry.WithFields(logrus.Fields{
			"task_id": t.ID(),
			"reason":  reason,
		}).Debug("task cancel requested")
	})

	entry = entry.WithField("task_id", t.ID())
	entry.Debug("task created")

	go func() {
		<-t.Done()
		_, err := t.Result(context.Background())
		fields := logrus.Fields{"state": t.State().String()}
		if err != nil {
			fields["error"] = err
			fields["error_kind"] = errors.KindOf(err).String()
		}
		entry.WithFields(fields).Debug("task settled")
	}()

	return t
}

// callOptions makes a single request use the resolved credentials and region.
func callOptions(rc *s3types.ResolvedConfig) []func(*s3.Options) {
	creds := rc.Credentials
	region := rc.Region
	return []func(*s3.Options){
		func(o *s3.Options) {
			o.Credentials = credentials.StaticCredentialsProvider{Value: creds}
			if region != "" {
				o.Region = region
			}
		},
	}
}

func validateDownload(op, key string, config *s3types.DownloadOptionConfig) error {
	if err := validation.ValidateObjectKey(op, key); err != nil {
		return err
	}
	if err := validation.ValidateAccessLevel(op, config.AccessLevel); err != nil {
		return err
	}
	return validation.ValidateRange(op, config.RangeSpec)
}

func validateUpload(op, key string, config *s3types.UploadOptionConfig) error {
	if err := validation.ValidateObjectKey(op, key); err != nil {
		return err
	}
	if err := validation.ValidateAccessLevel(op, config.AccessLevel); err != nil {
		return err
	}
	if err := validation.ValidateContentType(op, config.ContentType); err != nil {
		return err
	}
	return validation.ValidateMetadata(op, config.Metadata)
}

// relabel sets the public operation name on errors raised by internal operations.
func relabel(err error, op string) error {
	return relabelKey(err, op, "")
}

// relabelKey returns err with the public operation name and, when the error
// carries none, key. The *errors.Error inside err is copied, never modified,
// since a resolver may hand the same value to several calls.
func relabelKey(err error, op, key string) error {
	var se *errors.Error
	if !errors.As(err, &se) {
		return err
	}

	out := *se
	out.Op = op
	if out.Key == "" {
		out.Key = key
	}
	if top, ok := err.(*errors.Error); !ok || top != se {
		// Keep the outer wrapping reachable.
		out.Err = err
	}
	return &out
}

func reportError(tracker s3types.ProgressTracker, err error) {
	if tracker != nil {
		tracker.Error(err)
	}
}
