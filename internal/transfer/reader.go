package transfer

import (
	"context"
	"io"
	"sync"

	"github.com/input-output-hk/catalyst-forge-libs/storage/s3types"
)

// ProgressReader wraps an io.Reader to report cumulative progress.
type ProgressReader struct {
	reader          io.Reader
	progressTracker s3types.ProgressTracker
	total           int64
	bytesRead       int64
}

// NewProgressReader returns r unchanged when tracker is nil.
func NewProgressReader(r io.Reader, tracker s3types.ProgressTracker, total int64) io.Reader {
	if tracker == nil {
		return r
	}
	return &ProgressReader{
		reader:          r,
		progressTracker: tracker,
		total:           total,
	}
}

func (pr *ProgressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	if n > 0 {
		pr.bytesRead += int64(n)
		pr.progressTracker.Update(pr.bytesRead, pr.total)
	}
	//nolint:wrapcheck // io.Reader interface contract - error comes from underlying reader
	return n, err
}

// BytesRead returns the number of bytes read so far.
func (pr *ProgressReader) BytesRead() int64 {
	return pr.bytesRead
}

// CancelableBody ties a response body to a context. When ctx is done the
// body is closed, which unblocks any pending Read and releases the
// underlying connection. Reads after cancellation return the context cause.
type CancelableBody struct {
	ctx  context.Context
	body io.ReadCloser
	stop func() bool

	closeOnce sync.Once
	closeErr  error
}

// NewCancelableBody starts watching ctx. Close must be called when the
// caller is done with the body.
func NewCancelableBody(ctx context.Context, body io.ReadCloser) *CancelableBody {
	cb := &CancelableBody{ctx: ctx, body: body}
	cb.stop = context.AfterFunc(ctx, func() {
		_ = cb.close()
	})
	return cb
}

func (cb *CancelableBody) Read(p []byte) (int, error) {
	if err := cb.ctx.Err(); err != nil {
		return 0, context.Cause(cb.ctx)
	}
	n, err := cb.body.Read(p)
	if err != nil && err != io.EOF && cb.ctx.Err() != nil {
		return n, context.Cause(cb.ctx)
	}
	//nolint:wrapcheck // io.Reader interface contract - error comes from underlying reader
	return n, err
}

// Close stops watching the context and closes the body once.
func (cb *CancelableBody) Close() error {
	cb.stop()
	return cb.close()
}

func (cb *CancelableBody) close() error {
	cb.closeOnce.Do(func() {
		cb.closeErr = cb.body.Close()
	})
	return cb.closeErr
}

// CancelableReader fails reads once ctx is done. It is used for request
// bodies that the caller owns and must not be closed by this module.
type CancelableReader struct {
	ctx    context.Context
	reader io.Reader
}

// NewCancelableReader wraps r so that reads stop after ctx is done.
func NewCancelableReader(ctx context.Context, r io.Reader) *CancelableReader {
	return &CancelableReader{ctx: ctx, reader: r}
}

func (cr *CancelableReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, context.Cause(cr.ctx)
	}
	//nolint:wrapcheck // io.Reader interface contract - error comes from underlying reader
	return cr.reader.Read(p)
}
