package cmd

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/input-output-hk/catalyst-forge-libs/storage"
	"github.com/input-output-hk/catalyst-forge-libs/storage/s3types"
	"github.com/input-output-hk/catalyst-forge-libs/storage/task"
)

// errInterrupted is the cancel reason when the command context ends.
var errInterrupted = stderrors.New("interrupted")

func newDownloadCmd(a *app) *cobra.Command {
	var (
		out       string
		level     string
		target    string
		rangeSpec string
		progress  bool
	)

	cmd := &cobra.Command{
		Use:   "download <key>",
		Short: "Download an object to a file or stdout",
		Long: `Download fetches an object. With --out the object is written to that file,
which only appears once the transfer has finished; otherwise it is streamed to stdout.
An interrupt cancels the transfer.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			opts := []s3types.DownloadOption{storage.WithAccessLevel(a.accessLevel(level))}
			if target != "" {
				opts = append(opts, storage.WithTargetIdentityID(target))
			}
			if rangeSpec != "" {
				opts = append(opts, storage.WithRange(rangeSpec))
			}
			if progress {
				opts = append(opts, storage.WithDownloadProgressFunc(progressPrinter(cmd.ErrOrStderr())))
			}

			ctx := cmd.Context()
			var (
				t   *task.Task[*s3types.DownloadResult]
				err error
			)
			if out == "" || out == "-" {
				opts = append(opts, storage.WithDestination(cmd.OutOrStdout()))
				t, err = a.client.DownloadData(context.WithoutCancel(ctx), key, opts...)
			} else {
				path, absErr := filepath.Abs(out)
				if absErr != nil {
					return absErr
				}
				t, err = a.client.DownloadFile(context.WithoutCancel(ctx), key, path, opts...)
			}
			if err != nil {
				return err
			}

			res, err := wait(ctx, t)
			if err != nil {
				return err
			}

			a.log.WithFields(logrus.Fields{
				"key":      res.Key,
				"size":     res.Size,
				"etag":     res.ETag,
				"duration": res.Duration,
			}).Info("download complete")
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "destination file (default stdout)")
	cmd.Flags().StringVar(&level, "access-level", "", "guest, protected or private")
	cmd.Flags().StringVar(&target, "target-identity", "", "owner of a protected object")
	cmd.Flags().StringVar(&rangeSpec, "range", "", "byte range, e.g. bytes=0-1023")
	cmd.Flags().BoolVar(&progress, "progress", false, "report progress on stderr")

	return cmd
}

func newUploadCmd(a *app) *cobra.Command {
	var (
		level       string
		contentType string
		metadata    map[string]string
		progress    bool
	)

	cmd := &cobra.Command{
		Use:   "upload <key> <path>",
		Short: "Upload a local file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			path, err := filepath.Abs(args[1])
			if err != nil {
				return err
			}

			opts := []s3types.UploadOption{storage.WithUploadAccessLevel(a.accessLevel(level))}
			if contentType != "" {
				opts = append(opts, storage.WithContentType(contentType))
			}
			if len(metadata) > 0 {
				opts = append(opts, storage.WithMetadata(metadata))
			}
			if progress {
				opts = append(opts, storage.WithProgressFunc(progressPrinter(cmd.ErrOrStderr())))
			}

			ctx := cmd.Context()
			t, err := a.client.UploadFile(context.WithoutCancel(ctx), key, path, opts...)
			if err != nil {
				return err
			}

			res, err := wait(ctx, t)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), res.ETag)
			a.log.WithFields(logrus.Fields{
				"key":          res.Key,
				"size":         res.Size,
				"content_type": res.ContentType,
				"duration":     res.Duration,
			}).Info("upload complete")
			return nil
		},
	}

	cmd.Flags().StringVar(&level, "access-level", "", "guest, protected or private")
	cmd.Flags().StringVar(&contentType, "content-type", "", "content type (default: detected from the file)")
	cmd.Flags().StringToStringVar(&metadata, "metadata", nil, "user metadata as key=value pairs")
	cmd.Flags().BoolVar(&progress, "progress", false, "report progress on stderr")

	return cmd
}

// wait blocks until t settles and cancels it once ctx ends.
func wait[T any](ctx context.Context, t *task.Task[T]) (T, error) {
	stop := context.AfterFunc(ctx, func() { t.Cancel(errInterrupted) })
	defer stop()
	return t.Result(context.Background())
}

func progressPrinter(w io.Writer) func(s3types.TransferProgress) {
	return func(p s3types.TransferProgress) {
		if p.Total > 0 {
			fmt.Fprintf(w, "\r%d/%d bytes (%.0f%%)", p.Transferred, p.Total, float64(p.Transferred)*100/float64(p.Total))
			if p.Transferred >= p.Total {
				fmt.Fprintln(w)
			}
			return
		}
		fmt.Fprintf(w, "\r%d bytes", p.Transferred)
	}
}
