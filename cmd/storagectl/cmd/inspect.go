package cmd

import (
	"fmt"
	"maps"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/input-output-hk/catalyst-forge-libs/storage"
	"github.com/input-output-hk/catalyst-forge-libs/storage/s3types"
)

func newGetURLCmd(a *app) *cobra.Command {
	var (
		expiresIn time.Duration
		validate  bool
		level     string
		target    string
	)

	cmd := &cobra.Command{
		Use:   "geturl <key>",
		Short: "Print a presigned download URL",
		Long: `Geturl prints a presigned URL and the time it expires. The lifetime is
capped by the remaining validity of the signing credentials.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("expires-in") {
				expiresIn = a.cfg.ExpiresIn
			}

			opts := []s3types.GetURLOption{
				storage.WithExpiresIn(expiresIn),
				storage.WithValidateObjectExistence(validate),
				storage.WithURLAccessLevel(a.accessLevel(level)),
			}
			if target != "" {
				opts = append(opts, storage.WithURLTargetIdentityID(target))
			}

			res, err := a.client.GetURL(cmd.Context(), args[0], opts...)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, res.URL)
			fmt.Fprintf(out, "expires_at: %s\n", res.ExpiresAt.UTC().Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().DurationVar(&expiresIn, "expires-in", 0, "requested lifetime (default from config)")
	cmd.Flags().BoolVar(&validate, "validate", false, "fail if the object does not exist")
	cmd.Flags().StringVar(&level, "access-level", "", "guest, protected or private")
	cmd.Flags().StringVar(&target, "target-identity", "", "owner of a protected object")

	return cmd
}

func newHeadCmd(a *app) *cobra.Command {
	var (
		level  string
		target string
	)

	cmd := &cobra.Command{
		Use:   "head <key>",
		Short: "Show object properties",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := []s3types.PropertiesOption{storage.WithPropertiesAccessLevel(a.accessLevel(level))}
			if target != "" {
				opts = append(opts, storage.WithPropertiesTargetIdentityID(target))
			}

			props, err := a.client.GetProperties(cmd.Context(), args[0], opts...)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "key\t%s\n", props.Key)
			fmt.Fprintf(w, "size\t%d\n", props.Size)
			fmt.Fprintf(w, "content_type\t%s\n", props.ContentType)
			fmt.Fprintf(w, "etag\t%s\n", props.ETag)
			if props.VersionID != "" {
				fmt.Fprintf(w, "version_id\t%s\n", props.VersionID)
			}
			if !props.LastModified.IsZero() {
				fmt.Fprintf(w, "last_modified\t%s\n", props.LastModified.UTC().Format(time.RFC3339))
			}
			for _, k := range slices.Sorted(maps.Keys(props.Metadata)) {
				fmt.Fprintf(w, "meta.%s\t%s\n", k, props.Metadata[k])
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&level, "access-level", "", "guest, protected or private")
	cmd.Flags().StringVar(&target, "target-identity", "", "owner of a protected object")

	return cmd
}
