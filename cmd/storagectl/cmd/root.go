// Package cmd implements the storagectl command tree.
package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/input-output-hk/catalyst-forge-libs/storage"
	"github.com/input-output-hk/catalyst-forge-libs/storage/config"
	"github.com/input-output-hk/catalyst-forge-libs/storage/errors"
	"github.com/input-output-hk/catalyst-forge-libs/storage/s3types"
)

// ClientFactory builds the storage client for a command run.
type ClientFactory func(cfg *config.Config, logger *logrus.Logger) (*storage.Client, error)

// DefaultClientFactory builds a client from the loaded configuration.
func DefaultClientFactory(cfg *config.Config, logger *logrus.Logger) (*storage.Client, error) {
	opts := append(cfg.ClientOptions(), storage.WithLogger(logger))
	return storage.New(opts...)
}

// app carries state shared by every subcommand.
type app struct {
	cfgFile   string
	logLevel  string
	logFormat string

	newClient ClientFactory

	cfg    *config.Config
	log    *logrus.Logger
	client *storage.Client
	out    io.Writer
}

// Execute runs storagectl with args and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	return execute(ctx, args, stdout, stderr, DefaultClientFactory)
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer, factory ClientFactory) int {
	a := &app{newClient: factory, out: stdout}

	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		if a.log != nil {
			a.log.WithField("code", errors.CodeOf(err)).Error(err)
		} else {
			fmt.Fprintln(stderr, "Error:", err)
		}
		return ExitCode(err)
	}
	return 0
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "storagectl",
		Short:         "Transfer objects to and from access-level storage namespaces",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (YAML, JSON or TOML)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level, overrides the config file")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "log format (text or json), overrides the config file")

	root.AddCommand(
		newDownloadCmd(a),
		newUploadCmd(a),
		newGetURLCmd(a),
		newHeadCmd(a),
	)

	return root
}

// setup loads configuration, builds the logger and creates the client.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := cfg.NewLogger()
	if err != nil {
		return err
	}
	logger.SetOutput(cmd.ErrOrStderr())

	client, err := a.newClient(cfg, logger)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.log = logger
	a.client = client
	return nil
}

func (a *app) accessLevel(flag string) s3types.AccessLevel {
	if flag != "" {
		return s3types.AccessLevel(flag)
	}
	return a.cfg.DefaultAccessLevel()
}

// ExitCode maps an error to a process exit code.
func ExitCode(err error) int {
	switch errors.CodeOf(err) {
	case "":
		return 0
	case errors.CodeInvalidInput:
		return 2
	case errors.CodeInvalidConfig:
		return 3
	case errors.CodeUnauthorized:
		return 4
	case errors.CodeForbidden:
		return 5
	case errors.CodeNotFound:
		return 6
	case errors.CodeServiceFailed:
		return 7
	case errors.CodeExecutionFailed:
		return 8
	case errors.CodeCanceled:
		return 130
	default:
		return 1
	}
}
