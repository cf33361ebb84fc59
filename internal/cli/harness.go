// Package cli builds the harness and refserver commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"homeharness/internal/client"
	"homeharness/internal/config"
	"homeharness/internal/report"
	"homeharness/internal/scenario"
)

// EnvFile is the optional dotenv file read from the working directory.
const EnvFile = ".env"

// ErrReported marks errors whose details the reporter already printed.
var ErrReported = errors.New("reported")

// Reported reports whether err has already been shown to the user.
func Reported(err error) bool {
	return errors.Is(err, ErrReported)
}

// Execute runs cmd and returns the process exit code. Errors the reporter has
// not already shown are printed to the command's output, which is stdout unless
// overridden.
func Execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		if !Reported(err) {
			fmt.Fprintf(cmd.OutOrStdout(), "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

// NewHarnessCommand creates the command that runs the full API scenario.
func NewHarnessCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "harness",
		Short: "Run the end-to-end API scenario",
		Long: `Run the end-to-end scenario against a house/room/device API.

The harness logs in, creates a house, a room and a device, reads and updates
each of them, checks 404 handling with a fake identifier, and deletes everything
it created from leaf to root. Settings come from HARNESS_* environment
variables, optionally loaded from a .env file in the working directory.

Exits 0 when every step passes and 1 otherwise.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHarness(cmd)
		},
	}
	return cmd
}

func runHarness(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(EnvFile)
	if err != nil {
		return err
	}

	logger := newLogger(cfg.LogLevel, out)
	defer logger.Sync()

	if !cfg.EnvFileLoaded {
		logger.Warn("No .env file found, using environment variables")
	}
	logger.Debug("Harness configured",
		zap.String("base_url", cfg.BaseURL),
		zap.String("email", cfg.Email),
		zap.Bool("fail_fast", cfg.FailFast))

	session, err := client.NewClient(cfg.BaseURL, logger)
	if err != nil {
		return err
	}

	reporter := report.NewReporter(out, !cfg.NoColor)
	runner := scenario.NewRunner(session, scenario.Credentials{
		Email:         cfg.Email,
		Password:      cfg.Password,
		WrongPassword: cfg.WrongPassword,
	}, cfg.FakeID, reporter, logger, scenario.Options{FailFast: cfg.FailFast})

	ctx, stop := signalContext(cmd)
	defer stop()

	if err := runner.Preflight(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrReported, err)
	}

	result, err := runner.Run(ctx, scenario.Steps())
	if err != nil {
		if result == nil {
			return err
		}
		return fmt.Errorf("%w: %d of %d steps failed: %w", ErrReported, result.Failed, len(result.Outcomes), err)
	}
	return nil
}

// newLogger writes console-encoded logs at level and above to out.
func newLogger(level zapcore.Level, out io.Writer) *zap.Logger {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.AddSync(out), level)
	return zap.New(core)
}

// signalContext derives a context from the command's that is cancelled on
// SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
