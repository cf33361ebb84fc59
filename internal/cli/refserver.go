package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"homeharness/internal/config"
	"homeharness/internal/refserver"
)

// EnvTokenSecret names the variable holding the token signing secret.
const EnvTokenSecret = "JWT_SECRET"

// RefServerOptions holds flags for the refserver command.
type RefServerOptions struct {
	Addr     string
	Envelope bool
	IDKey    string
	Seed     string
	TokenTTL time.Duration

	// Logger overrides the production logger (for testing).
	Logger *zap.Logger
}

// NewRefServerCommand creates the command that serves the in-memory reference API.
func NewRefServerCommand() *cobra.Command {
	return newRefServerCommand(&RefServerOptions{})
}

func newRefServerCommand(opts *RefServerOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refserver",
		Short: "Serve the in-memory reference API",
		Long: `Serve an in-memory implementation of the house/room/device API for the
harness to run against.

Example:
  refserver --addr :5000
  refserver --envelope=false --id-key id --seed ./users.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRefServer(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", ":5000", "listen address")
	cmd.Flags().BoolVar(&opts.Envelope, "envelope", true, "wrap success payloads as {success, message, data}")
	cmd.Flags().StringVar(&opts.IDKey, "id-key", refserver.IDKeyUnderscore, "identifier field name (_id|id)")
	cmd.Flags().StringVar(&opts.Seed, "seed", "", "YAML file with the users that can log in (default built-in)")
	cmd.Flags().DurationVar(&opts.TokenTTL, "token-ttl", time.Hour, "lifetime of issued tokens")

	return cmd
}

func runRefServer(cmd *cobra.Command, opts *RefServerOptions) error {
	logger := opts.Logger
	if logger == nil {
		var err error
		logger, err = zap.NewProduction()
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		defer logger.Sync()
	}

	if err := godotenv.Load(); err != nil {
		logger.Warn("No .env file found, using environment variables")
	}

	seed, err := config.NewLoader(logger).LoadSeed(opts.Seed)
	if err != nil {
		return err
	}

	srv, err := refserver.NewServer(refserver.Options{
		Envelope:    opts.Envelope,
		IDKey:       opts.IDKey,
		TokenTTL:    opts.TokenTTL,
		TokenSecret: []byte(os.Getenv(EnvTokenSecret)),
		Seed:        seed,
	}, logger)
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	if err := srv.Start(opts.Addr); err != nil {
		return err
	}

	logger.Info("Reference API running. Press Ctrl+C to exit.", zap.String("addr", srv.Addr()))
	<-ctx.Done()

	logger.Info("Shutting down...")
	return srv.Stop()
}
