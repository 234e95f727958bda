package cli

import (
	"fmt"

	"github.com/alexbotov/gametester/internal/config"
	"github.com/alexbotov/gametester/internal/logging"
	"github.com/alexbotov/gametester/internal/sandbox"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

type serveOptions struct {
	addr string
	dsn  string
	seed bool
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd(opts *rootOptions) *cobra.Command {
	serveOpts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local sandbox dev-api",
		Long: `Run a local implementation of the GameTester dev-api on
/dev-api/v1 and /dev-api/v1/sandbox. Tests are kept in memory unless a
database DSN is configured.

With --seed a demo developer and test are created and their credentials
are logged.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = serveOpts.addr
			}
			if cmd.Flags().Changed("db-dsn") {
				cfg.Database.DSN = serveOpts.dsn
			}
			if cmd.Flags().Changed("seed") {
				cfg.Server.Seed = serveOpts.seed
			}

			logger, err := newLogger(cmd, cfg)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			srv, err := sandbox.New(ctx, cfg, logger)
			if err != nil {
				logging.LogError(logger, "failed to start sandbox", err)
				return err
			}
			defer srv.Close()

			if cfg.Server.Seed {
				if _, err := srv.Seed(ctx); err != nil {
					return err
				}
			}

			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&serveOpts.addr, "addr", "", "listen address (default :8080)")
	cmd.Flags().StringVar(&serveOpts.dsn, "db-dsn", "", "PostgreSQL DSN (empty = in-memory store)")
	cmd.Flags().BoolVar(&serveOpts.seed, "seed", false, "create a demo developer and test on startup")

	return cmd
}

// NewTokenCmd creates the token subcommand.
func NewTokenCmd(opts *rootOptions) *cobra.Command {
	var testID, dsn string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a fresh player token for a sandbox test",
		Long: `Sign a new player token for an existing test in the sandbox
database. The token is signed with GAMETESTER_JWT_SECRET, which must match
the secret of the running sandbox.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			srv, _, err := openDatabase(cmd, opts, dsn)
			if err != nil {
				return err
			}
			defer srv.Close()

			token, err := srv.IssueToken(cmd.Context(), testID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&testID, "test", "", "test id")
	cmd.Flags().StringVar(&dsn, "db-dsn", "", "PostgreSQL DSN")
	_ = cmd.MarkFlagRequired("test")

	return cmd
}

// NewFinishCmd creates the finish subcommand.
func NewFinishCmd(opts *rootOptions) *cobra.Command {
	var testID, dsn string

	cmd := &cobra.Command{
		Use:   "finish",
		Short: "Finish a sandbox test",
		Long: `Finish a test of the configured developer in the sandbox
database, whether it is running or still in setup. A test finished from
setup can no longer be unlocked.

A running sandbox exposes the same operation as
POST /dev-api/v1/tests/{testId}/finish.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			srv, cfg, err := openDatabase(cmd, opts, dsn)
			if err != nil {
				return err
			}
			defer srv.Close()

			test, err := srv.FinishTest(cmd.Context(), cfg.Client.DeveloperToken, testID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "test %s finished\n", test.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&testID, "test", "", "test id")
	cmd.Flags().StringVar(&dsn, "db-dsn", "", "PostgreSQL DSN")
	_ = cmd.MarkFlagRequired("test")

	return cmd
}

// openDatabase builds a sandbox on the configured PostgreSQL store. The
// in-memory store is refused: a fresh process would hold no tests.
func openDatabase(cmd *cobra.Command, opts *rootOptions, dsn string) (*sandbox.Server, *config.Config, error) {
	cfg, err := opts.load(cmd)
	if err != nil {
		return nil, nil, err
	}
	if cmd.Flags().Changed("db-dsn") {
		cfg.Database.DSN = dsn
	}
	if cfg.Database.DSN == "" {
		return nil, nil, oops.Code("CONFIG_INVALID").In("cli").Errorf("%s requires a database: set GAMETESTER_DB_DSN or --db-dsn", cmd.Name())
	}

	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return nil, nil, err
	}
	srv, err := sandbox.New(cmd.Context(), cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return srv, cfg, nil
}
