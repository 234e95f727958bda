// Package cli implements the gametester command line
package cli

import (
	"log/slog"
	"time"

	"github.com/alexbotov/gametester/internal/config"
	"github.com/alexbotov/gametester/internal/logging"
	"github.com/alexbotov/gametester/pkg/gametester"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

// rootOptions holds the global flags. Flags that are set override the
// environment and dotenv values.
type rootOptions struct {
	envFiles       []string
	mode           string
	developerToken string
	playerPin      string
	playerToken    string
	baseURL        string
	encoding       string
	timeout        time.Duration
	logFormat      string
	logLevel       string
}

// NewRootCmd creates the root command for the gametester CLI.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "gametester",
		Short: "GameTester dev-api client and local sandbox",
		Long: `gametester calls the GameTester dev-api on behalf of a player
(auth, datapoint, unlock) and runs a local sandbox that implements it.

Settings are read from GAMETESTER_* environment variables and an optional
.env file; flags override both.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringSliceVar(&opts.envFiles, "env-file", nil, "dotenv files to load (default .env)")
	flags.StringVar(&opts.mode, "mode", "", "deployment mode: production, sandbox or test")
	flags.StringVar(&opts.developerToken, "developer-token", "", "developer token")
	flags.StringVar(&opts.playerPin, "player-pin", "", "player pin")
	flags.StringVar(&opts.playerToken, "player-token", "", "player token (preferred over the pin)")
	flags.StringVar(&opts.baseURL, "base-url", "", "base URL for the selected mode")
	flags.StringVar(&opts.encoding, "encoding", "", "request encoding: json or form")
	flags.DurationVar(&opts.timeout, "timeout", 0, "request timeout")
	flags.StringVar(&opts.logFormat, "log-format", "", "log format (json or text)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level")

	cmd.AddCommand(NewAuthCmd(opts))
	cmd.AddCommand(NewDatapointCmd(opts))
	cmd.AddCommand(NewUnlockCmd(opts))
	cmd.AddCommand(NewServeCmd(opts))
	cmd.AddCommand(NewTokenCmd(opts))
	cmd.AddCommand(NewFinishCmd(opts))

	return cmd
}

// load reads the configuration and applies the flags set on cmd
func (o *rootOptions) load(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(o.envFiles...)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("mode") {
		mode, err := gametester.ParseMode(o.mode)
		if err != nil {
			return nil, oops.Code("CONFIG_INVALID").In("cli").Wrap(err)
		}
		cfg.Client.Mode = mode
	}
	if flags.Changed("encoding") {
		if err := cfg.Client.Encoding.UnmarshalText([]byte(o.encoding)); err != nil {
			return nil, oops.Code("CONFIG_INVALID").In("cli").Wrap(err)
		}
	}
	if flags.Changed("timeout") {
		cfg.Client.Timeout = o.timeout
	}

	for name, dst := range map[string]*string{
		"developer-token": &cfg.Client.DeveloperToken,
		"player-pin":      &cfg.Client.PlayerPin,
		"player-token":    &cfg.Client.PlayerToken,
		"base-url":        &cfg.Client.BaseURL,
		"log-format":      &cfg.Log.Format,
		"log-level":       &cfg.Log.Level,
	} {
		if flags.Changed(name) {
			*dst = flags.Lookup(name).Value.String()
		}
	}

	return cfg, nil
}

func newLogger(cmd *cobra.Command, cfg *config.Config) (*slog.Logger, error) {
	logger, err := logging.New(cmd.ErrOrStderr(), cfg.Log.Format, cfg.Log.Level)
	if err != nil {
		return nil, oops.Code("CONFIG_INVALID").In("cli").Wrap(err)
	}
	return logger, nil
}
