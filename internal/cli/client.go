package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/alexbotov/gametester/pkg/gametester"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

// NewAuthCmd creates the auth subcommand.
func NewAuthCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Check the developer token and player credential",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCall(cmd, opts, func(ctx context.Context, c *gametester.Client) gametester.Response {
				return c.Auth(ctx)
			})
		},
	}
}

// NewDatapointCmd creates the datapoint subcommand.
func NewDatapointCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "datapoint <id>",
		Short: "Record a datapoint for the player's test",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return oops.Code("INVALID_ARGUMENT").In("cli").With("datapoint", args[0]).Errorf("datapoint id must be an integer")
			}
			return runCall(cmd, opts, func(ctx context.Context, c *gametester.Client) gametester.Response {
				return c.Datapoint(ctx, id)
			})
		},
	}
}

// NewUnlockCmd creates the unlock subcommand.
func NewUnlockCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "unlock",
		Short: "Unlock the player's test",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCall(cmd, opts, func(ctx context.Context, c *gametester.Client) gametester.Response {
				return c.UnlockTest(ctx)
			})
		},
	}
}

// runCall prints the response of call and fails with a
// *gametester.ResponseError unless it succeeded.
func runCall(cmd *cobra.Command, opts *rootOptions, call func(context.Context, *gametester.Client) gametester.Response) error {
	cfg, err := opts.load(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}

	sdkConfig := cfg.Client.SDK()
	sdkConfig.Logger = logger
	client := gametester.NewClient(cfg.Client.Session(), sdkConfig)

	resp := call(cmd.Context(), client)
	fmt.Fprintln(cmd.OutOrStdout(), resp.String())
	return resp.Err()
}
