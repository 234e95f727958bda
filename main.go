// Command gametester is the GameTester dev-api client and local sandbox.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alexbotov/gametester/internal/cli"
	"github.com/alexbotov/gametester/pkg/gametester"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := cli.NewRootCmd()
	cmd.Version = gametester.Version

	if err := cmd.ExecuteContext(ctx); err != nil {
		// failed responses were already printed
		var respErr *gametester.ResponseError
		if !errors.As(err, &respErr) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		stop()
		os.Exit(1)
	}
}
