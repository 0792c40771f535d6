package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	var cfgPath string

	root := &cobra.Command{
		Use:          "attest",
		Short:        "Validate insurance coverage certificates",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default $ATTEST_CONFIG or ./config.toml)")

	root.AddCommand(
		serveCmd(&cfgPath),
		validateCmd(&cfgPath),
		marksCmd(&cfgPath),
		openapiCmd(&cfgPath),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := root.ExecuteContext(ctx)
	stop()

	if err != nil {
		os.Exit(1)
	}
}
