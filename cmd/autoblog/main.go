package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	var envFiles []string

	root := &cobra.Command{
		Use:           "autoblog",
		Short:         "Turn RSS feeds into blog posts",
		Long:          "Fetches campaign feeds, extracts and cleans each new article, optionally rewrites it and publishes it as a post.",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringSliceVar(&envFiles, "env-file", []string{".env"}, "dotenv files loaded before reading the environment")

	root.AddCommand(
		serveCmd(&envFiles),
		runCmd(&envFiles),
		importCmd(&envFiles),
		campaignsCmd(&envFiles),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := root.ExecuteContext(ctx); err != nil {
		cancel()
		os.Exit(1)
	}
}
