package main

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	root := &cobra.Command{
		Use:           "leadbot",
		Short:         "Conversational lead qualification server",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       Version,
	}
	serve := serveCMD()
	root.AddCommand(serve, migrateCMD())

	// Running without a subcommand serves
	root.RunE = serve.RunE

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("leadbot exited")
		os.Exit(1)
	}
}
