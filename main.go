package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Ananth-NQI/botfleet-backend/internal/config"
	"github.com/Ananth-NQI/botfleet-backend/internal/routes"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := config.New()

	rootCmd := &cobra.Command{
		Use:          "botfleet",
		Short:        "BotFleet hosts many WhatsApp bot sessions in one process",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), v)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("port", "", "HTTP listen port (PORT)")
	flags.Int("max-bots", 0, "maximum concurrent bot sessions (MAX_BOTS)")
	flags.Bool("memory", false, "keep credentials in memory instead of PostgreSQL (USE_MEMORY_STORE)")
	// flags only win when set explicitly
	_ = v.BindPFlag("port", flags.Lookup("port"))
	_ = v.BindPFlag("max_bots", flags.Lookup("max-bots"))
	_ = v.BindPFlag("use_memory_store", flags.Lookup("memory"))

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API and session manager",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return serve(cmd.Context(), v)
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			RunE: func(cmd *cobra.Command, _ []string) error {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), routes.Version)
				return err
			},
		},
	)
	return rootCmd
}
