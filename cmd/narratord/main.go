package main

import (
	"log"

	"github.com/spf13/cobra"

	"narrator/internal/config"
	"narrator/internal/daemonrun"
)

func main() {
	var configPath, logLevel string
	cmd := &cobra.Command{
		Use:           "narratord",
		Short:         "Run the narrator pipeline daemon in the foreground",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, _, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{LogLevel: logLevel})
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Configuration file path")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override logging.level")

	if err := cmd.Execute(); err != nil {
		log.Fatalf("narratord: %v", err)
	}
}
