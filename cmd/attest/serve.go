package main

import (
	"github.com/spf13/cobra"
)

func serveCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}

			srv, err := NewServer(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			if err := srv.Start(); err != nil {
				return err
			}

			<-cmd.Context().Done()

			return srv.Shutdown(cfg.ShutdownTimeoutDuration())
		},
	}
}
