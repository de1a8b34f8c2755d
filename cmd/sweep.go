package cmd

import (
	"fmt"

	"filehost-backend/internal/config"
	"filehost-backend/internal/services"

	"github.com/spf13/cobra"
)

// SweepCommand creates the 'sweep' command deleting expired share tokens once
func SweepCommand(load func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired album share tokens now",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			st, err := openStores(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer st.close()

			sweeper, err := services.NewSweeper(st.albums, cfg.Cleanup.At, cfg.Cleanup.CleanupLocation())
			if err != nil {
				return err
			}
			deleted := sweeper.RunOnce(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d expired share tokens\n", deleted)
			return nil
		},
	}
}
