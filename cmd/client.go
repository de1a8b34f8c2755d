package cmd

import (
	"fmt"

	"filehost-backend/internal/config"
	"filehost-backend/internal/services"

	"github.com/spf13/cobra"
)

// ClientCommand creates the 'client' command group for tenant provisioning
func ClientCommand(load func() (*config.Config, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "client",
		Short: "Manage API clients",
	}
	cmd.AddCommand(clientCreateCommand(load))
	return cmd
}

func clientCreateCommand(load func() (*config.Config, error)) *cobra.Command {
	var (
		name     string
		domain   string
		inactive bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a client and print its API key",
		Long: `Create a client and print its API key.

The key is shown once and cannot be retrieved later.

Examples:
  filehost client create --name acme
  filehost client create --name acme --domain acme.example --inactive`,
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

			var domainPtr *string
			if domain != "" {
				domainPtr = &domain
			}

			client, err := services.NewClientService(st.clients, st.users).CreateClient(cmd.Context(), name, domainPtr, !inactive)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "id:      %s\n", client.ID)
			fmt.Fprintf(out, "name:    %s\n", client.Name)
			fmt.Fprintf(out, "active:  %t\n", client.Active)
			fmt.Fprintf(out, "api_key: %s\n", client.APIKey)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Client name")
	cmd.Flags().StringVar(&domain, "domain", "", "Client domain")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "Create the client disabled")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}
