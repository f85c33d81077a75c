package cli

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/information-sharing-networks/credential-ledger/internal/api"
)

func (a *app) requestsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "requests",
		Short: "List authorization requests",
		Long:  `List all authorization requests (Gov) or the caller's own request (University).`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp api.RequestsResponse
			if err := a.client.Call(cmd.Context(), http.MethodGet, "/api/requests", nil, &resp); err != nil {
				return err
			}
			return a.print(resp.Requests)
		},
	}
}

// decisionCmd builds the approve and reject commands, which differ only by route
func (a *app) decisionCmd(action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <institution-name>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp api.DecisionResponse
			if err := a.client.Call(cmd.Context(), http.MethodPost, "/api/"+action, api.DecisionRequest{InstitutionName: args[0]}, &resp); err != nil {
				return err
			}
			return a.print(resp.Receipt)
		},
	}
}
