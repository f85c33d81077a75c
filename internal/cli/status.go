package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

type serverStatus struct {
	Version   map[string]any `json:"version"`
	Readiness map[string]any `json:"readiness"`
	Ready     bool           `json:"ready"`
}

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the server version and readiness of the ledger and content store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var status serverStatus
			if err := a.client.Call(cmd.Context(), http.MethodGet, "/version", nil, &status.Version); err != nil {
				return err
			}

			err := a.client.Call(cmd.Context(), http.MethodGet, "/ready", nil, &status.Readiness)
			var apiErr *APIError
			switch {
			case err == nil:
				status.Ready = true
			case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusServiceUnavailable:
				// the 503 body is the readiness report, not an error response
				if err := json.Unmarshal(apiErr.Body, &status.Readiness); err != nil {
					return fmt.Errorf("failed to decode readiness report: %w", err)
				}
			default:
				return err
			}
			return a.print(status)
		},
	}
}
