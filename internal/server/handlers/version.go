package commonhandlers

import (
	"net/http"
	"runtime"

	"github.com/information-sharing-networks/credential-ledger/internal/api"
	"github.com/information-sharing-networks/credential-ledger/internal/version"
)

type VersionResponse struct {
	Service   string `json:"service" example:"credential-server"`
	Version   string `json:"version" example:"v0.3.0"`
	BuildDate string `json:"build_date" example:"2026-01-28T10:00:00Z"`
	GitCommit string `json:"git_commit" example:"4f1c2a9"`
	GoVersion string `json:"go_version" example:"go1.25.4"`

	// LedgerBackend is memory, postgres or fabric
	LedgerBackend string `json:"ledger_backend" example:"postgres"`
}

// HandleVersion godoc
//
//	@Summary		Get version information
//	@Description	Returns the build information of the server and the ledger backend it is connected to
//	@Tags			Common
//	@Produce		json
//	@Success		200	{object}	VersionResponse	"Version information"
//	@Router			/version [get]
func HandleVersion(info version.Info, ledgerBackend string) http.HandlerFunc {
	response := VersionResponse{
		Service:       "credential-server",
		Version:       info.Version,
		BuildDate:     info.BuildDate,
		GitCommit:     info.GitCommit,
		GoVersion:     runtime.Version(),
		LedgerBackend: ledgerBackend,
	}

	return func(w http.ResponseWriter, r *http.Request) {
		api.RespondWithJSONPayload(w, http.StatusOK, response)
	}
}
