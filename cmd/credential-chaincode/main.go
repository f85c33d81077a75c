// credential-chaincode runs the credential registry contract as Fabric chaincode.
//
// By default the chaincode connects to its peer (CORE_PEER_ADDRESS etc. are read by the shim).
// When CHAINCODE_SERVER_ADDRESS is set it runs as an external chaincode service instead, using CHAINCODE_ID.
package main

import (
	"log/slog"
	"os"

	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-contract-api-go/contractapi"

	"github.com/information-sharing-networks/credential-ledger/internal/ledger/chaincode"
	"github.com/information-sharing-networks/credential-ledger/internal/logger"
	"github.com/information-sharing-networks/credential-ledger/internal/version"
)

func main() {
	logger.InitLogger(logger.ParseLogLevel(os.Getenv("LOG_LEVEL")), os.Getenv("ENVIRONMENT"))

	cc, err := contractapi.NewChaincode(chaincode.NewRegistryContract())
	if err != nil {
		slog.Error("failed to create chaincode", slog.String("error", err.Error()))
		os.Exit(1)
	}
	cc.Info.Title = "credential-registry"
	cc.Info.Version = version.Get().Version

	address := os.Getenv("CHAINCODE_SERVER_ADDRESS")
	if address == "" {
		if err := cc.Start(); err != nil {
			slog.Error("chaincode stopped", slog.String("error", err.Error()))
			os.Exit(1)
		}
		return
	}

	server := &shim.ChaincodeServer{
		CCID:     os.Getenv("CHAINCODE_ID"),
		Address:  address,
		CC:       cc,
		TLSProps: shim.TLSProperties{Disabled: true},
	}
	slog.Info("starting chaincode service", slog.String("address", address))
	if err := server.Start(); err != nil {
		slog.Error("chaincode service stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
