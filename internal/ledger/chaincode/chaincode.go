// Package chaincode hosts the registry contract as Hyperledger Fabric chaincode.
//
// Every contract method goes through two generic transactions so the chaincode and the local ledger share
// one dispatch table (contract.Registry): Evaluate for queries, Submit for state changes.
// Errors are returned as "<code>: <message>" (ledger.FormatError) so the gateway can restore the code.
package chaincode

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-contract-api-go/contractapi"

	"github.com/information-sharing-networks/credential-ledger/internal/ledger"
	"github.com/information-sharing-networks/credential-ledger/internal/ledger/contract"
)

// RegistryContract is the chaincode contract.
type RegistryContract struct {
	contractapi.Contract
	registry *contract.Registry
}

func NewRegistryContract() *RegistryContract {
	return &RegistryContract{registry: contract.New()}
}

// InitLedger registers the government identities (comma separated addresses). It can be called again to add
// identities, existing ones are unchanged.
func (c *RegistryContract) InitLedger(ctx contractapi.TransactionContextInterface, govIdentities string) error {
	stub := ctx.GetStub()
	ts, err := stub.GetTxTimestamp()
	if err != nil {
		return fmt.Errorf("failed to read transaction timestamp: %w", err)
	}

	var ids []string
	for _, id := range strings.Split(govIdentities, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return errors.New(ledger.FormatError(ledger.NewInvalidError("at least one gov identity is required")))
	}

	if err := contract.InitGenesis(&stubState{stub: stub}, ids, ts.AsTime()); err != nil {
		return errors.New(ledger.FormatError(err))
	}
	slog.Info("ledger initialised", slog.Int("gov_identities", len(ids)))
	return nil
}

// Evaluate runs a query method. argsJSON is a JSON array of string arguments.
func (c *RegistryContract) Evaluate(ctx contractapi.TransactionContextInterface, method string, argsJSON string) (string, error) {
	args, err := decodeArgs(argsJSON)
	if err != nil {
		return "", err
	}

	result, err := c.registry.Query(&stubState{stub: ctx.GetStub()}, method, args)
	if err != nil {
		return "", errors.New(ledger.FormatError(err))
	}
	return string(result), nil
}

// Submit runs a state-changing method on behalf of signer.
func (c *RegistryContract) Submit(ctx contractapi.TransactionContextInterface, method string, signer string, argsJSON string) (string, error) {
	args, err := decodeArgs(argsJSON)
	if err != nil {
		return "", err
	}

	stub := ctx.GetStub()
	ts, err := stub.GetTxTimestamp()
	if err != nil {
		return "", fmt.Errorf("failed to read transaction timestamp: %w", err)
	}

	tx := contract.TxContext{
		Signer:    signer,
		Timestamp: ts.AsTime(),
		TxID:      stub.GetTxID(),
	}

	result, err := c.registry.Invoke(&stubState{stub: stub}, tx, method, args)
	if err != nil {
		slog.Warn("transaction rejected",
			slog.String("method", method),
			slog.String("tx_id", tx.TxID),
			slog.String("error", err.Error()))
		return "", errors.New(ledger.FormatError(err))
	}
	return string(result), nil
}

func decodeArgs(argsJSON string) ([]string, error) {
	var args []string
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return nil, errors.New(ledger.FormatError(ledger.WrapInvalidError(err, "arguments must be a JSON array of strings")))
	}
	return args, nil
}

// stubState adapts the chaincode stub to contract.State.
type stubState struct {
	stub shim.ChaincodeStubInterface
}

func (s *stubState) GetState(key string) ([]byte, error) {
	return s.stub.GetState(key)
}

func (s *stubState) PutState(key string, value []byte) error {
	return s.stub.PutState(key, value)
}

func (s *stubState) GetStateByPrefix(prefix string) ([][]byte, error) {
	iterator, err := s.stub.GetStateByRange(prefix, prefix+string(utf8.MaxRune))
	if err != nil {
		return nil, fmt.Errorf("failed to query state range: %w", err)
	}
	defer iterator.Close()

	var values [][]byte
	for iterator.HasNext() {
		kv, err := iterator.Next()
		if err != nil {
			return nil, fmt.Errorf("failed to read state range: %w", err)
		}
		values = append(values, kv.Value)
	}
	return values, nil
}
