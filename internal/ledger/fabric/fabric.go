// Package fabric is a ledger.Gateway for the credential registry chaincode on a Hyperledger Fabric channel.
//
// The chaincode (cmd/credential-chaincode) exposes two transactions:
//
//	Evaluate(method, argsJSON)          read-only, sent to a single peer with channel.Query
//	Submit(method, signer, argsJSON)    endorsed and ordered with channel.Execute
//
// The gateway connects with one Fabric client identity (FABRIC_USER of FABRIC_ORG). The ledger identity of the
// caller is carried as the signer argument and checked by the contract.
//
// Fabric has no per-signer sequence numbers: receipts carry the Fabric transaction id and a zero nonce.
package fabric

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hyperledger/fabric-sdk-go/pkg/client/channel"
	"github.com/hyperledger/fabric-sdk-go/pkg/common/errors/retry"
	"github.com/hyperledger/fabric-sdk-go/pkg/common/providers/fab"
	"github.com/hyperledger/fabric-sdk-go/pkg/core/config"
	"github.com/hyperledger/fabric-sdk-go/pkg/fabsdk"

	"github.com/information-sharing-networks/credential-ledger/internal/ledger"
)

// chaincode transaction names
const (
	evaluateFcn = "Evaluate"
	submitFcn   = "Submit"
)

// zeroAddress is used by Ping: looking it up exercises the peer without touching real records.
const zeroAddress = "0x0000000000000000000000000000000000000000"

type Config struct {
	ConfigPath string // connection profile (yaml)
	Channel    string
	Chaincode  string
	User       string
	Org        string
	Timeout    time.Duration
}

// channelClient is the part of *channel.Client the gateway uses.
type channelClient interface {
	Query(request channel.Request, options ...channel.RequestOption) (channel.Response, error)
	Execute(request channel.Request, options ...channel.RequestOption) (channel.Response, error)
}

type Gateway struct {
	sdk       *fabsdk.FabricSDK // nil when constructed with a client (tests)
	client    channelClient
	chaincode string
	timeout   time.Duration
	now       func() time.Time
}

// New loads the connection profile and opens a channel client.
func New(cfg Config) (*Gateway, error) {
	if cfg.ConfigPath == "" {
		return nil, errors.New("fabric connection profile path is required")
	}

	sdk, err := fabsdk.New(config.FromFile(cfg.ConfigPath))
	if err != nil {
		return nil, fmt.Errorf("failed to create fabric sdk: %w", err)
	}

	channelContext := sdk.ChannelContext(cfg.Channel, fabsdk.WithUser(cfg.User), fabsdk.WithOrg(cfg.Org))
	client, err := channel.New(channelContext)
	if err != nil {
		sdk.Close()
		return nil, fmt.Errorf("failed to create channel client for %s: %w", cfg.Channel, err)
	}

	g := newGateway(client, cfg.Chaincode, cfg.Timeout)
	g.sdk = sdk
	return g, nil
}

func newGateway(client channelClient, chaincode string, timeout time.Duration) *Gateway {
	return &Gateway{
		client:    client,
		chaincode: chaincode,
		timeout:   timeout,
		now:       time.Now,
	}
}

func (g *Gateway) Read(ctx context.Context, method string, args ...string) ([]byte, error) {
	argsJSON, err := marshalArgs(args)
	if err != nil {
		return nil, err
	}

	resp, err := g.call(ctx, g.client.Query, fab.Query, channel.Request{
		ChaincodeID: g.chaincode,
		Fcn:         evaluateFcn,
		Args:        [][]byte{[]byte(method), argsJSON},
	})
	if err != nil {
		return nil, err
	}
	return resp.Payload, nil
}

func (g *Gateway) Write(ctx context.Context, method string, signer string, args ...string) (ledger.Receipt, error) {
	argsJSON, err := marshalArgs(args)
	if err != nil {
		return ledger.Receipt{}, err
	}

	resp, err := g.call(ctx, g.client.Execute, fab.Execute, channel.Request{
		ChaincodeID: g.chaincode,
		Fcn:         submitFcn,
		Args:        [][]byte{[]byte(method), []byte(signer), argsJSON},
	})
	if err != nil {
		return ledger.Receipt{}, err
	}

	return ledger.Receipt{
		TxID:      string(resp.TransactionID),
		Signer:    signer,
		Method:    method,
		Timestamp: g.now().UTC(),
	}, nil
}

// Ping evaluates a lookup of the zero address. A not_found answer means the chaincode is reachable.
func (g *Gateway) Ping(ctx context.Context) error {
	_, err := g.Read(ctx, ledger.MethodGetAuthLevel, zeroAddress)
	if err == nil || ledger.IsNotFound(err) {
		return nil
	}
	return err
}

func (g *Gateway) Close() error {
	if g.sdk != nil {
		g.sdk.Close()
	}
	return nil
}

type requestFunc func(request channel.Request, options ...channel.RequestOption) (channel.Response, error)

func (g *Gateway) call(ctx context.Context, do requestFunc, timeoutType fab.TimeoutType, request channel.Request) (channel.Response, error) {
	if err := ctx.Err(); err != nil {
		return channel.Response{}, ledger.ParseError(err)
	}

	options := []channel.RequestOption{
		channel.WithRetry(retry.DefaultChannelOpts),
		channel.WithParentContext(ctx),
	}
	if g.timeout > 0 {
		options = append(options, channel.WithTimeout(timeoutType, g.timeout))
	}

	resp, err := do(request, options...)
	if err != nil {
		return channel.Response{}, ledger.ParseError(err)
	}
	return resp, nil
}

// marshalArgs encodes the arguments as a JSON array ("[]" rather than "null" when there are none).
func marshalArgs(args []string) ([]byte, error) {
	if args == nil {
		args = []string{}
	}
	b, err := json.Marshal(args)
	if err != nil {
		return nil, ledger.WrapInvalidError(err, "failed to marshal arguments")
	}
	return b, nil
}
