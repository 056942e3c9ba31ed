package provider

import (
	"context"
	"encoding/json"
	"math/big"

	"github.com/cockroachdb/errors"
	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/ProjectZKM/reth-processor/herrors"
	"github.com/ProjectZKM/reth-processor/witness"
)

// goatChainID is the chain id that selects the Goat-testnet variant of
// debug_executionWitness, which returns decoded headers plus an optional
// keys field instead of RLP-encoded header bytes ([SPEC 6.1]).
const goatChainID = 48816

// RPCProvider is the standard ChainDataProvider backed by a single
// JSON-RPC/websocket endpoint, following go-ethereum's own ethclient +
// rpc.Client split: ethclient for typed calls, the raw rpc.Client for the
// vendor-specific debug_executionWitness method.
type RPCProvider struct {
	client *ethclient.Client
	rpc    *rpc.Client
}

// Dial connects to rawURL, which may be an http(s) or ws(s) endpoint.
func Dial(ctx context.Context, rawURL string) (*RPCProvider, error) {
	rpcClient, err := rpc.DialContext(ctx, rawURL)
	if err != nil {
		return nil, errors.Wrapf(err, "dial rpc endpoint %q", rawURL)
	}
	return &RPCProvider{
		client: ethclient.NewClient(rpcClient),
		rpc:    rpcClient,
	}, nil
}

// BlockByNumber implements ChainDataProvider.
func (p *RPCProvider) BlockByNumber(ctx context.Context, n uint64) (*types.Block, error) {
	block, err := p.client.BlockByNumber(ctx, new(big.Int).SetUint64(n))
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "get block %d", n)
	}
	return block, nil
}

// ChainID implements ChainDataProvider.
func (p *RPCProvider) ChainID(ctx context.Context) (uint64, error) {
	id, err := p.client.ChainID(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "get chain id")
	}
	return id.Uint64(), nil
}

// rawExecutionWitness mirrors the wire shape of debug_executionWitness: the
// standard variant RLP-encodes each header, the Goat variant ([SPEC 6.1])
// returns decoded headers directly plus an optional keys field.
type rawExecutionWitness struct {
	State   []hexutil.Bytes   `json:"state"`
	Codes   []hexutil.Bytes   `json:"codes"`
	Headers []json.RawMessage `json:"headers"`
	Keys    []hexutil.Bytes   `json:"keys"`
}

// ExecutionWitness implements ChainDataProvider. The decode strategy for
// Headers is selected by chain id, matching debug_execution_witness's two
// on-the-wire shapes ([SPEC 6.1]): goat decodes headers as JSON objects,
// everything else decodes them as RLP bytes.
func (p *RPCProvider) ExecutionWitness(ctx context.Context, n uint64) (*witness.ExecutionWitness, error) {
	var raw rawExecutionWitness
	if err := p.rpc.CallContext(ctx, &raw, "debug_executionWitness", hexutil.EncodeUint64(n)); err != nil {
		return nil, errors.Wrapf(err, "debug_executionWitness(%d)", n)
	}

	chainID, err := p.ChainID(ctx)
	if err != nil {
		return nil, err
	}

	headers, err := decodeWitnessHeaders(raw.Headers, chainID == goatChainID)
	if err != nil {
		return nil, errors.Wrapf(herrors.ErrHeaderDeserializationFailed, "%s", err)
	}

	ew := &witness.ExecutionWitness{
		State:   make([][]byte, len(raw.State)),
		Codes:   make([][]byte, len(raw.Codes)),
		Headers: headers,
		Keys:    make([][]byte, len(raw.Keys)),
	}
	for i, s := range raw.State {
		ew.State[i] = s
	}
	for i, c := range raw.Codes {
		ew.Codes[i] = c
	}
	for i, k := range raw.Keys {
		ew.Keys[i] = k
	}
	return ew, nil
}

func decodeWitnessHeaders(raw []json.RawMessage, goat bool) ([]*types.Header, error) {
	headers := make([]*types.Header, len(raw))
	for i, msg := range raw {
		header := new(types.Header)
		if goat {
			if err := json.Unmarshal(msg, header); err != nil {
				return nil, errors.Wrapf(err, "decode goat-variant header %d", i)
			}
			headers[i] = header
			continue
		}

		var encoded hexutil.Bytes
		if err := json.Unmarshal(msg, &encoded); err != nil {
			return nil, errors.Wrapf(err, "decode header %d as rlp bytes", i)
		}
		if err := rlp.DecodeBytes(encoded, header); err != nil {
			return nil, errors.Wrapf(err, "rlp-decode header %d", i)
		}
		headers[i] = header
	}
	return headers, nil
}

// SubscribeNewHeads implements ChainDataProvider.
func (p *RPCProvider) SubscribeNewHeads(ctx context.Context, ch chan<- *types.Header) (Subscription, error) {
	sub, err := p.client.SubscribeNewHead(ctx, ch)
	if err != nil {
		return nil, errors.Wrap(err, "subscribe to new heads")
	}
	return sub, nil
}

// Close releases the underlying RPC connection.
func (p *RPCProvider) Close() {
	p.rpc.Close()
}
