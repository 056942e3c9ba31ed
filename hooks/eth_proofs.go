// Package hooks implements executor.ExecutionHooks against the aggregator
// HTTP API ([SPEC 4.8], [SPEC 6.2]).
package hooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/ProjectZKM/reth-processor/log"
	"github.com/ProjectZKM/reth-processor/prover"
)

// EthProofsClient posts per-block lifecycle events to the aggregator
// ([SPEC 6.2]): queue, proving-start, execution-result, and the final
// multipart proof upload. It implements executor.ExecutionHooks.
type EthProofsClient struct {
	endpoint  string
	apiToken  string
	clusterID string
	http      *http.Client
	log       *log.Logger
}

// NewEthProofsClient builds an EthProofsClient. endpoint is the aggregator
// base URL ([SPEC 6.4] --eth-proofs-endpoint); apiToken and clusterID are
// sent as bearer auth and cluster id respectively.
func NewEthProofsClient(endpoint, apiToken, clusterID string) *EthProofsClient {
	return &EthProofsClient{
		endpoint:  endpoint,
		apiToken:  apiToken,
		clusterID: clusterID,
		http:      &http.Client{Timeout: 30 * time.Second},
		log:       log.Default().Module("hooks"),
	}
}

func (c *EthProofsClient) authedRequest(ctx context.Context, method, path string, body bytes.Buffer, contentType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req, nil
}

func (c *EthProofsClient) do(req *http.Request) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "aggregator request")
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return errors.Newf("aggregator returned %d for %s", resp.StatusCode, req.URL.Path)
	}
	return nil
}

// OnExecutionStart queues the block with the aggregator ([SPEC 6.2]
// "…/queue/<block_number>").
func (c *EthProofsClient) OnExecutionStart(ctx context.Context, blockNumber uint64) error {
	var body bytes.Buffer
	if err := json.NewEncoder(&body).Encode(map[string]string{"cluster_id": c.clusterID}); err != nil {
		return err
	}
	req, err := c.authedRequest(ctx, http.MethodPost, "/queue/"+strconv.FormatUint(blockNumber, 10), body, "application/json")
	if err != nil {
		return err
	}
	return c.do(req)
}

// OnExecutionEnd reports the execution result ([SPEC 6.2] "…/execution-result").
func (c *EthProofsClient) OnExecutionEnd(ctx context.Context, block *types.Block, report *prover.ExecutionReport) error {
	var cycles uint64
	if report != nil {
		cycles = report.TotalCycles()
	}
	var body bytes.Buffer
	if err := json.NewEncoder(&body).Encode(map[string]any{
		"block_number": block.NumberU64(),
		"block_hash":   block.Hash().Hex(),
		"gas_used":     block.GasUsed(),
		"cycles":       cycles,
	}); err != nil {
		return err
	}
	req, err := c.authedRequest(ctx, http.MethodPost, "/execution-result", body, "application/json")
	if err != nil {
		return err
	}
	return c.do(req)
}

// OnProvingStart marks the proving-start transition ([SPEC 6.2] "…/proving-start").
func (c *EthProofsClient) OnProvingStart(ctx context.Context, blockNumber uint64) error {
	var body bytes.Buffer
	if err := json.NewEncoder(&body).Encode(map[string]uint64{"block_number": blockNumber}); err != nil {
		return err
	}
	req, err := c.authedRequest(ctx, http.MethodPost, "/proving-start", body, "application/json")
	if err != nil {
		return err
	}
	return c.do(req)
}

// OnProvingEnd uploads the proof and public values as multipart form data
// alongside the prover version and verifying key ([SPEC 6.2] "…/proof").
func (c *EthProofsClient) OnProvingEnd(ctx context.Context, blockNumber uint64, proof prover.Proof, vk *prover.VerifyingKey, cycles uint64, duration time.Duration) error {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if err := writeField(mw, "block_number", strconv.FormatUint(blockNumber, 10)); err != nil {
		return err
	}
	if err := writeField(mw, "prover_version", proof.Version); err != nil {
		return err
	}
	if err := writeField(mw, "cycles", strconv.FormatUint(cycles, 10)); err != nil {
		return err
	}
	if err := writeField(mw, "proving_time_ms", strconv.FormatInt(duration.Milliseconds(), 10)); err != nil {
		return err
	}
	if err := writeFile(mw, "verifying_key", "vk.bin", vk.Raw); err != nil {
		return err
	}
	if err := writeFile(mw, "proof", "proof.bin", proof.Bytes); err != nil {
		return err
	}
	if err := writeFile(mw, "public_values", "public_values.bin", proof.PublicValues); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return errors.Wrap(err, "close multipart writer")
	}

	req, err := c.authedRequest(ctx, http.MethodPost, "/proof", body, mw.FormDataContentType())
	if err != nil {
		return err
	}
	if err := c.do(req); err != nil {
		return err
	}
	c.log.Info("proof uploaded", "block", blockNumber, "cycles", cycles)
	return nil
}

func writeField(mw *multipart.Writer, name, value string) error {
	fw, err := mw.CreateFormField(name)
	if err != nil {
		return fmt.Errorf("create field %s: %w", name, err)
	}
	_, err = fw.Write([]byte(value))
	return err
}

func writeFile(mw *multipart.Writer, field, filename string, data []byte) error {
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		return fmt.Errorf("create file field %s: %w", field, err)
	}
	_, err = fw.Write(data)
	return err
}
