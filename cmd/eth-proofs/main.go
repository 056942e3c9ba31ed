// Command eth-proofs runs the long-lived Dispatcher daemon: it watches a
// chain's new heads, executes (and optionally proves) every Nth block, and
// reports results to the aggregator and PagerDuty ([SPEC 6.4] "eth-proofs
// daemon flags").
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/ProjectZKM/reth-processor/alerting"
	"github.com/ProjectZKM/reth-processor/config"
	"github.com/ProjectZKM/reth-processor/dispatcher"
	"github.com/ProjectZKM/reth-processor/executor"
	"github.com/ProjectZKM/reth-processor/hooks"
	"github.com/ProjectZKM/reth-processor/hostexecutor"
	"github.com/ProjectZKM/reth-processor/log"
	"github.com/ProjectZKM/reth-processor/metrics"
	"github.com/ProjectZKM/reth-processor/prover"
	"github.com/ProjectZKM/reth-processor/provider"
)

func main() {
	app := &cli.App{
		Name:  "eth-proofs",
		Usage: "watch new heads and prove every Nth block",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "http-rpc-url", EnvVars: []string{"HTTP_RPC_URL"}, Required: true},
			&cli.StringFlag{Name: "ws-rpc-url", EnvVars: []string{"WS_RPC_URL"}, Required: true},
			&cli.StringFlag{Name: "debug-http-rpc-url", EnvVars: []string{"DEBUG_HTTP_RPC_URL"}},
			&cli.BoolFlag{Name: "execute-only"},
			&cli.Uint64Flag{Name: "block-interval", Value: 100},
			&cli.Uint64Flag{Name: "chain-id", Required: true},
			&cli.StringFlag{Name: "genesis-path"},
			&cli.StringFlag{Name: "cache-dir"},
			&cli.StringFlag{Name: "eth-proofs-endpoint"},
			&cli.StringFlag{Name: "eth-proofs-api-token", EnvVars: []string{"ETH_PROOFS_API_TOKEN"}},
			&cli.StringFlag{Name: "eth-proofs-cluster-id"},
			&cli.StringFlag{Name: "pager-duty-integration-key", EnvVars: []string{"PAGER_DUTY_INTEGRATION_KEY"}},
			&cli.StringFlag{Name: "moongate-endpoint", Usage: "optional Optimism-compatible endpoint selecting the op variant"},
			&cli.PathFlag{Name: "elf-path"},
			&cli.StringFlag{Name: "metrics-addr", Value: ":9090", Usage: "address to serve Prometheus /metrics on"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Error("eth-proofs daemon exited", "err", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	chainID := c.Uint64("chain-id")
	genesis, err := resolveGenesis(c, chainID)
	if err != nil {
		return fmt.Errorf("resolve genesis: %w", err)
	}
	chainConfig, err := genesis.ChainConfig()
	if err != nil {
		return fmt.Errorf("resolve chain config: %w", err)
	}

	wsURL := c.String("ws-rpc-url")
	httpURL := c.String("http-rpc-url")
	debugURL := c.String("debug-http-rpc-url")
	if debugURL == "" {
		debugURL = httpURL
	}

	headProvider, err := provider.Dial(ctx, wsURL)
	if err != nil {
		return fmt.Errorf("dial ws-rpc-url: %w", err)
	}
	defer headProvider.Close()

	blockProvider, err := provider.Dial(ctx, httpURL)
	if err != nil {
		return fmt.Errorf("dial http-rpc-url: %w", err)
	}
	defer blockProvider.Close()

	debugProvider := blockProvider
	if debugURL != httpURL {
		debugProvider, err = provider.Dial(ctx, debugURL)
		if err != nil {
			return fmt.Errorf("dial debug-http-rpc-url: %w", err)
		}
		defer debugProvider.Close()
	}

	var proveMode *config.ProofKind
	if !c.Bool("execute-only") {
		kind := config.ProofKindCore
		proveMode = &kind
	}

	cfg := config.Config{
		ChainID:     chainID,
		Genesis:     genesis,
		RPCURL:      httpURL,
		DebugRPCURL: debugURL,
		CacheDir:    c.String("cache-dir"),
		ProveMode:   proveMode,
	}

	elf, err := os.ReadFile(c.Path("elf-path"))
	if err != nil {
		return fmt.Errorf("read elf-path: %w", err)
	}

	// See cmd/host: MockProver stands in for the unavailable zkVM SDK
	// client behind the Prover boundary.
	client := &prover.MockProver{}
	pool := executor.NewBlockingPool(2)
	type keys struct {
		pk *prover.ProvingKey
		vk *prover.VerifyingKey
	}
	k, err := executor.Run(ctx, pool, func() (keys, error) {
		pk, vk, err := client.Setup(elf)
		return keys{pk: pk, vk: vk}, err
	})
	if err != nil {
		return fmt.Errorf("prover setup: %w", err)
	}
	pk, vk := k.pk, k.vk

	hostExecutor := hostexecutor.New(chainConfig, genesis, false)

	components := executor.NewEth()
	if c.String("moongate-endpoint") != "" {
		components = executor.NewOptimism()
	}

	var execHooks executor.ExecutionHooks = executor.NoopHooks{}
	if endpoint := c.String("eth-proofs-endpoint"); endpoint != "" {
		execHooks = hooks.NewEthProofsClient(endpoint, c.String("eth-proofs-api-token"), c.String("eth-proofs-cluster-id"))
	}

	full := executor.NewFullExecutor(blockProvider, debugProvider, hostExecutor, client, pk, vk, execHooks, cfg, components, pool)

	var alertClient *alerting.Client
	if key := c.String("pager-duty-integration-key"); key != "" {
		alertClient = alerting.New(key)
	}

	d := dispatcher.New(headProvider, full, alertClient, c.Uint64("block-interval"))

	metricsSrv := &http.Server{Addr: c.String("metrics-addr"), Handler: metrics.Handler()}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server stopped", "err", err)
		}
	}()
	defer metricsSrv.Close()

	return d.Run(ctx)
}

func resolveGenesis(c *cli.Context, chainID uint64) (config.Genesis, error) {
	if path := c.String("genesis-path"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return config.Genesis{}, fmt.Errorf("read genesis-path: %w", err)
		}
		return config.NewCustomGenesis(raw), nil
	}
	return config.GenesisFromChainID(chainID)
}
