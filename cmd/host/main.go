// Command host runs a single block through the execution pipeline once and
// exits ([SPEC 6.4] "host one-shot flags").
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"

	"github.com/ProjectZKM/reth-processor/config"
	"github.com/ProjectZKM/reth-processor/executor"
	"github.com/ProjectZKM/reth-processor/hostexecutor"
	"github.com/ProjectZKM/reth-processor/log"
	"github.com/ProjectZKM/reth-processor/prover"
	"github.com/ProjectZKM/reth-processor/provider"
)

func main() {
	app := &cli.App{
		Name:  "host",
		Usage: "execute (and optionally prove) a single block",
		Flags: []cli.Flag{
			&cli.Uint64Flag{Name: "block-number", Required: true, Usage: "block height to process"},
			&cli.StringFlag{Name: "rpc-url", EnvVars: []string{"RPC_URL"}, Usage: "standard JSON-RPC endpoint"},
			&cli.StringFlag{Name: "debug-rpc-url", EnvVars: []string{"DEBUG_RPC_URL"}, Usage: "debug_executionWitness endpoint"},
			&cli.StringFlag{Name: "witness-rpc-url", EnvVars: []string{"WITNESS_RPC_URL"}, Usage: "witness-collection endpoint"},
			&cli.Uint64Flag{Name: "chain-id", Required: true, Usage: "chain id being proven"},
			&cli.StringFlag{Name: "genesis-path", Usage: "path to a geth-style genesis.json; omit for built-in mainnet"},
			&cli.StringFlag{Name: "custom-beneficiary", Usage: "override the block's fee recipient"},
			&cli.StringFlag{Name: "prove", Usage: "proof kind to request (core|compressed|groth16|plonk); omit to execute only"},
			&cli.StringFlag{Name: "cache-dir", Usage: "directory backing the on-disk input cache"},
			&cli.StringFlag{Name: "report-path", Value: "report.csv", Usage: "CSV execution report path"},
			&cli.BoolFlag{Name: "precompile-tracking", Usage: "enable precompile call tracking in the guest"},
			&cli.BoolFlag{Name: "opcode-tracking", Usage: "enable per-opcode cycle tracking in the guest"},
			&cli.PathFlag{Name: "elf-path", Usage: "path to the guest zkVM ELF"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Error("host run failed", "err", err)
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

	rpcURL := rpcURLWithFallback(c, "rpc-url", chainID)
	debugRPCURL := rpcURLWithFallback(c, "debug-rpc-url", chainID)
	if debugRPCURL == "" {
		debugRPCURL = rpcURL
	}
	witnessRPCURL := rpcURLWithFallback(c, "witness-rpc-url", chainID)
	if witnessRPCURL == "" {
		witnessRPCURL = debugRPCURL
	}
	if rpcURL == "" {
		return fmt.Errorf("no RPC endpoint configured: pass --rpc-url or set RPC_%d", chainID)
	}

	blockProvider, err := provider.Dial(ctx, rpcURL)
	if err != nil {
		return fmt.Errorf("dial rpc-url: %w", err)
	}
	defer blockProvider.Close()

	debugProvider := blockProvider
	if witnessRPCURL != rpcURL {
		debugProvider, err = provider.Dial(ctx, witnessRPCURL)
		if err != nil {
			return fmt.Errorf("dial witness-rpc-url: %w", err)
		}
		defer debugProvider.Close()
	}

	var customBeneficiary *common.Address
	if addr := c.String("custom-beneficiary"); addr != "" {
		a := common.HexToAddress(addr)
		customBeneficiary = &a
	}

	var proveMode *config.ProofKind
	if k := c.String("prove"); k != "" {
		kind := config.ProofKind(k)
		proveMode = &kind
	}

	cfg := config.Config{
		ChainID:           chainID,
		Genesis:           genesis,
		RPCURL:            rpcURL,
		DebugRPCURL:       debugRPCURL,
		WitnessRPCURL:     witnessRPCURL,
		CacheDir:          c.String("cache-dir"),
		CustomBeneficiary:  customBeneficiary,
		ProveMode:          proveMode,
		OpcodeTracking:     c.Bool("opcode-tracking"),
		PrecompileTracking: c.Bool("precompile-tracking"),
	}

	elf, err := loadELF(c.Path("elf-path"))
	if err != nil {
		return fmt.Errorf("load guest elf: %w", err)
	}

	// No zkVM guest SDK client is wired into this module's dependency
	// surface; MockProver stands in for the real zkm_sdk client behind the
	// Prover boundary until one is available.
	client := &prover.MockProver{}
	pool := executor.NewBlockingPool(1)
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

	hostExecutor := hostexecutor.New(chainConfig, genesis, true)
	components := executor.NewEth()

	full := executor.NewFullExecutor(blockProvider, debugProvider, hostExecutor, client, pk, vk, executor.NoopHooks{}, cfg, components, pool)
	if reportPath := c.String("report-path"); reportPath != "" {
		full.SetReportWriter(hostexecutor.NewReportWriter(reportPath))
	}

	blockNumber := c.Uint64("block-number")
	if err := full.WaitForBlock(ctx, blockNumber); err != nil {
		return fmt.Errorf("wait for block %d: %w", blockNumber, err)
	}
	return full.Execute(ctx, blockNumber)
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

func loadELF(path string) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("--elf-path is required")
	}
	return os.ReadFile(path)
}

// rpcURLWithFallback implements the explicit -> RPC_<chain_id> env ->
// unset fallback chain ([SPEC 6.4]).
func rpcURLWithFallback(c *cli.Context, flagName string, chainID uint64) string {
	if v := c.String(flagName); v != "" {
		return v
	}
	return os.Getenv(fmt.Sprintf("RPC_%d", chainID))
}
