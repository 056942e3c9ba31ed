package executor

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/ProjectZKM/reth-processor/cache"
	"github.com/ProjectZKM/reth-processor/config"
	"github.com/ProjectZKM/reth-processor/herrors"
	"github.com/ProjectZKM/reth-processor/hostexecutor"
	"github.com/ProjectZKM/reth-processor/log"
	"github.com/ProjectZKM/reth-processor/metrics"
	"github.com/ProjectZKM/reth-processor/provider"
	"github.com/ProjectZKM/reth-processor/prover"
)

// BlockExecutor is the common contract FullExecutor and CachedExecutor
// satisfy ([SPEC 4.6]). execute is not internally synchronized: the
// Dispatcher is responsible for serializing calls.
type BlockExecutor interface {
	Execute(ctx context.Context, blockNumber uint64) error
	WaitForBlock(ctx context.Context, blockNumber uint64) error
}

type sharedState struct {
	components Components
	client     prover.Prover
	pk         *prover.ProvingKey
	vk         *prover.VerifyingKey
	hooks      ExecutionHooks
	config     config.Config
	pool       *BlockingPool
	log        *log.Logger
}

// process drives steps 3-6 of FullExecutor's contract ([SPEC 4.6]), shared
// verbatim by FullExecutor and CachedExecutor once an input is in hand.
func (s *sharedState) process(ctx context.Context, input *hostexecutor.ClientExecutorInput) error {
	// Overlay, never cached ([SPEC 4.5]): a cached input's tracking flags
	// always reflect the live config, not whatever was true when it was
	// written.
	input.OpcodeTracking = s.config.OpcodeTracking
	input.PrecompileTracking = s.config.PrecompileTracking

	stdinBytes, err := input.Encode()
	if err != nil {
		return err
	}
	stdin := prover.NewStdin(stdinBytes)
	blockNumber := input.CurrentBlock.NumberU64()

	if s.config.ExecuteOnly() {
		type executeOutcome struct {
			pubvals *prover.PublicValues
			report  *prover.ExecutionReport
		}
		outcome, err := Run(ctx, s.pool, func() (executeOutcome, error) {
			pv, rep, err := s.client.Execute(s.pk, stdin)
			return executeOutcome{pubvals: pv, report: rep}, err
		})
		if err != nil {
			return errors.Wrap(err, "prover execute")
		}
		if outcome.report != nil {
			metrics.ProverCycles.Set(float64(outcome.report.TotalCycles()))
		}
		hash, ok := outcome.pubvals.ReadHash()
		if !ok {
			return herrors.NewCustom("guest did not commit a block hash")
		}
		s.log.Info("execution succeeded", "block", blockNumber, "block_hash", hash)
		return s.hooks.OnExecutionEnd(ctx, input.CurrentBlock, outcome.report)
	}

	if err := s.hooks.OnProvingStart(ctx, blockNumber); err != nil {
		return errors.Wrap(err, "on_proving_start hook")
	}

	elfID := prover.ElfIDHint(s.pk.ELF)
	provingStart := time.Now()
	result, err := Run(ctx, s.pool, func() (*prover.ProveResult, error) {
		return s.client.ProveWithCycles(s.pk, stdin, prover.Kind(*s.config.ProveMode), elfID)
	})
	if err != nil {
		return errors.Wrap(err, "prover prove_with_cycles")
	}
	duration := time.Since(provingStart)
	metrics.ProvingDuration.Observe(duration.Seconds())
	metrics.ProverCycles.Set(float64(result.Cycles))

	return s.hooks.OnProvingEnd(ctx, blockNumber, result.Proof, s.vk, result.Cycles, duration)
}

// waitForBlock polls p.BlockByNumber every 100ms until the block appears,
// with no upper bound by design: the watcher is subscription-driven, so
// the block will arrive ([SPEC 4.6]).
func waitForBlock(ctx context.Context, p provider.ChainDataProvider, blockNumber uint64) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		block, err := p.BlockByNumber(ctx, blockNumber)
		if err != nil {
			return err
		}
		if block != nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// FullExecutor has RPC providers and a cache; CachedExecutor has only a
// cache. Both embed sharedState for process().
type FullExecutor struct {
	sharedState
	provider      provider.ChainDataProvider
	debugProvider provider.ChainDataProvider
	hostExecutor  *hostexecutor.HostExecutor
	cache         *cache.InputCache // nil disables caching
	report        *hostexecutor.ReportWriter
}

// NewFullExecutor builds a FullExecutor. pk/vk must already be derived via
// prover.Setup, run on a blocking worker by the caller ([SPEC 4.7] step 1).
func NewFullExecutor(p, debugProvider provider.ChainDataProvider, hostExecutor *hostexecutor.HostExecutor, client prover.Prover, pk *prover.ProvingKey, vk *prover.VerifyingKey, hooks ExecutionHooks, cfg config.Config, components Components, pool *BlockingPool) *FullExecutor {
	var ic *cache.InputCache
	if cfg.CacheDir != "" {
		ic = cache.New(cfg.CacheDir)
	}
	return &FullExecutor{
		sharedState: sharedState{
			components: components,
			client:     client,
			pk:         pk,
			vk:         vk,
			hooks:      hooks,
			config:     cfg,
			pool:       pool,
			log:        log.Default().Module("full-executor"),
		},
		provider:      p,
		debugProvider: debugProvider,
		hostExecutor:  hostExecutor,
		cache:         ic,
	}
}

// SetReportWriter wires the operator-facing execution report CSV
// ([SPEC_FULL.md] supplemented feature).
func (e *FullExecutor) SetReportWriter(w *hostexecutor.ReportWriter) { e.report = w }

func (e *FullExecutor) WaitForBlock(ctx context.Context, blockNumber uint64) error {
	return waitForBlock(ctx, e.provider, blockNumber)
}

// Execute implements FullExecutor's contract ([SPEC 4.6]).
func (e *FullExecutor) Execute(ctx context.Context, blockNumber uint64) error {
	if err := e.hooks.OnExecutionStart(ctx, blockNumber); err != nil {
		return errors.Wrap(err, "on_execution_start hook")
	}

	start := time.Now()
	chainID := e.config.ChainID

	var input *hostexecutor.ClientExecutorInput
	if e.cache != nil {
		cached, err := e.cache.TryLoad(chainID, blockNumber)
		if err != nil {
			e.log.Warn("cache load failed", "block", blockNumber, "err", err)
		} else {
			input = cached
		}
	}
	if input != nil {
		metrics.CacheHits.Inc()
	} else {
		metrics.CacheMisses.Inc()

		fetched, err := e.hostExecutor.Execute(ctx, e.debugProvider, blockNumber, e.config.CustomBeneficiary, e.config.OpcodeTracking, e.config.PrecompileTracking, e.components.RecoverSenders, e.components.SkipBaseFeeCheck)
		if err != nil {
			metrics.BlocksFailed.Inc()
			return err
		}
		input = fetched

		if e.cache != nil {
			if err := e.cache.Store(chainID, blockNumber, input); err != nil {
				e.log.Warn("cache store failed", "block", blockNumber, "err", err)
			}
		}
	}

	elapsed := time.Since(start)
	e.log.Info("block executed", "block", blockNumber, "duration", elapsed)

	if err := e.process(ctx, input); err != nil {
		metrics.BlocksFailed.Inc()
		return err
	}
	metrics.BlocksDispatched.Inc()

	if e.report != nil {
		_ = e.report.Append(hostexecutor.ReportRow{
			BlockNumber: blockNumber,
			BlockHash:   input.CurrentBlock.Hash(),
			GasUsed:     input.CurrentBlock.GasUsed(),
			Duration:    elapsed,
		})
	}
	return nil
}

// CachedExecutor has no RPC providers; every block must already be cached
// ([SPEC 4.6]).
type CachedExecutor struct {
	sharedState
	cache *cache.InputCache
}

// NewCachedExecutor builds a CachedExecutor over an already-populated
// cache directory.
func NewCachedExecutor(cacheDir string, client prover.Prover, pk *prover.ProvingKey, vk *prover.VerifyingKey, hooks ExecutionHooks, cfg config.Config, components Components, pool *BlockingPool) *CachedExecutor {
	return &CachedExecutor{
		sharedState: sharedState{
			components: components,
			client:     client,
			pk:         pk,
			vk:         vk,
			hooks:      hooks,
			config:     cfg,
			pool:       pool,
			log:        log.Default().Module("cached-executor"),
		},
		cache: cache.New(cacheDir),
	}
}

// WaitForBlock is a no-op for CachedExecutor: there is no live chain to
// poll, the cache is assumed complete.
func (e *CachedExecutor) WaitForBlock(context.Context, uint64) error { return nil }

func (e *CachedExecutor) Execute(ctx context.Context, blockNumber uint64) error {
	if err := e.hooks.OnExecutionStart(ctx, blockNumber); err != nil {
		return errors.Wrap(err, "on_execution_start hook")
	}

	input, err := e.cache.TryLoad(e.config.ChainID, blockNumber)
	if err != nil {
		return err
	}
	if input == nil {
		return errors.Wrapf(herrors.ErrCacheMiss, "block %d", blockNumber)
	}
	metrics.CacheHits.Inc()

	if err := e.process(ctx, input); err != nil {
		metrics.BlocksFailed.Inc()
		return err
	}
	metrics.BlocksDispatched.Inc()
	return nil
}
