// Package dispatcher implements the Dispatcher ([SPEC 4.7]): it subscribes
// to new chain heads, filters them by block interval, and drives a
// BlockExecutor strictly one block at a time.
package dispatcher

import (
	"context"
	"strconv"

	"github.com/ethereum/go-ethereum/core/types"

	"github.com/ProjectZKM/reth-processor/alerting"
	"github.com/ProjectZKM/reth-processor/executor"
	"github.com/ProjectZKM/reth-processor/log"
	"github.com/ProjectZKM/reth-processor/provider"
)

// Dispatcher watches p for new heads, filters them by BlockInterval, and
// processes each selected block strictly in order through exec, awaiting
// each call before consuming the next header ([SPEC 5] "Ordering
// guarantees").
type Dispatcher struct {
	provider      provider.ChainDataProvider
	exec          executor.BlockExecutor
	alerts        *alerting.Client // nil disables alerting
	blockInterval uint64
	log           *log.Logger
}

// New builds a Dispatcher. blockInterval must be >= 1; only headers whose
// number is divisible by it are dispatched ([SPEC 8] property 5).
func New(p provider.ChainDataProvider, exec executor.BlockExecutor, alerts *alerting.Client, blockInterval uint64) *Dispatcher {
	if blockInterval == 0 {
		blockInterval = 1
	}
	return &Dispatcher{
		provider:      p,
		exec:          exec,
		alerts:        alerts,
		blockInterval: blockInterval,
		log:           log.Default().Module("dispatcher"),
	}
}

// Run subscribes to new heads and processes selected blocks until ctx is
// cancelled ([SPEC 4.7] steps 2-4). In-flight block processing is allowed
// to finish; Run returns once the current block (if any) completes after
// cancellation is observed.
func (d *Dispatcher) Run(ctx context.Context) error {
	headers := make(chan *types.Header, 16)
	sub, err := d.provider.SubscribeNewHeads(ctx, headers)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-sub.Err():
			return err
		case header := <-headers:
			if header.Number.Uint64()%d.blockInterval != 0 {
				continue
			}
			d.dispatch(ctx, header.Number.Uint64())
		}
	}
}

// dispatch runs one block to completion, alerting and logging on failure
// but never aborting the loop ([SPEC 4.7] step 3b).
func (d *Dispatcher) dispatch(ctx context.Context, blockNumber uint64) {
	if err := d.exec.WaitForBlock(ctx, blockNumber); err != nil {
		d.reportFailure(ctx, blockNumber, err)
		return
	}
	if err := d.exec.Execute(ctx, blockNumber); err != nil {
		d.reportFailure(ctx, blockNumber, err)
		return
	}
}

func (d *Dispatcher) reportFailure(ctx context.Context, blockNumber uint64, err error) {
	msg := formatBlockError(blockNumber, err)
	d.log.Error(msg, "block", blockNumber, "err", err)
	if d.alerts == nil {
		return
	}
	if alertErr := d.alerts.Notify(ctx, alerting.Event{
		Summary:  msg,
		Severity: alerting.SeverityError,
		Source:   "reth-processor-dispatcher",
	}); alertErr != nil {
		d.log.Error("failed to push alert", "block", blockNumber, "err", alertErr)
	}
}

func formatBlockError(blockNumber uint64, err error) string {
	return "block " + strconv.FormatUint(blockNumber, 10) + " failed: " + err.Error()
}
