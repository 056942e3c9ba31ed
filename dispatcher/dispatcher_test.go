package dispatcher

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/core/types"

	"github.com/ProjectZKM/reth-processor/provider"
	"github.com/ProjectZKM/reth-processor/witness"
)

type fakeSubscription struct {
	errCh chan error
}

func (s *fakeSubscription) Err() <-chan error { return s.errCh }
func (s *fakeSubscription) Unsubscribe()       {}

type fakeProvider struct {
	headers chan *types.Header
	sub     *fakeSubscription
}

func (p *fakeProvider) BlockByNumber(context.Context, uint64) (*types.Block, error) { return nil, nil }
func (p *fakeProvider) ChainID(context.Context) (uint64, error)                      { return 1, nil }
func (p *fakeProvider) ExecutionWitness(context.Context, uint64) (*witness.ExecutionWitness, error) {
	return nil, nil
}

func (p *fakeProvider) SubscribeNewHeads(ctx context.Context, ch chan<- *types.Header) (provider.Subscription, error) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case h, ok := <-p.headers:
				if !ok {
					return
				}
				ch <- h
			}
		}
	}()
	return p.sub, nil
}

type fakeExecutor struct {
	mu       sync.Mutex
	executed []uint64
	failOn   map[uint64]error
}

func (e *fakeExecutor) WaitForBlock(context.Context, uint64) error { return nil }

func (e *fakeExecutor) Execute(ctx context.Context, blockNumber uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err, ok := e.failOn[blockNumber]; ok {
		return err
	}
	e.executed = append(e.executed, blockNumber)
	return nil
}

func header(n int64) *types.Header {
	return &types.Header{Number: big.NewInt(n)}
}

func TestDispatcher_FiltersByBlockInterval(t *testing.T) {
	headers := make(chan *types.Header, 8)
	p := &fakeProvider{headers: headers, sub: &fakeSubscription{errCh: make(chan error, 1)}}
	exec := &fakeExecutor{}

	d := New(p, exec, nil, 100)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	headers <- header(100)
	headers <- header(101)
	headers <- header(200)

	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	exec.mu.Lock()
	defer exec.mu.Unlock()
	if len(exec.executed) != 2 || exec.executed[0] != 100 || exec.executed[1] != 200 {
		t.Fatalf("executed = %v, want [100 200]", exec.executed)
	}
}

func TestDispatcher_ContinuesAfterBlockFailure(t *testing.T) {
	headers := make(chan *types.Header, 8)
	p := &fakeProvider{headers: headers, sub: &fakeSubscription{errCh: make(chan error, 1)}}
	exec := &fakeExecutor{failOn: map[uint64]error{100: errors.New("boom")}}

	d := New(p, exec, nil, 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	headers <- header(100)
	headers <- header(101)

	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	exec.mu.Lock()
	defer exec.mu.Unlock()
	if len(exec.executed) != 1 || exec.executed[0] != 101 {
		t.Fatalf("executed = %v, want [101] (100 should have failed and been skipped)", exec.executed)
	}
}
