package indexer

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ord-indexer/common/errs"
	"github.com/gaze-network/ord-indexer/core/datasources"
	"github.com/gaze-network/ord-indexer/core/types"
	"github.com/gaze-network/ord-indexer/pkg/logger"
	"github.com/gaze-network/ord-indexer/pkg/logger/slogx"
	"golang.org/x/sync/errgroup"
)

const (
	// reorgSearchWindow is the number of heights compared concurrently while searching for a fork point.
	reorgSearchWindow = 16

	// DefaultPollingInterval is the default polling interval for the indexer polling worker
	DefaultPollingInterval = 15 * time.Second

	shutdownTimeout = 180 * time.Second
)

type Options struct {
	PollingInterval time.Duration
}

// Indexer generic indexer for fetching and processing data
type Indexer[T Input] struct {
	Processor       Processor[T]
	Datasource      datasources.Datasource[T]
	pollingInterval time.Duration

	mu           sync.RWMutex
	state        State
	currentBlock types.BlockHeader

	started  atomic.Bool
	quitOnce sync.Once
	quit     chan struct{}
	done     chan struct{}
}

// New create new generic indexer
func New[T Input](processor Processor[T], datasource datasources.Datasource[T], opts Options) *Indexer[T] {
	if opts.PollingInterval <= 0 {
		opts.PollingInterval = DefaultPollingInterval
	}
	return &Indexer[T]{
		Processor:       processor,
		Datasource:      datasource,
		pollingInterval: opts.PollingInterval,
		state:           State{Status: StatusIdle, Height: -1},

		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// State returns a snapshot of the indexer state machine.
func (i *Indexer[T]) State() State {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.state
}

func (i *Indexer[T]) setState(state State) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.state = state
}

// resetState moves the state machine back to the current block.
func (i *Indexer[T]) resetState() {
	if i.currentBlock.Height < 0 {
		i.setState(State{Status: StatusIdle, Height: -1})
		return
	}
	i.setState(State{Status: StatusCommitted, Height: i.currentBlock.Height})
}

func (i *Indexer[T]) Shutdown() error {
	return i.ShutdownWithContext(context.Background())
}

func (i *Indexer[T]) ShutdownWithTimeout(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return i.ShutdownWithContext(ctx)
}

func (i *Indexer[T]) ShutdownWithContext(ctx context.Context) (err error) {
	i.quitOnce.Do(func() {
		close(i.quit)
		if !i.started.Load() {
			return
		}
		select {
		case <-i.done:
		case <-time.After(shutdownTimeout):
			err = errors.Wrap(errs.Timeout, "indexer shutdown timeout")
		case <-ctx.Done():
			err = errors.Wrap(ctx.Err(), "indexer shutdown context canceled")
		}
	})
	return
}

// Run polls the datasource and indexes every new input until Shutdown is called or ctx is done.
// Transient failures are retried with backoff. Fatal failures stop the loop and are returned,
// the block cursor stays at the last committed block.
func (i *Indexer[T]) Run(ctx context.Context) (err error) {
	i.started.Store(true)
	defer close(i.done)

	ctx = logger.WithContext(ctx,
		slogx.String("package", "indexer"),
		slogx.String("processor", i.Processor.Name()),
		slogx.String("datasource", i.Datasource.Name()),
	)

	// set to -1 to start from genesis block
	i.currentBlock, err = i.Processor.CurrentBlock(ctx)
	if err != nil {
		if !errors.Is(err, errs.NotFound) {
			return errors.Wrap(err, "can't init state, failed to get indexer current block")
		}
		i.currentBlock = types.BlockHeader{Height: -1}
	} else {
		i.resetState()
	}

	retryPolicy := backoff.NewExponentialBackOff()
	retryPolicy.InitialInterval = time.Second
	retryPolicy.MaxInterval = 5 * time.Minute
	retryPolicy.MaxElapsedTime = 0

	wait := time.Duration(0)
	for {
		select {
		case <-i.quit:
			logger.InfoContext(ctx, "Got quit signal, stopping indexer")
			if err := i.Processor.Shutdown(ctx); err != nil {
				logger.ErrorContext(ctx, "Failed to shutdown processor", err)
				return errors.Wrap(err, "processor shutdown failed")
			}
			return nil
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
			if err := i.process(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				if isFatal(err) {
					logger.ErrorContext(ctx, "Indexer halted", err,
						slogx.Int64("current_block", i.currentBlock.Height),
					)
					return errors.Wrap(err, "process failed")
				}
				wait = retryPolicy.NextBackOff()
				logger.WarnContext(ctx, "Indexer failed while processing, retrying",
					slogx.Error(err),
					slogx.Duration("retry_in", wait),
				)
				continue
			}
			retryPolicy.Reset()
			wait = i.pollingInterval
			logger.DebugContext(ctx, "Waiting for next polling interval")
		}
	}
}

func isFatal(err error) bool {
	return errors.IsAny(err, errs.Fatal, errs.Corrupted, errs.ConflictSetting)
}

func (i *Indexer[T]) process(ctx context.Context) (err error) {
	// height range to fetch data
	from, to := i.currentBlock.Height+1, int64(-1)

	logger.InfoContext(ctx, "Start fetching input data", slogx.Int64("from", from))
	ch := make(chan []T)
	subscription, err := i.Datasource.FetchAsync(ctx, from, to, ch)
	if err != nil {
		return errors.Wrap(err, "failed to fetch input data")
	}
	defer subscription.Unsubscribe()

	for {
		select {
		case <-i.quit:
			return nil
		case inputs := <-ch:
			// empty inputs
			if len(inputs) == 0 {
				continue
			}

			firstInputHeader := inputs[0].BlockHeader()
			ctx := logger.WithContext(ctx,
				slogx.Int64("from", firstInputHeader.Height),
				slogx.Int64("to", inputs[len(inputs)-1].BlockHeader().Height),
			)

			// validate reorg from first input
			if !firstInputHeader.PrevBlock.IsEqual(&i.currentBlock.Hash) {
				logger.WarnContext(ctx, "Detected chain reorganization. Searching for fork point...",
					slogx.String("event", "reorg_detected"),
					slogx.Stringer("current_hash", i.currentBlock.Hash),
					slogx.Stringer("expected_hash", firstInputHeader.PrevBlock),
				)
				if err := i.handleReorg(ctx); err != nil {
					return errors.Wrap(err, "failed to handle chain reorganization")
				}
				// end current round to fetch again from the fork point
				return nil
			}

			// validate is input is continuous and no reorg
			for i := 1; i < len(inputs); i++ {
				header := inputs[i].BlockHeader()
				prevHeader := inputs[i-1].BlockHeader()
				if header.Height != prevHeader.Height+1 {
					return errors.Wrapf(errs.InternalError, "input is not continuous, input[%d] height: %d, input[%d] height: %d", i-1, prevHeader.Height, i, header.Height)
				}

				if !header.PrevBlock.IsEqual(&prevHeader.Hash) {
					logger.WarnContext(ctx, "Chain Reorganization occurred in the middle of batch fetching inputs, need to try to fetch again")

					// end current round
					return nil
				}
			}

			for _, input := range inputs {
				// quit is honored between blocks, never inside one
				select {
				case <-i.quit:
					return nil
				default:
				}
				if err := i.processInput(ctx, input); err != nil {
					return errors.WithStack(err)
				}
			}
		case <-subscription.Done():
			// end current round
			if err := ctx.Err(); err != nil {
				return errors.Wrap(err, "context done")
			}
			select {
			case err := <-subscription.Err():
				return errors.Wrap(err, "got error while fetch async")
			default:
			}
			return nil
		case <-ctx.Done():
			return errors.WithStack(ctx.Err())
		case err := <-subscription.Err():
			if err != nil {
				return errors.Wrap(err, "got error while fetch async")
			}
		}
	}
}

// processInput stages and commits a single input. On any failure the staged changes are discarded.
func (i *Indexer[T]) processInput(ctx context.Context, input T) error {
	header := input.BlockHeader()
	startAt := time.Now()
	i.setState(State{Status: StatusIndexing, Height: header.Height})

	if err := i.Processor.Process(ctx, input); err != nil {
		i.Processor.Discard()
		i.resetState()
		return errors.Wrapf(err, "failed to process block %d", header.Height)
	}

	if err := i.Processor.Commit(ctx); err != nil {
		logger.WarnContext(ctx, "Failed to commit block, retrying once",
			slogx.Error(err),
			slogx.Int64("height", header.Height),
		)
		if err := i.Processor.Commit(ctx); err != nil {
			i.Processor.Discard()
			i.resetState()
			return errors.Mark(errors.Wrapf(err, "failed to commit block %d", header.Height), errs.Fatal)
		}
	}

	i.currentBlock = header
	i.setState(State{Status: StatusCommitted, Height: header.Height})
	logger.InfoContext(ctx, "Committed block",
		slogx.String("event", "block_committed"),
		slogx.Int64("height", header.Height),
		slogx.Stringer("hash", header.Hash),
		slogx.Duration("duration", time.Since(startAt)),
	)
	return nil
}

// handleReorg reverts the indexed data down to the fork point and moves the cursor there.
func (i *Indexer[T]) handleReorg(ctx context.Context) error {
	start := time.Now()
	forkPoint, err := i.findForkPoint(ctx, i.currentBlock.Height-1)
	if err != nil {
		return errors.Wrap(err, "failed to find fork point")
	}

	logger.InfoContext(ctx, "Found reorg fork point, starting to revert data...",
		slogx.String("event", "reorg_forkpoint"),
		slogx.Int64("since", forkPoint.Height+1),
		slogx.Int64("total_blocks", i.currentBlock.Height-forkPoint.Height),
		slogx.Duration("search_duration", time.Since(start)),
	)

	start = time.Now()
	i.setState(State{Status: StatusRollingBack, Height: i.currentBlock.Height, To: forkPoint.Height})
	if err := i.Processor.RevertData(ctx, forkPoint.Height); err != nil {
		return errors.Mark(errors.Wrap(err, "failed to revert data"), errs.Fatal)
	}

	i.currentBlock = forkPoint
	i.resetState()
	logger.InfoContext(ctx, "Fixing chain reorganization completed",
		slogx.Int64("current_block", i.currentBlock.Height),
		slogx.Duration("duration", time.Since(start)),
	)
	return nil
}

// findForkPoint walks back from height until the indexed and the remote header agree.
// A header with height -1 is returned when no indexed block is canonical anymore.
func (i *Indexer[T]) findForkPoint(ctx context.Context, height int64) (types.BlockHeader, error) {
	for top := height; top >= 0; top -= reorgSearchWindow {
		bottom := max(top-reorgSearchWindow+1, 0)
		size := top - bottom + 1
		indexed := make([]types.BlockHeader, size)
		remote := make([]types.BlockHeader, size)

		eg, ectx := errgroup.WithContext(ctx)
		for h := bottom; h <= top; h++ {
			eg.Go(func() error {
				header, err := i.Processor.GetIndexedBlock(ectx, h)
				if err != nil {
					return errors.Wrapf(err, "failed to get indexed block, height: %d", h)
				}
				indexed[h-bottom] = header
				return nil
			})
			eg.Go(func() error {
				header, err := i.Datasource.GetBlockHeader(ectx, h)
				if err != nil {
					return errors.Wrapf(err, "failed to get remote block header, height: %d", h)
				}
				remote[h-bottom] = header
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return types.BlockHeader{}, errors.WithStack(err)
		}

		for n := size - 1; n >= 0; n-- {
			if indexed[n].Hash.IsEqual(&remote[n].Hash) {
				return remote[n], nil
			}
		}
	}
	return types.BlockHeader{Height: -1}, nil
}
