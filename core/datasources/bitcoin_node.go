package datasources

import (
	"context"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/rpcclient"
	"github.com/btcsuite/btcd/wire"
	"github.com/cenkalti/backoff/v4"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ord-indexer/common/errs"
	"github.com/gaze-network/ord-indexer/core/types"
	"github.com/gaze-network/ord-indexer/internal/subscription"
	"github.com/gaze-network/ord-indexer/pkg/logger"
	"github.com/gaze-network/ord-indexer/pkg/logger/slogx"
	"golang.org/x/sync/errgroup"
)

const (
	blockStreamChunkSize = 5
	// fetchConcurrency is the number of blocks of a chunk fetched in parallel.
	fetchConcurrency = 5

	DefaultMaxRetries = 8
)

// BitcoinClient is the subset of the bitcoin node RPC used by BitcoinNodeDatasource.
type BitcoinClient interface {
	GetBlockCount() (int64, error)
	GetBlockHash(blockHeight int64) (*chainhash.Hash, error)
	GetBlock(blockHash *chainhash.Hash) (*wire.MsgBlock, error)
	GetBlockHeader(blockHash *chainhash.Hash) (*wire.BlockHeader, error)
}

var (
	_ BitcoinClient            = (*rpcclient.Client)(nil)
	_ Datasource[*types.Block] = (*BitcoinNodeDatasource)(nil)
)

// BitcoinNodeDatasource fetch data from Bitcoin node for Bitcoin Indexer
type BitcoinNodeDatasource struct {
	btcclient  BitcoinClient
	maxRetries uint64
}

// NewBitcoinNode create new BitcoinNodeDatasource with Bitcoin Core RPC Client. A maxRetries of 0 uses DefaultMaxRetries.
func NewBitcoinNode(btcclient BitcoinClient, maxRetries uint64) *BitcoinNodeDatasource {
	if maxRetries == 0 {
		maxRetries = DefaultMaxRetries
	}
	return &BitcoinNodeDatasource{
		btcclient:  btcclient,
		maxRetries: maxRetries,
	}
}

func (d BitcoinNodeDatasource) Name() string {
	return "bitcoin_node"
}

// Fetch polling blocks from Bitcoin node
//
//   - from: block height to start fetching, if -1, it will start from genesis block
//   - to: block height to stop fetching, if -1, it will fetch until the latest block
func (d *BitcoinNodeDatasource) Fetch(ctx context.Context, from, to int64) ([]*types.Block, error) {
	ch := make(chan []*types.Block)
	subscription, err := d.FetchAsync(ctx, from, to, ch)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer subscription.Unsubscribe()

	blocks := make([]*types.Block, 0)
	for {
		select {
		case b, ok := <-ch:
			if !ok {
				return blocks, nil
			}
			blocks = append(blocks, b...)
		case <-subscription.Done():
			if err := ctx.Err(); err != nil {
				return nil, errors.Wrap(err, "context done")
			}
			select {
			case err := <-subscription.Err():
				return nil, errors.Wrap(err, "got error while fetch async")
			default:
			}
			return blocks, nil
		case err := <-subscription.Err():
			if err != nil {
				return nil, errors.Wrap(err, "got error while fetch async")
			}
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), "context done")
		}
	}
}

// FetchAsync polling blocks from Bitcoin node asynchronously (non-blocking).
// Blocks are delivered in height order, in chunks. The subscription is closed when every block is sent.
//
//   - from: block height to start fetching, if -1, it will start from genesis block
//   - to: block height to stop fetching, if -1, it will fetch until the latest block
func (d *BitcoinNodeDatasource) FetchAsync(ctx context.Context, from, to int64, ch chan<- []*types.Block) (*subscription.ClientSubscription[[]*types.Block], error) {
	ctx = logger.WithContext(ctx,
		slogx.String("package", "datasources"),
		slogx.String("datasource", d.Name()),
	)

	start, end, skip, err := d.prepareRange(ctx, from, to)
	if err != nil {
		return nil, errors.Wrap(err, "failed to prepare fetch range")
	}

	subscription := subscription.NewSubscription(ch)
	if skip {
		subscription.Close()
		return subscription.Client(), nil
	}

	go func() {
		defer subscription.Close()

		for chunkStart := start; chunkStart <= end; chunkStart += blockStreamChunkSize {
			if subscription.IsClosed() {
				return
			}
			chunkEnd := min(chunkStart+blockStreamChunkSize-1, end)
			blocks, err := d.fetchChunk(ctx, chunkStart, chunkEnd)
			if err != nil {
				logger.ErrorContext(ctx, "Failed to fetch blocks", err,
					slogx.Int64("from", chunkStart),
					slogx.Int64("to", chunkEnd),
				)
				if err := subscription.SendError(ctx, err); err != nil {
					logger.WarnContext(ctx, "Failed to send fetch error to subscription", slogx.Error(err))
				}
				return
			}
			if err := subscription.Send(ctx, blocks); err != nil {
				if subscription.IsClosed() || errors.Is(err, context.Canceled) {
					return
				}
				logger.WarnContext(ctx, "Failed to send blocks to subscription", slogx.Error(err))
				return
			}
		}
	}()

	return subscription.Client(), nil
}

// fetchChunk fetches the blocks [from, to] concurrently and returns them in height order.
func (d *BitcoinNodeDatasource) fetchChunk(ctx context.Context, from, to int64) ([]*types.Block, error) {
	blocks := make([]*types.Block, to-from+1)
	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(fetchConcurrency)
	for height := from; height <= to; height++ {
		eg.Go(func() error {
			block, err := d.getBlock(ectx, height)
			if err != nil {
				return errors.Wrapf(err, "failed to get block %d", height)
			}
			blocks[height-from] = block
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, errors.WithStack(err)
	}
	return blocks, nil
}

func (d *BitcoinNodeDatasource) getBlock(ctx context.Context, height int64) (*types.Block, error) {
	hash, err := retry(ctx, d.maxRetries, func() (*chainhash.Hash, error) {
		return d.btcclient.GetBlockHash(height)
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get block hash")
	}
	block, err := retry(ctx, d.maxRetries, func() (*wire.MsgBlock, error) {
		return d.btcclient.GetBlock(hash)
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get block")
	}
	return types.ParseMsgBlock(block, height), nil
}

// GetBlockHeader fetch block header from Bitcoin node
func (d *BitcoinNodeDatasource) GetBlockHeader(ctx context.Context, height int64) (types.BlockHeader, error) {
	hash, err := retry(ctx, d.maxRetries, func() (*chainhash.Hash, error) {
		return d.btcclient.GetBlockHash(height)
	})
	if err != nil {
		return types.BlockHeader{}, errors.Wrap(err, "failed to get block hash")
	}
	header, err := retry(ctx, d.maxRetries, func() (*wire.BlockHeader, error) {
		return d.btcclient.GetBlockHeader(hash)
	})
	if err != nil {
		return types.BlockHeader{}, errors.Wrap(err, "failed to get block header")
	}
	return types.ParseBlockHeader(*header, height), nil
}

func (d *BitcoinNodeDatasource) prepareRange(ctx context.Context, fromHeight, toHeight int64) (start, end int64, skip bool, err error) {
	start = fromHeight
	end = toHeight

	// get current bitcoin block height
	latestBlockHeight, err := retry(ctx, d.maxRetries, d.btcclient.GetBlockCount)
	if err != nil {
		return -1, -1, false, errors.Wrap(err, "failed to get block count")
	}

	// set start to genesis block height
	if start < 0 {
		start = 0
	}

	// set end to current bitcoin block height if
	// - end is -1
	// - end is greater that current bitcoin block height
	if end < 0 || end > latestBlockHeight {
		end = latestBlockHeight
	}

	// if start is greater than end, skip this round
	if start > end {
		return -1, -1, true, nil
	}

	return start, end, false, nil
}

// retry calls fn with exponential backoff. After maxRetries failed retries the last error is marked as errs.Fatal.
func retry[T any](ctx context.Context, maxRetries uint64, fn func() (T, error)) (T, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 500 * time.Millisecond
	policy.MaxInterval = 30 * time.Second
	policy.MaxElapsedTime = 0

	attempt := 0
	result, err := backoff.RetryNotifyWithData(fn,
		backoff.WithContext(backoff.WithMaxRetries(policy, maxRetries), ctx),
		func(err error, next time.Duration) {
			attempt++
			logger.WarnContext(ctx, "Bitcoin node request failed, retrying",
				slogx.Error(err),
				slogx.Int("attempt", attempt),
				slogx.Duration("next_retry", next),
			)
		},
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, errors.WithStack(ctxErr)
		}
		return result, errors.Mark(errors.Wrapf(err, "bitcoin node request failed after %d retries", maxRetries), errs.Fatal)
	}
	return result, nil
}
