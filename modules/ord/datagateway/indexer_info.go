package datagateway

import (
	"context"

	"github.com/gaze-network/ord-indexer/modules/ord/internal/entity"
)

type IndexerInfoDataGateway interface {
	// GetIndexerState returns errs.NotFound on a fresh database.
	GetIndexerState(ctx context.Context) (entity.IndexerState, error)
	// SetIndexerState is written immediately, outside of any staged block.
	SetIndexerState(ctx context.Context, state entity.IndexerState) error
}
