package usecase

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ord-indexer/common/errs"
	"github.com/gaze-network/ord-indexer/modules/ord/datagateway"
	"github.com/gaze-network/ord-indexer/modules/ord/internal/entity"
	"github.com/gaze-network/ord-indexer/modules/ord/ordinals"
)

type Inscription struct {
	*entity.InscriptionEntry
	// Output is nil when the inscription is unbound or lost.
	Output *entity.OutputEntry
}

type InscriptionContent struct {
	ContentType     string
	ContentEncoding string
	Body            []byte
}

func (u *Usecase) GetInscription(ctx context.Context, id ordinals.InscriptionId) (*Inscription, error) {
	return query(ctx, u, func(s datagateway.OrdReaderDataGateway) (*Inscription, error) {
		entry, err := s.GetInscriptionEntryById(ctx, id)
		if err != nil {
			return nil, errors.Wrap(err, "failed to get inscription entry")
		}
		result := &Inscription{InscriptionEntry: entry}

		outPoint := entry.Location.OutPoint
		if outPoint == ordinals.UnboundOutPoint || outPoint == ordinals.NullOutPoint {
			return result, nil
		}
		output, err := s.GetOutputEntry(ctx, outPoint)
		if err != nil {
			return nil, errors.Wrapf(errs.Corrupted, "inscription %s is located at unknown output %s: %v", id, outPoint, err)
		}
		result.Output = output
		return result, nil
	})
}

// GetInscriptionContent returns the body of the delegate when the inscription has one.
func (u *Usecase) GetInscriptionContent(ctx context.Context, id ordinals.InscriptionId) (*InscriptionContent, error) {
	return query(ctx, u, func(s datagateway.OrdReaderDataGateway) (*InscriptionContent, error) {
		entry, err := s.GetInscriptionEntryById(ctx, id)
		if err != nil {
			return nil, errors.Wrap(err, "failed to get inscription entry")
		}
		if entry.Delegate != nil {
			delegate, err := s.GetInscriptionEntryById(ctx, *entry.Delegate)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to get delegate %s", entry.Delegate)
			}
			entry = delegate
		}

		body, err := s.GetInscriptionContent(ctx, entry.Id)
		if err != nil {
			return nil, errors.Wrap(err, "failed to get inscription content")
		}
		return &InscriptionContent{
			ContentType:     entry.ContentType,
			ContentEncoding: entry.ContentEncoding,
			Body:            body,
		}, nil
	})
}

// GetLatestInscriptions pages through inscriptions, newest first.
func (u *Usecase) GetLatestInscriptions(ctx context.Context, limit, offset int) ([]*entity.InscriptionEntry, error) {
	return query(ctx, u, func(s datagateway.OrdReaderDataGateway) ([]*entity.InscriptionEntry, error) {
		entries, err := s.GetLatestInscriptionEntries(ctx, limit, offset)
		if err != nil {
			return nil, errors.Wrap(err, "failed to get latest inscriptions")
		}
		return entries, nil
	})
}
