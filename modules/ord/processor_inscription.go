package ord

import (
	"context"
	"slices"

	"github.com/btcsuite/btcd/wire"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ord-indexer/common/errs"
	"github.com/gaze-network/ord-indexer/core/types"
	"github.com/gaze-network/ord-indexer/modules/ord/internal/entity"
	"github.com/gaze-network/ord-indexer/modules/ord/ordinals"
	"github.com/samber/lo"
)

type curse int

const (
	curseNone curse = iota
	curseUnrecognizedEvenField
	curseDuplicateField
	curseIncompleteField
	curseNotInFirstInput
	curseNotAtOffsetZero
	cursePointer
	cursePushnum
	curseStutter
	curseReinscription
)

type inscribedOffset struct {
	id    ordinals.InscriptionId
	count int
}

// indexEnvelopes collects the inscriptions moving through tx: the ones already on its inputs and the
// ones revealed by its envelopes. Offsets are positions in the concatenated input sats.
func (u *blockUpdater) indexEnvelopes(ctx context.Context, tx *types.Transaction, inputs []*entity.OutputEntry) ([]entity.Flotsam, error) {
	var (
		flotsam         []entity.Flotsam
		idCounter       uint32
		inscribed       = make(map[uint64]*inscribedOffset)
		jubilant        = u.height >= ordinals.JubileeHeight(u.network)
		totalInputValue uint64
	)
	totalOutputValue := lo.SumBy(tx.TxOut, func(txOut *types.TxOut) uint64 { return uint64(txOut.Value) })

	markInscribed := func(offset uint64, id ordinals.InscriptionId) {
		if entry, ok := inscribed[offset]; ok {
			entry.count++
			return
		}
		inscribed[offset] = &inscribedOffset{id: id, count: 1}
	}

	envelopes := ordinals.ParseEnvelopesFromTx(tx)
	next := 0
	for inputIndex, txIn := range tx.TxIn {
		input := inputs[inputIndex]
		for _, location := range input.Inscriptions {
			offset := totalInputValue + location.Offset
			flotsam = append(flotsam, entity.Flotsam{
				Offset:        offset,
				InscriptionId: location.InscriptionId,
				OriginOld: &entity.OriginOld{
					OldSatPoint:    ordinals.SatPoint{OutPoint: txIn.PreviousOutPoint(), Offset: location.Offset},
					SequenceNumber: location.SequenceNumber,
				},
			})
			markInscribed(offset, location.InscriptionId)
		}

		offset := totalInputValue
		currentInputValue := input.Value
		totalInputValue += currentInputValue

		for ; next < len(envelopes) && envelopes[next].InputIndex == uint32(inputIndex); next++ {
			envelope := envelopes[next]
			inscription := envelope.Inscription
			id := ordinals.NewInscriptionId(tx.TxHash, idCounter)

			c, err := u.curseOf(ctx, envelope, inscribed[offset])
			if err != nil {
				return nil, errors.WithStack(err)
			}

			pointer := inscription.PointerValue()
			newOffset := offset
			if pointer != nil && *pointer < totalOutputValue {
				newOffset = *pointer
			}
			_, reinscription := inscribed[newOffset]

			flotsam = append(flotsam, entity.Flotsam{
				Offset:        newOffset,
				InscriptionId: id,
				OriginNew: &entity.OriginNew{
					Cursed:        c != curseNone && !jubilant,
					Parents:       inscription.ParentIds(),
					Pointer:       pointer,
					Reinscription: reinscription,
					Unbound:       currentInputValue == 0 || c == curseUnrecognizedEvenField || inscription.UnrecognizedEvenField,
					Vindicated:    c != curseNone && jubilant,
					Inscription:   inscription,
				},
			})
			markInscribed(newOffset, id)
			idCounter++
		}
	}

	potentialParents := make(map[ordinals.InscriptionId]struct{}, len(flotsam))
	for _, f := range flotsam {
		potentialParents[f.InscriptionId] = struct{}{}
	}
	for _, f := range flotsam {
		if f.OriginNew == nil {
			continue
		}
		seen := make(map[ordinals.InscriptionId]struct{})
		f.OriginNew.Parents = lo.Filter(f.OriginNew.Parents, func(parent ordinals.InscriptionId, _ int) bool {
			if _, ok := seen[parent]; ok {
				return false
			}
			seen[parent] = struct{}{}
			_, ok := potentialParents[parent]
			return ok
		})
		if totalInputValue >= totalOutputValue {
			f.OriginNew.Fee = (totalInputValue - totalOutputValue) / uint64(idCounter)
		}
	}
	return flotsam, nil
}

func (u *blockUpdater) curseOf(ctx context.Context, envelope *ordinals.Envelope, inscribed *inscribedOffset) (curse, error) {
	inscription := envelope.Inscription
	switch {
	case inscription.UnrecognizedEvenField:
		return curseUnrecognizedEvenField, nil
	case inscription.DuplicateField:
		return curseDuplicateField, nil
	case inscription.IncompleteField:
		return curseIncompleteField, nil
	case envelope.InputIndex != 0:
		return curseNotInFirstInput, nil
	case envelope.Offset != 0:
		return curseNotAtOffsetZero, nil
	case inscription.Pointer != nil:
		return cursePointer, nil
	case envelope.PushNum:
		return cursePushnum, nil
	case envelope.Stutter:
		return curseStutter, nil
	case inscribed == nil:
		return curseNone, nil
	case inscribed.count > 1:
		return curseReinscription, nil
	}

	// A single earlier inscription on the sat: reinscribing is only free if that one was cursed or vindicated.
	initial, err := u.ordDg.GetInscriptionEntryById(ctx, inscribed.id)
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			return curseNone, errors.Wrapf(errs.Corrupted, "inscription %s on input is not indexed", inscribed.id)
		}
		return curseNone, errors.Wrap(err, "failed to get initial inscription")
	}
	if initial.IsCursed() || initial.Charms.Has(entity.CharmVindicated) {
		return curseNone, nil
	}
	return curseReinscription, nil
}

// locateInscriptions places flotsam on the outputs of tx and returns the ones landing past the last output.
func (u *blockUpdater) locateInscriptions(ctx context.Context, tx *types.Transaction, outputs []*entity.OutputEntry, flotsam []entity.Flotsam, inputRanges ordinals.SatRanges) ([]entity.Flotsam, error) {
	if len(flotsam) == 0 {
		return nil, nil
	}
	slices.SortStableFunc(flotsam, func(a, b entity.Flotsam) int {
		switch {
		case a.Offset < b.Offset:
			return -1
		case a.Offset > b.Offset:
			return 1
		}
		return 0
	})

	type location struct {
		satPoint ordinals.SatPoint
		flotsam  entity.Flotsam
	}
	var (
		locations   []location
		outputValue uint64
		i           int
	)
	for vout, output := range outputs {
		end := outputValue + output.Value
		for ; i < len(flotsam) && flotsam[i].Offset < end; i++ {
			locations = append(locations, location{
				satPoint: ordinals.SatPoint{
					OutPoint: wire.OutPoint{Hash: tx.TxHash, Index: uint32(vout)},
					Offset:   flotsam[i].Offset - outputValue,
				},
				flotsam: flotsam[i],
			})
		}
		outputValue = end
	}

	for _, l := range locations {
		satPoint := l.satPoint
		if l.flotsam.OriginNew != nil && l.flotsam.OriginNew.Pointer != nil && *l.flotsam.OriginNew.Pointer < outputValue {
			pointer := *l.flotsam.OriginNew.Pointer
			satPoint = pointerSatPoint(tx, outputs, pointer)
			l.flotsam.Offset = pointer
		}
		if err := u.updateInscriptionLocation(ctx, l.flotsam, satPoint, inputRanges, outputs); err != nil {
			return nil, errors.WithStack(err)
		}
	}
	return flotsam[i:], nil
}

// pointerSatPoint resolves an offset into the concatenated outputs. pointer must be below their total value.
func pointerSatPoint(tx *types.Transaction, outputs []*entity.OutputEntry, pointer uint64) ordinals.SatPoint {
	var start uint64
	for vout, output := range outputs {
		if pointer < start+output.Value {
			return ordinals.SatPoint{
				OutPoint: wire.OutPoint{Hash: tx.TxHash, Index: uint32(vout)},
				Offset:   pointer - start,
			}
		}
		start += output.Value
	}
	return ordinals.SatPoint{}
}

// updateInscriptionLocation moves an inscription to satPoint, creating its entry if it is new.
// outputs are the not yet written entries of the transaction being indexed.
func (u *blockUpdater) updateInscriptionLocation(ctx context.Context, f entity.Flotsam, satPoint ordinals.SatPoint, inputRanges ordinals.SatRanges, outputs []*entity.OutputEntry) error {
	var (
		entry   *entity.InscriptionEntry
		unbound bool
	)
	if f.OriginOld != nil {
		var err error
		entry, err = u.ordDg.GetInscriptionEntryById(ctx, f.InscriptionId)
		if err != nil {
			if errors.Is(err, errs.NotFound) {
				return errors.Wrapf(errs.Corrupted, "moving inscription %s is not indexed", f.InscriptionId)
			}
			return errors.Wrap(err, "failed to get inscription entry")
		}
	} else {
		entry = u.newInscriptionEntry(f, satPoint, inputRanges)
		unbound = f.OriginNew.Unbound
		if body := f.OriginNew.Inscription.Body; len(body) > 0 {
			if err := u.ordDg.PutInscriptionContent(ctx, f.InscriptionId, body); err != nil {
				return errors.Wrap(err, "failed to put inscription content")
			}
		}
		if entry.Sat != nil {
			if err := u.ordDg.PutSatInscription(ctx, *entry.Sat, entry.SequenceNumber, entry.Id); err != nil {
				return errors.Wrap(err, "failed to put sat inscription")
			}
		}
	}

	if unbound {
		entry.Location = ordinals.SatPoint{OutPoint: ordinals.UnboundOutPoint, Offset: u.stats.UnboundInscriptions}
		u.stats.UnboundInscriptions++
	} else {
		entry.Location = satPoint
		location := entity.InscriptionLocation{
			Offset:         satPoint.Offset,
			SequenceNumber: entry.SequenceNumber,
			InscriptionId:  entry.Id,
		}
		if satPoint.OutPoint == ordinals.NullOutPoint {
			lost, err := u.getLostEntry(ctx)
			if err != nil {
				return errors.WithStack(err)
			}
			lost.AddInscription(location)
		} else {
			outputs[satPoint.OutPoint.Index].AddInscription(location)
		}
	}

	if err := u.ordDg.PutInscriptionEntry(ctx, entry); err != nil {
		return errors.Wrap(err, "failed to put inscription entry")
	}
	return nil
}

func (u *blockUpdater) newInscriptionEntry(f entity.Flotsam, satPoint ordinals.SatPoint, inputRanges ordinals.SatRanges) *entity.InscriptionEntry {
	origin := f.OriginNew
	inscription := origin.Inscription

	var number int64
	if origin.Cursed {
		number = -int64(u.stats.CursedInscriptions) - 1
		u.stats.CursedInscriptions++
	} else {
		number = int64(u.stats.BlessedInscriptions)
		u.stats.BlessedInscriptions++
	}
	sequenceNumber := u.stats.NextSequenceNumber
	u.stats.NextSequenceNumber++

	var sat *ordinals.Sat
	if !origin.Unbound {
		if s, ok := inputRanges.SatAt(f.Offset); ok {
			sat = &s
		}
	}

	var charms entity.Charms
	if origin.Cursed {
		charms.Set(entity.CharmCursed)
	}
	if origin.Reinscription {
		charms.Set(entity.CharmReinscription)
	}
	if satPoint.OutPoint == ordinals.NullOutPoint {
		charms.Set(entity.CharmLost)
	}
	if origin.Unbound {
		charms.Set(entity.CharmUnbound)
	}
	if origin.Vindicated {
		charms.Set(entity.CharmVindicated)
	}

	return &entity.InscriptionEntry{
		Id:              f.InscriptionId,
		Number:          number,
		SequenceNumber:  sequenceNumber,
		Charms:          charms,
		Fee:             origin.Fee,
		Height:          u.height,
		Timestamp:       u.timestamp,
		Sat:             sat,
		Parents:         origin.Parents,
		Delegate:        inscription.DelegateId(),
		Pointer:         origin.Pointer,
		ContentType:     string(inscription.ContentType),
		ContentEncoding: string(inscription.ContentEncoding),
		Metaprotocol:    string(inscription.Metaprotocol),
		ContentLength:   uint64(len(inscription.Body)),
	}
}
