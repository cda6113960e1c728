package ord

import (
	"bytes"
	"context"

	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ord-indexer/common/errs"
	"github.com/gaze-network/ord-indexer/core/types"
	"github.com/gaze-network/ord-indexer/modules/ord/internal/entity"
	"github.com/gaze-network/ord-indexer/modules/ord/ordinals"
	"github.com/gaze-network/ord-indexer/modules/ord/runes"
	"github.com/gaze-network/uint128"
	"github.com/samber/lo"
)

type balances map[runes.RuneId]uint128.Uint128

func (b balances) add(id runes.RuneId, amount uint128.Uint128) error {
	sum, overflow := b[id].AddOverflow(amount)
	if overflow {
		return errors.Wrapf(errs.OverflowUint128, "balance of rune %s overflows", id)
	}
	b[id] = sum
	return nil
}

type etchedRune struct {
	id   runes.RuneId
	rune runes.Rune
}

// indexRunes applies the runestone of tx, moving the rune balances of its inputs to its outputs.
func (u *blockUpdater) indexRunes(ctx context.Context, txIndex uint32, tx *types.Transaction) error {
	artifact := runes.DecipherRunestone(tx)

	unallocated, err := u.unallocated(ctx, tx)
	if err != nil {
		return errors.WithStack(err)
	}
	allocated := make([]balances, len(tx.TxOut))
	for i := range allocated {
		allocated[i] = make(balances)
	}

	if artifact != nil {
		if id := artifact.MintRuneId(); id != nil {
			amount, ok, err := u.mint(ctx, *id)
			if err != nil {
				return errors.WithStack(err)
			}
			if ok {
				if err := unallocated.add(*id, amount); err != nil {
					return errors.WithStack(err)
				}
			}
		}

		etched, err := u.etched(ctx, txIndex, tx, artifact)
		if err != nil {
			return errors.WithStack(err)
		}

		if runestone, ok := artifact.(*runes.Runestone); ok {
			if etched != nil {
				if err := unallocated.add(etched.id, lo.FromPtr(runestone.Etching.Premine)); err != nil {
					return errors.WithStack(err)
				}
			}
			if err := allocateEdicts(tx, runestone.Edicts, etched, unallocated, allocated); err != nil {
				return errors.WithStack(err)
			}
		}

		if etched != nil {
			if err := u.createRuneEntry(ctx, tx, artifact, *etched); err != nil {
				return errors.WithStack(err)
			}
		}
	}

	burned := make(balances)
	if _, ok := artifact.(*runes.Cenotaph); ok {
		for id, balance := range unallocated {
			if err := burned.add(id, balance); err != nil {
				return errors.WithStack(err)
			}
		}
	} else {
		vout, ok := defaultOutput(tx, artifact)
		target := burned
		if ok {
			target = allocated[vout]
		}
		for id, balance := range unallocated {
			if balance.IsZero() {
				continue
			}
			if err := target.add(id, balance); err != nil {
				return errors.WithStack(err)
			}
		}
	}

	for vout, outputBalances := range allocated {
		if len(outputBalances) == 0 {
			continue
		}
		if tx.TxOut[vout].IsOpReturn() {
			for id, balance := range outputBalances {
				if err := burned.add(id, balance); err != nil {
					return errors.WithStack(err)
				}
			}
			continue
		}
		outPoint := wire.OutPoint{Hash: tx.TxHash, Index: uint32(vout)}
		entry, err := u.ordDg.GetOutputEntry(ctx, outPoint)
		if err != nil {
			return errors.Wrapf(err, "failed to get output %s", outPoint)
		}
		entry.Runes = entity.RuneBalancesFromMap(outputBalances)
		if err := u.ordDg.PutOutputEntry(ctx, outPoint, entry); err != nil {
			return errors.Wrapf(err, "failed to put output %s", outPoint)
		}
	}

	for id, amount := range burned {
		if amount.IsZero() {
			continue
		}
		entry, err := u.ordDg.GetRuneEntryByRuneId(ctx, id)
		if err != nil {
			return errors.Wrapf(err, "failed to get burned rune %s", id)
		}
		total, overflow := entry.Burned.AddOverflow(amount)
		if overflow {
			return errors.Wrapf(errs.OverflowUint128, "burned amount of rune %s overflows", id)
		}
		entry.Burned = total
		if err := u.ordDg.PutRuneEntry(ctx, entry); err != nil {
			return errors.Wrapf(err, "failed to put rune entry %s", id)
		}
	}
	return nil
}

// unallocated takes the rune balances off the inputs of tx.
func (u *blockUpdater) unallocated(ctx context.Context, tx *types.Transaction) (balances, error) {
	unallocated := make(balances)
	if tx.IsCoinbase() {
		return unallocated, nil
	}
	for _, txIn := range tx.TxIn {
		outPoint := txIn.PreviousOutPoint()
		entry, err := u.ordDg.GetOutputEntry(ctx, outPoint)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to get input %s", outPoint)
		}
		if len(entry.Runes) == 0 {
			continue
		}
		for _, balance := range entry.Runes {
			if err := unallocated.add(balance.RuneId, balance.Amount); err != nil {
				return nil, errors.WithStack(err)
			}
		}
		entry.Runes = nil
		if err := u.ordDg.PutOutputEntry(ctx, outPoint, entry); err != nil {
			return nil, errors.Wrapf(err, "failed to put input %s", outPoint)
		}
	}
	return unallocated, nil
}

// mint returns the amount minted for id, and false if the rune cannot be minted at this height.
func (u *blockUpdater) mint(ctx context.Context, id runes.RuneId) (uint128.Uint128, bool, error) {
	entry, err := u.ordDg.GetRuneEntryByRuneId(ctx, id)
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			return uint128.Zero, false, nil
		}
		return uint128.Zero, false, errors.Wrapf(err, "failed to get rune entry %s", id)
	}
	amount, err := entry.MintableAmount(u.height)
	if err != nil {
		return uint128.Zero, false, nil
	}
	entry.Mints = entry.Mints.Add64(1)
	if err := u.ordDg.PutRuneEntry(ctx, entry); err != nil {
		return uint128.Zero, false, errors.Wrapf(err, "failed to put rune entry %s", id)
	}
	return amount, true, nil
}

// etched returns the rune etched by artifact, or nil if there is no valid etching.
func (u *blockUpdater) etched(ctx context.Context, txIndex uint32, tx *types.Transaction, artifact runes.Artifact) (*etchedRune, error) {
	var name *runes.Rune
	switch a := artifact.(type) {
	case *runes.Runestone:
		if a.Etching == nil {
			return nil, nil
		}
		name = a.Etching.Rune
	case *runes.Cenotaph:
		if a.Etching == nil {
			return nil, nil
		}
		name = a.Etching
	default:
		return nil, nil
	}

	id := runes.RuneId{BlockHeight: u.height, TxIndex: txIndex}
	if name == nil {
		u.stats.ReservedRunes++
		return &etchedRune{id: id, rune: runes.NewReservedRune(u.height, txIndex)}, nil
	}

	if name.Cmp(runes.MinimumRuneAtHeight(u.network, u.height)) < 0 || name.IsReserved() {
		return nil, nil
	}
	_, err := u.ordDg.GetRuneIdFromRune(ctx, *name)
	if err == nil {
		return nil, nil
	}
	if !errors.Is(err, errs.NotFound) {
		return nil, errors.Wrapf(err, "failed to get rune %s", name)
	}
	committed, err := u.txCommitsToRune(ctx, tx, *name)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if !committed {
		return nil, nil
	}
	return &etchedRune{id: id, rune: *name}, nil
}

// txCommitsToRune reports whether a tapscript of tx pushes the commitment of name and spends a
// taproot output confirmed at least runes.CommitConfirmations blocks before this one.
func (u *blockUpdater) txCommitsToRune(ctx context.Context, tx *types.Transaction, name runes.Rune) (bool, error) {
	commitment := name.Commitment()
	for _, txIn := range tx.TxIn {
		tapScript, ok := ordinals.Tapscript(txIn.Witness)
		if !ok {
			continue
		}
		tokenizer := txscript.MakeScriptTokenizer(0, tapScript)
		for tokenizer.Next() {
			if !runes.IsDataPushOpCode(tokenizer.Opcode()) || !bytes.Equal(tokenizer.Data(), commitment) {
				continue
			}
			outPoint := txIn.PreviousOutPoint()
			entry, err := u.ordDg.GetOutputEntry(ctx, outPoint)
			if err != nil {
				return false, errors.Wrapf(err, "failed to get commitment input %s", outPoint)
			}
			if !txscript.IsPayToTaproot(entry.PkScript) {
				continue
			}
			if u.height >= entry.Height && u.height-entry.Height+1 >= runes.CommitConfirmations {
				return true, nil
			}
		}
	}
	return false, nil
}

func (u *blockUpdater) createRuneEntry(ctx context.Context, tx *types.Transaction, artifact runes.Artifact, etched etchedRune) error {
	entry := &runes.RuneEntry{
		RuneId:       etched.id,
		Number:       u.stats.Runes,
		SpacedRune:   runes.NewSpacedRune(etched.rune, 0),
		EtchingBlock: etched.id.BlockHeight,
		EtchingTx:    tx.TxHash,
		EtchedAt:     u.timestamp,
	}
	u.stats.Runes++
	if runestone, ok := artifact.(*runes.Runestone); ok {
		etching := runestone.Etching
		entry.Divisibility = lo.FromPtr(etching.Divisibility)
		entry.Premine = lo.FromPtr(etching.Premine)
		entry.SpacedRune.Spacers = lo.FromPtr(etching.Spacers)
		entry.Symbol = lo.FromPtr(etching.Symbol)
		entry.Terms = etching.Terms
		entry.Turbo = etching.Turbo
	}
	if err := u.ordDg.PutRuneEntry(ctx, entry); err != nil {
		return errors.Wrapf(err, "failed to put rune entry %s", etched.id)
	}
	return nil
}

// allocateEdicts moves amounts from unallocated to allocated in edict order. An edict never moves
// more than the remaining balance.
func allocateEdicts(tx *types.Transaction, edicts []runes.Edict, etched *etchedRune, unallocated balances, allocated []balances) error {
	var allocateErr error
	allocate := func(id runes.RuneId, amount uint128.Uint128, output int) {
		if amount.IsZero() || allocateErr != nil {
			return
		}
		unallocated[id] = unallocated[id].Sub(amount)
		allocateErr = allocated[output].add(id, amount)
	}

	for _, edict := range edicts {
		output := int(edict.Output)
		if output > len(tx.TxOut) {
			return errors.Wrapf(errs.Corrupted, "edict output %d out of range", output)
		}
		id := edict.Id
		if id.IsZero() {
			if etched == nil {
				continue
			}
			id = etched.id
		}
		balance, ok := unallocated[id]
		if !ok {
			continue
		}

		if output < len(tx.TxOut) {
			amount := balance
			if !edict.Amount.IsZero() {
				amount = minUint128(edict.Amount, balance)
			}
			allocate(id, amount, output)
			continue
		}

		destinations := lo.Filter(lo.Range(len(tx.TxOut)), func(vout int, _ int) bool {
			return !tx.TxOut[vout].IsOpReturn()
		})
		if len(destinations) == 0 {
			continue
		}
		if edict.Amount.IsZero() {
			amount, remainder := balance.QuoRem64(uint64(len(destinations)))
			for i, vout := range destinations {
				if uint64(i) < remainder {
					allocate(id, amount.Add64(1), vout)
				} else {
					allocate(id, amount, vout)
				}
			}
		} else {
			for _, vout := range destinations {
				allocate(id, minUint128(edict.Amount, unallocated[id]), vout)
			}
		}
	}
	return errors.WithStack(allocateErr)
}

// defaultOutput is the output receiving unallocated runes: the runestone pointer, else the first
// non-OP_RETURN output. ok is false if the runes must be burned.
func defaultOutput(tx *types.Transaction, artifact runes.Artifact) (vout int, ok bool) {
	if runestone, isRunestone := artifact.(*runes.Runestone); isRunestone && runestone.Pointer != nil {
		return int(*runestone.Pointer), true
	}
	_, index, found := lo.FindIndexOf(tx.TxOut, func(txOut *types.TxOut) bool {
		return !txOut.IsOpReturn()
	})
	return index, found
}

func minUint128(a, b uint128.Uint128) uint128.Uint128 {
	if a.Cmp(b) < 0 {
		return a
	}
	return b
}
