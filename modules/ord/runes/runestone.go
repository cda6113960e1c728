package runes

import (
	"slices"
	"unicode/utf8"

	"github.com/btcsuite/btcd/txscript"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ord-indexer/core/types"
	"github.com/gaze-network/ord-indexer/pkg/leb128"
	"github.com/gaze-network/uint128"
	"github.com/samber/lo"
)

const (
	// RunestoneMagicNumber follows OP_RETURN in the runestone output.
	RunestoneMagicNumber = txscript.OP_13
	// CommitConfirmations is the number of confirmations the commitment input needs before the etching.
	CommitConfirmations = 6
)

// Artifact is the decoded protocol message of a transaction, either *Runestone or *Cenotaph.
type Artifact interface {
	// MintRuneId is the rune this message mints, if any. Cenotaphs still count their mint.
	MintRuneId() *RuneId
	artifact()
}

type Runestone struct {
	Etching *Etching
	Mint    *RuneId
	// Pointer is the output receiving unallocated runes. When nil the first non-OP_RETURN output is used.
	Pointer *uint32
	Edicts  []Edict
	// UnknownFields are odd tags this indexer does not interpret, kept as decoded.
	UnknownFields Fields
}

// Cenotaph is a malformed runestone. All runes going into the transaction are burned,
// an etched rune is created but unmintable and its mint still counts.
type Cenotaph struct {
	Flaws   Flaws
	Mint    *RuneId
	Etching *Rune
}

func (r *Runestone) MintRuneId() *RuneId { return r.Mint }
func (c *Cenotaph) MintRuneId() *RuneId  { return c.Mint }

func (*Runestone) artifact() {}
func (*Cenotaph) artifact()  {}

// Encipher encodes the runestone into an OP_RETURN scriptPubKey.
func (r Runestone) Encipher() ([]byte, error) {
	var payload []byte

	encodeTagValues := func(tag Tag, values ...uint128.Uint128) {
		for _, value := range values {
			payload = leb128.AppendUint128(payload, tag.Uint128())
			payload = leb128.AppendUint128(payload, value)
		}
	}

	if r.Etching != nil {
		etching := r.Etching
		flags := Flags(uint128.Zero)
		flags.Set(FlagEtching)
		if etching.Terms != nil {
			flags.Set(FlagTerms)
		}
		if etching.Turbo {
			flags.Set(FlagTurbo)
		}
		encodeTagValues(TagFlags, flags.Uint128())

		if etching.Rune != nil {
			encodeTagValues(TagRune, etching.Rune.Uint128())
		}
		if etching.Divisibility != nil {
			encodeTagValues(TagDivisibility, uint128.From64(uint64(*etching.Divisibility)))
		}
		if etching.Spacers != nil {
			encodeTagValues(TagSpacers, uint128.From64(uint64(*etching.Spacers)))
		}
		if etching.Symbol != nil {
			encodeTagValues(TagSymbol, uint128.From64(uint64(*etching.Symbol)))
		}
		if etching.Premine != nil {
			encodeTagValues(TagPremine, *etching.Premine)
		}
		if terms := etching.Terms; terms != nil {
			if terms.Amount != nil {
				encodeTagValues(TagAmount, *terms.Amount)
			}
			if terms.Cap != nil {
				encodeTagValues(TagCap, *terms.Cap)
			}
			if terms.HeightStart != nil {
				encodeTagValues(TagHeightStart, uint128.From64(*terms.HeightStart))
			}
			if terms.HeightEnd != nil {
				encodeTagValues(TagHeightEnd, uint128.From64(*terms.HeightEnd))
			}
			if terms.OffsetStart != nil {
				encodeTagValues(TagOffsetStart, uint128.From64(*terms.OffsetStart))
			}
			if terms.OffsetEnd != nil {
				encodeTagValues(TagOffsetEnd, uint128.From64(*terms.OffsetEnd))
			}
		}
	}

	if r.Mint != nil {
		encodeTagValues(TagMint, uint128.From64(r.Mint.BlockHeight), uint128.From64(uint64(r.Mint.TxIndex)))
	}
	if r.Pointer != nil {
		encodeTagValues(TagPointer, uint128.From64(uint64(*r.Pointer)))
	}

	unknownTags := lo.Keys(r.UnknownFields)
	slices.SortFunc(unknownTags, func(a, b Tag) int { return a.Uint128().Cmp(b.Uint128()) })
	for _, tag := range unknownTags {
		encodeTagValues(tag, r.UnknownFields[tag]...)
	}

	if len(r.Edicts) > 0 {
		payload = leb128.AppendUint128(payload, TagBody.Uint128())
		edicts := slices.Clone(r.Edicts)
		slices.SortStableFunc(edicts, func(a, b Edict) int { return a.Id.Cmp(b.Id) })

		var previous RuneId
		for _, edict := range edicts {
			blockDelta, txDelta := previous.Delta(edict.Id)
			payload = leb128.AppendUint64(payload, blockDelta)
			payload = leb128.AppendUint64(payload, uint64(txDelta))
			payload = leb128.AppendUint128(payload, edict.Amount)
			payload = leb128.AppendUint64(payload, uint64(edict.Output))
			previous = edict.Id
		}
	}

	// Pushes are written explicitly: the script builder would turn one-byte pushes into OP_N.
	sb := txscript.NewScriptBuilder().
		AddOp(txscript.OP_RETURN).
		AddOp(RunestoneMagicNumber)
	for _, chunk := range lo.Chunk(payload, txscript.MaxScriptElementSize) {
		sb.AddOps(pushData(chunk))
	}
	scriptPubKey, err := sb.Script()
	if err != nil {
		return nil, errors.Wrap(err, "cannot build scriptPubKey")
	}
	return scriptPubKey, nil
}

func pushData(data []byte) []byte {
	n := len(data)
	var push []byte
	switch {
	case n <= txscript.OP_DATA_75:
		push = []byte{byte(n)}
	case n <= 0xff:
		push = []byte{txscript.OP_PUSHDATA1, byte(n)}
	default:
		push = []byte{txscript.OP_PUSHDATA2, byte(n), byte(n >> 8)}
	}
	return append(push, data...)
}

// DecipherRunestone decodes the protocol message of tx. It returns nil when tx carries no runestone output.
// Malformed messages never fail: they decode into a *Cenotaph carrying the flaws found.
func DecipherRunestone(tx *types.Transaction) Artifact {
	payload, found, flaws := runestonePayload(tx)
	if !found {
		return nil
	}
	if flaws != 0 {
		return &Cenotaph{Flaws: flaws}
	}

	integers, err := decodeIntegers(payload)
	if err != nil {
		return &Cenotaph{Flaws: FlawFlagVarInt.Mask()}
	}

	msg := messageFromIntegers(tx, integers)
	flaws = msg.Flaws
	fields := msg.Fields

	flags, _ := TakeWith(fields, TagFlags, 1, func(values []uint128.Uint128) (Flags, bool) {
		return Flags(values[0]), true
	})

	var etching *Etching
	if flags.Take(FlagEtching) {
		etching = &Etching{}
		if v, ok := TakeWith(fields, TagDivisibility, 1, func(values []uint128.Uint128) (uint8, bool) {
			return uint8(values[0].Lo), values[0].Cmp64(uint64(maxDivisibility)) <= 0
		}); ok {
			etching.Divisibility = &v
		}
		etching.Premine = fields.Take(TagPremine)
		if v := fields.Take(TagRune); v != nil {
			etching.Rune = lo.ToPtr(Rune(*v))
		}
		if v, ok := TakeWith(fields, TagSpacers, 1, func(values []uint128.Uint128) (uint32, bool) {
			return uint32(values[0].Lo), values[0].Cmp64(uint64(maxSpacers)) <= 0
		}); ok {
			etching.Spacers = &v
		}
		if v, ok := TakeWith(fields, TagSymbol, 1, func(values []uint128.Uint128) (rune, bool) {
			if !values[0].IsUint32() {
				return 0, false
			}
			symbol := rune(uint32(values[0].Lo))
			return symbol, utf8.ValidRune(symbol)
		}); ok {
			etching.Symbol = &v
		}
		if flags.Take(FlagTerms) {
			terms := &Terms{
				Cap:    fields.Take(TagCap),
				Amount: fields.Take(TagAmount),
			}
			takeUint64 := func(tag Tag) *uint64 {
				v, ok := TakeWith(fields, tag, 1, func(values []uint128.Uint128) (uint64, bool) {
					return values[0].Lo, values[0].IsUint64()
				})
				if !ok {
					return nil
				}
				return &v
			}
			terms.HeightStart = takeUint64(TagHeightStart)
			terms.HeightEnd = takeUint64(TagHeightEnd)
			terms.OffsetStart = takeUint64(TagOffsetStart)
			terms.OffsetEnd = takeUint64(TagOffsetEnd)
			etching.Terms = terms
		}
		etching.Turbo = flags.Take(FlagTurbo)
	}

	var mint *RuneId
	if v, ok := TakeWith(fields, TagMint, 2, func(values []uint128.Uint128) (RuneId, bool) {
		if !values[0].IsUint64() || !values[1].IsUint32() {
			return RuneId{}, false
		}
		runeId, err := NewRuneId(values[0].Uint64(), uint32(values[1].Lo))
		return runeId, err == nil
	}); ok {
		mint = &v
	}

	var pointer *uint32
	if v, ok := TakeWith(fields, TagPointer, 1, func(values []uint128.Uint128) (uint32, bool) {
		return uint32(values[0].Lo), values[0].IsUint32() && values[0].Cmp64(uint64(len(tx.TxOut))) < 0
	}); ok {
		pointer = &v
	}

	if etching != nil {
		if _, err := etching.Supply(); err != nil {
			flaws |= FlawFlagSupplyOverflow.Mask()
		}
	}
	if !flags.Uint128().IsZero() {
		flaws |= FlawFlagUnrecognizedFlag.Mask()
	}
	if fields.hasEvenTags() {
		flaws |= FlawFlagUnrecognizedEvenTag.Mask()
	}

	if flaws != 0 {
		cenotaph := &Cenotaph{
			Flaws: flaws,
			Mint:  mint,
		}
		if etching != nil {
			cenotaph.Etching = etching.Rune
		}
		return cenotaph
	}

	var unknownFields Fields
	if len(fields) > 0 {
		unknownFields = fields
	}
	return &Runestone{
		Etching:       etching,
		Mint:          mint,
		Pointer:       pointer,
		Edicts:        msg.Edicts,
		UnknownFields: unknownFields,
	}
}

// runestonePayload concatenates the data pushes of the first OP_RETURN OP_13 output.
func runestonePayload(tx *types.Transaction) (payload []byte, found bool, flaws Flaws) {
	for _, output := range tx.TxOut {
		tokenizer := txscript.MakeScriptTokenizer(0, output.PkScript)
		if !tokenizer.Next() || tokenizer.Opcode() != txscript.OP_RETURN {
			continue
		}
		if !tokenizer.Next() || tokenizer.Opcode() != RunestoneMagicNumber {
			continue
		}

		payload = make([]byte, 0)
		for tokenizer.Next() {
			if !IsDataPushOpCode(tokenizer.Opcode()) {
				return nil, true, FlawFlagOpCode.Mask()
			}
			payload = append(payload, tokenizer.Data()...)
		}
		if tokenizer.Err() != nil {
			return nil, true, FlawFlagInvalidScript.Mask()
		}
		return payload, true, 0
	}
	return nil, false, 0
}

func decodeIntegers(payload []byte) ([]uint128.Uint128, error) {
	integers := make([]uint128.Uint128, 0)
	for i := 0; i < len(payload); {
		n, length, err := leb128.DecodeUint128(payload[i:])
		if err != nil {
			return nil, errors.Wrap(err, "cannot decode LEB128 varint")
		}
		integers = append(integers, n)
		i += length
	}
	return integers, nil
}

// IsDataPushOpCode covers OP_0, OP_DATA_1 to OP_DATA_75, and OP_PUSHDATA1 to OP_PUSHDATA4.
func IsDataPushOpCode(opCode byte) bool {
	return opCode <= txscript.OP_PUSHDATA4
}
