package kvstore

import (
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ord-indexer/common"
	"github.com/gaze-network/ord-indexer/common/errs"
	"github.com/gaze-network/ord-indexer/modules/ord/internal/entity"
	"github.com/gaze-network/ord-indexer/modules/ord/ordinals"
	"github.com/gaze-network/ord-indexer/modules/ord/runes"
	"github.com/gaze-network/ord-indexer/pkg/leb128"
	"github.com/gaze-network/uint128"
)

// encoder writes records as a sequence of LEB128 varints and length-prefixed byte strings.
type encoder struct {
	buf []byte
}

func (e *encoder) uint64(v uint64) {
	e.buf = leb128.AppendUint64(e.buf, v)
}

// int64 is zigzag encoded.
func (e *encoder) int64(v int64) {
	e.uint64(uint64(v<<1) ^ uint64(v>>63))
}

func (e *encoder) uint128(v uint128.Uint128) {
	e.buf = leb128.AppendUint128(e.buf, v)
}

func (e *encoder) bool(v bool) {
	if v {
		e.buf = append(e.buf, 1)
		return
	}
	e.buf = append(e.buf, 0)
}

func (e *encoder) bytes(v []byte) {
	e.uint64(uint64(len(v)))
	e.buf = append(e.buf, v...)
}

func (e *encoder) string(v string) {
	e.bytes([]byte(v))
}

func (e *encoder) hash(v chainhash.Hash) {
	e.buf = append(e.buf, v[:]...)
}

func (e *encoder) time(v time.Time) {
	if v.IsZero() {
		e.int64(0)
		return
	}
	e.int64(v.Unix())
}

func (e *encoder) outPoint(v wire.OutPoint) {
	e.hash(v.Hash)
	e.uint64(uint64(v.Index))
}

func (e *encoder) inscriptionId(v ordinals.InscriptionId) {
	e.hash(v.TxHash)
	e.uint64(uint64(v.Index))
}

func (e *encoder) runeId(v runes.RuneId) {
	e.uint64(v.BlockHeight)
	e.uint64(uint64(v.TxIndex))
}

func (e *encoder) optUint64(v *uint64) {
	e.bool(v != nil)
	if v != nil {
		e.uint64(*v)
	}
}

func (e *encoder) optUint128(v *uint128.Uint128) {
	e.bool(v != nil)
	if v != nil {
		e.uint128(*v)
	}
}

type decoder struct {
	data []byte
	err  error
}

func newDecoder(data []byte) *decoder {
	return &decoder{data: data}
}

func (d *decoder) fail(err error) {
	if d.err == nil {
		d.err = errors.Wrap(errs.Corrupted, err.Error())
	}
}

func (d *decoder) uint64() uint64 {
	if d.err != nil {
		return 0
	}
	v, n, err := leb128.DecodeUint64(d.data)
	if err != nil {
		d.fail(err)
		return 0
	}
	d.data = d.data[n:]
	return v
}

func (d *decoder) uint32() uint32 {
	v := d.uint64()
	if v > 1<<32-1 {
		d.fail(errs.OverflowUint64)
		return 0
	}
	return uint32(v)
}

func (d *decoder) int64() int64 {
	v := d.uint64()
	return int64(v>>1) ^ -int64(v&1)
}

func (d *decoder) uint128() uint128.Uint128 {
	if d.err != nil {
		return uint128.Zero
	}
	v, n, err := leb128.DecodeUint128(d.data)
	if err != nil {
		d.fail(err)
		return uint128.Zero
	}
	d.data = d.data[n:]
	return v
}

func (d *decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if n < 0 || n > len(d.data) {
		d.fail(errors.Newf("need %d bytes, %d left", n, len(d.data)))
		return nil
	}
	v := d.data[:n]
	d.data = d.data[n:]
	return v
}

func (d *decoder) bool() bool {
	v := d.take(1)
	if v == nil {
		return false
	}
	if v[0] > 1 {
		d.fail(errors.Newf("invalid bool byte %d", v[0]))
	}
	return v[0] == 1
}

// bytes returns a copy, the decoded buffer may be reused by the store.
func (d *decoder) bytes() []byte {
	n := d.uint64()
	if n > uint64(len(d.data)) {
		d.fail(errors.Newf("byte string of %d bytes, %d left", n, len(d.data)))
		return nil
	}
	v := d.take(int(n))
	if v == nil {
		return nil
	}
	return append([]byte{}, v...)
}

func (d *decoder) string() string {
	return string(d.bytes())
}

func (d *decoder) hash() chainhash.Hash {
	var h chainhash.Hash
	copy(h[:], d.take(chainhash.HashSize))
	return h
}

func (d *decoder) time() time.Time {
	v := d.int64()
	if v == 0 {
		return time.Time{}
	}
	return time.Unix(v, 0).UTC()
}

func (d *decoder) outPoint() wire.OutPoint {
	h := d.hash()
	return wire.OutPoint{Hash: h, Index: d.uint32()}
}

func (d *decoder) inscriptionId() ordinals.InscriptionId {
	h := d.hash()
	return ordinals.NewInscriptionId(h, d.uint32())
}

func (d *decoder) runeId() runes.RuneId {
	block := d.uint64()
	return runes.RuneId{BlockHeight: block, TxIndex: d.uint32()}
}

func (d *decoder) optUint64() *uint64 {
	if !d.bool() {
		return nil
	}
	v := d.uint64()
	return &v
}

func (d *decoder) optUint128() *uint128.Uint128 {
	if !d.bool() {
		return nil
	}
	v := d.uint128()
	return &v
}

// count reads a collection length, rejecting lengths that cannot fit in the remaining bytes.
func (d *decoder) count() int {
	n := d.uint64()
	if n > uint64(len(d.data)) {
		d.fail(errors.Newf("collection of %d items, %d bytes left", n, len(d.data)))
		return 0
	}
	return int(n)
}

func (d *decoder) finish() error {
	if d.err == nil && len(d.data) > 0 {
		d.fail(errors.Newf("%d trailing bytes", len(d.data)))
	}
	return d.err
}

func encodeOutputEntry(entry *entity.OutputEntry) []byte {
	e := &encoder{}
	e.uint64(entry.Value)
	e.bytes(entry.PkScript)
	e.uint64(entry.Height)
	e.bool(entry.Spent)
	e.uint64(entry.SpentHeight)
	e.uint64(uint64(len(entry.SatRanges)))
	for _, satRange := range entry.SatRanges {
		e.uint64(satRange.Start)
		e.uint64(satRange.Count())
	}
	e.uint64(uint64(len(entry.Inscriptions)))
	for _, location := range entry.Inscriptions {
		e.uint64(location.Offset)
		e.uint64(location.SequenceNumber)
		e.inscriptionId(location.InscriptionId)
	}
	e.uint64(uint64(len(entry.Runes)))
	for _, balance := range entry.Runes {
		e.runeId(balance.RuneId)
		e.uint128(balance.Amount)
	}
	return e.buf
}

func decodeOutputEntry(data []byte) (*entity.OutputEntry, error) {
	d := newDecoder(data)
	entry := &entity.OutputEntry{
		Value:       d.uint64(),
		PkScript:    d.bytes(),
		Height:      d.uint64(),
		Spent:       d.bool(),
		SpentHeight: d.uint64(),
	}
	if n := d.count(); n > 0 {
		entry.SatRanges = make(ordinals.SatRanges, 0, n)
		for i := 0; i < n; i++ {
			start := d.uint64()
			entry.SatRanges = append(entry.SatRanges, ordinals.SatRange{Start: start, End: start + d.uint64()})
		}
	}
	if n := d.count(); n > 0 {
		entry.Inscriptions = make([]entity.InscriptionLocation, 0, n)
		for i := 0; i < n; i++ {
			entry.Inscriptions = append(entry.Inscriptions, entity.InscriptionLocation{
				Offset:         d.uint64(),
				SequenceNumber: d.uint64(),
				InscriptionId:  d.inscriptionId(),
			})
		}
	}
	if n := d.count(); n > 0 {
		entry.Runes = make([]entity.RuneBalance, 0, n)
		for i := 0; i < n; i++ {
			entry.Runes = append(entry.Runes, entity.RuneBalance{
				RuneId: d.runeId(),
				Amount: d.uint128(),
			})
		}
	}
	if err := d.finish(); err != nil {
		return nil, errors.Wrap(err, "invalid output entry")
	}
	return entry, nil
}

func encodeInscriptionEntry(entry *entity.InscriptionEntry) []byte {
	e := &encoder{}
	e.inscriptionId(entry.Id)
	e.int64(entry.Number)
	e.uint64(entry.SequenceNumber)
	e.uint64(uint64(entry.Charms))
	e.uint64(entry.Fee)
	e.uint64(entry.Height)
	e.time(entry.Timestamp)
	e.bool(entry.Sat != nil)
	if entry.Sat != nil {
		e.uint64(uint64(*entry.Sat))
	}
	e.uint64(uint64(len(entry.Parents)))
	for _, parent := range entry.Parents {
		e.inscriptionId(parent)
	}
	e.bool(entry.Delegate != nil)
	if entry.Delegate != nil {
		e.inscriptionId(*entry.Delegate)
	}
	e.optUint64(entry.Pointer)
	e.string(entry.ContentType)
	e.string(entry.ContentEncoding)
	e.string(entry.Metaprotocol)
	e.uint64(entry.ContentLength)
	e.outPoint(entry.Location.OutPoint)
	e.uint64(entry.Location.Offset)
	return e.buf
}

func decodeInscriptionEntry(data []byte) (*entity.InscriptionEntry, error) {
	d := newDecoder(data)
	entry := &entity.InscriptionEntry{
		Id:             d.inscriptionId(),
		Number:         d.int64(),
		SequenceNumber: d.uint64(),
		Charms:         entity.Charms(d.uint64()),
		Fee:            d.uint64(),
		Height:         d.uint64(),
		Timestamp:      d.time(),
	}
	if d.bool() {
		sat := ordinals.Sat(d.uint64())
		entry.Sat = &sat
	}
	if n := d.count(); n > 0 {
		entry.Parents = make([]ordinals.InscriptionId, 0, n)
		for i := 0; i < n; i++ {
			entry.Parents = append(entry.Parents, d.inscriptionId())
		}
	}
	if d.bool() {
		delegate := d.inscriptionId()
		entry.Delegate = &delegate
	}
	entry.Pointer = d.optUint64()
	entry.ContentType = d.string()
	entry.ContentEncoding = d.string()
	entry.Metaprotocol = d.string()
	entry.ContentLength = d.uint64()
	entry.Location.OutPoint = d.outPoint()
	entry.Location.Offset = d.uint64()
	if err := d.finish(); err != nil {
		return nil, errors.Wrap(err, "invalid inscription entry")
	}
	return entry, nil
}

func encodeRuneEntry(entry *runes.RuneEntry) []byte {
	e := &encoder{}
	e.runeId(entry.RuneId)
	e.uint64(entry.Number)
	e.uint64(uint64(entry.Divisibility))
	e.uint128(entry.Premine)
	e.uint128(entry.SpacedRune.Rune.Uint128())
	e.uint64(uint64(entry.SpacedRune.Spacers))
	e.int64(int64(entry.Symbol))
	e.bool(entry.Terms != nil)
	if entry.Terms != nil {
		e.optUint128(entry.Terms.Amount)
		e.optUint128(entry.Terms.Cap)
		e.optUint64(entry.Terms.HeightStart)
		e.optUint64(entry.Terms.HeightEnd)
		e.optUint64(entry.Terms.OffsetStart)
		e.optUint64(entry.Terms.OffsetEnd)
	}
	e.bool(entry.Turbo)
	e.uint128(entry.Mints)
	e.uint128(entry.Burned)
	e.uint64(entry.EtchingBlock)
	e.hash(entry.EtchingTx)
	e.time(entry.EtchedAt)
	return e.buf
}

func decodeRuneEntry(data []byte) (*runes.RuneEntry, error) {
	d := newDecoder(data)
	entry := &runes.RuneEntry{
		RuneId: d.runeId(),
		Number: d.uint64(),
	}
	divisibility := d.uint64()
	if divisibility > 0xff {
		d.fail(errors.Newf("divisibility %d out of range", divisibility))
	}
	entry.Divisibility = uint8(divisibility)
	entry.Premine = d.uint128()
	name := runes.NewRuneFromUint128(d.uint128())
	entry.SpacedRune = runes.NewSpacedRune(name, d.uint32())
	entry.Symbol = rune32(d.int64())
	if d.bool() {
		entry.Terms = &runes.Terms{
			Amount:      d.optUint128(),
			Cap:         d.optUint128(),
			HeightStart: d.optUint64(),
			HeightEnd:   d.optUint64(),
			OffsetStart: d.optUint64(),
			OffsetEnd:   d.optUint64(),
		}
	}
	entry.Turbo = d.bool()
	entry.Mints = d.uint128()
	entry.Burned = d.uint128()
	entry.EtchingBlock = d.uint64()
	entry.EtchingTx = d.hash()
	entry.EtchedAt = d.time()
	if err := d.finish(); err != nil {
		return nil, errors.Wrap(err, "invalid rune entry")
	}
	return entry, nil
}

func rune32(v int64) rune {
	return rune(int32(v))
}

func encodeStats(stats *entity.Stats) []byte {
	e := &encoder{}
	e.uint64(stats.BlessedInscriptions)
	e.uint64(stats.CursedInscriptions)
	e.uint64(stats.NextSequenceNumber)
	e.uint64(stats.UnboundInscriptions)
	e.uint64(stats.LostSats)
	e.uint64(stats.Runes)
	e.uint64(stats.ReservedRunes)
	return e.buf
}

func decodeStats(data []byte) (*entity.Stats, error) {
	d := newDecoder(data)
	stats := &entity.Stats{
		BlessedInscriptions: d.uint64(),
		CursedInscriptions:  d.uint64(),
		NextSequenceNumber:  d.uint64(),
		UnboundInscriptions: d.uint64(),
		LostSats:            d.uint64(),
		Runes:               d.uint64(),
		ReservedRunes:       d.uint64(),
	}
	if err := d.finish(); err != nil {
		return nil, errors.Wrap(err, "invalid stats")
	}
	return stats, nil
}

func encodeIndexedBlock(block *entity.IndexedBlock) []byte {
	e := &encoder{}
	e.int64(block.Height)
	e.hash(block.Hash)
	e.hash(block.PrevBlock)
	e.time(block.Timestamp)
	return e.buf
}

func decodeIndexedBlock(data []byte) (*entity.IndexedBlock, error) {
	d := newDecoder(data)
	block := &entity.IndexedBlock{
		Height:    d.int64(),
		Hash:      d.hash(),
		PrevBlock: d.hash(),
		Timestamp: d.time(),
	}
	if err := d.finish(); err != nil {
		return nil, errors.Wrap(err, "invalid indexed block")
	}
	return block, nil
}

func encodeIndexerState(state entity.IndexerState) []byte {
	e := &encoder{}
	e.time(state.CreatedAt)
	e.string(state.ClientVersion)
	e.int64(int64(state.DBVersion))
	e.string(state.Network.String())
	e.bool(state.IndexRunes)
	e.bool(state.IndexInscriptions)
	return e.buf
}

func decodeIndexerState(data []byte) (entity.IndexerState, error) {
	d := newDecoder(data)
	state := entity.IndexerState{
		CreatedAt:     d.time(),
		ClientVersion: d.string(),
		DBVersion:     int32(d.int64()),
		Network:       common.Network(d.string()),
	}
	state.IndexRunes = d.bool()
	state.IndexInscriptions = d.bool()
	if err := d.finish(); err != nil {
		return entity.IndexerState{}, errors.Wrap(err, "invalid indexer state")
	}
	return state, nil
}

// satRangeLocation is the value of a sat range index entry.
type satRangeLocation struct {
	End      uint64
	SatPoint ordinals.SatPoint
}

func encodeSatRangeLocation(location satRangeLocation) []byte {
	e := &encoder{}
	e.uint64(location.End)
	e.outPoint(location.SatPoint.OutPoint)
	e.uint64(location.SatPoint.Offset)
	return e.buf
}

func decodeSatRangeLocation(data []byte) (satRangeLocation, error) {
	d := newDecoder(data)
	location := satRangeLocation{End: d.uint64()}
	location.SatPoint.OutPoint = d.outPoint()
	location.SatPoint.Offset = d.uint64()
	if err := d.finish(); err != nil {
		return satRangeLocation{}, errors.Wrap(err, "invalid sat range location")
	}
	return location, nil
}

// undoEntry is the committed value of a key before a block touched it. Value is nil if the key did not exist.
type undoEntry struct {
	Key   []byte
	Value []byte
}

func encodeUndoRecord(entries []undoEntry) []byte {
	e := &encoder{}
	e.uint64(uint64(len(entries)))
	for _, entry := range entries {
		e.bytes(entry.Key)
		e.bool(entry.Value != nil)
		if entry.Value != nil {
			e.bytes(entry.Value)
		}
	}
	return e.buf
}

func decodeUndoRecord(data []byte) ([]undoEntry, error) {
	d := newDecoder(data)
	n := d.count()
	entries := make([]undoEntry, 0, n)
	for i := 0; i < n; i++ {
		entry := undoEntry{Key: d.bytes()}
		if d.bool() {
			entry.Value = d.bytes()
		}
		entries = append(entries, entry)
	}
	if err := d.finish(); err != nil {
		return nil, errors.Wrap(err, "invalid undo record")
	}
	return entries, nil
}
