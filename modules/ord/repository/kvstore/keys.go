package kvstore

import (
	"encoding/binary"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/gaze-network/ord-indexer/modules/ord/ordinals"
	"github.com/gaze-network/ord-indexer/modules/ord/runes"
)

// Key prefixes. Integers in keys are big-endian so byte order is numeric order.
var (
	keyCursor       = []byte("c")
	keyStats        = []byte("m")
	keyIndexerState = []byte("v")

	prefixBlock          = []byte("b") // height -> IndexedBlock
	prefixUndo           = []byte("u") // height -> undo record
	prefixOutput         = []byte("o") // outpoint -> OutputEntry
	prefixSatRange       = []byte("s") // range start -> range end, sat point of the start
	prefixInscription    = []byte("i") // inscription id -> InscriptionEntry
	prefixContent        = []byte("x") // inscription id -> body
	prefixSequence       = []byte("n") // sequence number -> inscription id
	prefixSatInscription = []byte("a") // sat, sequence number -> inscription id
	prefixRuneEntry      = []byte("r") // rune id -> RuneEntry
	prefixRune           = []byte("R") // rune -> rune id
)

func key(prefix []byte, parts ...[]byte) []byte {
	size := len(prefix)
	for _, part := range parts {
		size += len(part)
	}
	out := make([]byte, 0, size)
	out = append(out, prefix...)
	for _, part := range parts {
		out = append(out, part...)
	}
	return out
}

func be64(v uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, v)
}

func be32(v uint32) []byte {
	return binary.BigEndian.AppendUint32(nil, v)
}

func heightBytes(height int64) []byte {
	return be64(uint64(height))
}

func blockKey(height int64) []byte {
	return key(prefixBlock, heightBytes(height))
}

func undoKey(height int64) []byte {
	return key(prefixUndo, heightBytes(height))
}

func outPointBytes(outPoint wire.OutPoint) []byte {
	return key(outPoint.Hash[:], be32(outPoint.Index))
}

func parseOutPointBytes(data []byte) wire.OutPoint {
	var hash chainhash.Hash
	copy(hash[:], data[:chainhash.HashSize])
	return wire.OutPoint{Hash: hash, Index: binary.BigEndian.Uint32(data[chainhash.HashSize:])}
}

func outputKey(outPoint wire.OutPoint) []byte {
	return key(prefixOutput, outPointBytes(outPoint))
}

func satRangeKey(start uint64) []byte {
	return key(prefixSatRange, be64(start))
}

func inscriptionIdBytes(id ordinals.InscriptionId) []byte {
	return key(id.TxHash[:], be32(id.Index))
}

func parseInscriptionIdBytes(data []byte) ordinals.InscriptionId {
	outPoint := parseOutPointBytes(data)
	return ordinals.NewInscriptionId(outPoint.Hash, outPoint.Index)
}

func inscriptionKey(id ordinals.InscriptionId) []byte {
	return key(prefixInscription, inscriptionIdBytes(id))
}

func contentKey(id ordinals.InscriptionId) []byte {
	return key(prefixContent, inscriptionIdBytes(id))
}

func sequenceKey(sequenceNumber uint64) []byte {
	return key(prefixSequence, be64(sequenceNumber))
}

func satInscriptionPrefix(sat ordinals.Sat) []byte {
	return key(prefixSatInscription, be64(uint64(sat)))
}

func satInscriptionKey(sat ordinals.Sat, sequenceNumber uint64) []byte {
	return key(satInscriptionPrefix(sat), be64(sequenceNumber))
}

func runeIdBytes(runeId runes.RuneId) []byte {
	return key(be64(runeId.BlockHeight), be32(runeId.TxIndex))
}

func runeEntryKey(runeId runes.RuneId) []byte {
	return key(prefixRuneEntry, runeIdBytes(runeId))
}

func runeKey(rune runes.Rune) []byte {
	value := rune.Uint128()
	return key(prefixRune, be64(value.Hi), be64(value.Lo))
}

func beUint64(data []byte) uint64 {
	return binary.BigEndian.Uint64(data)
}

func parseRuneIdBytes(data []byte) runes.RuneId {
	return runes.RuneId{
		BlockHeight: binary.BigEndian.Uint64(data[:8]),
		TxIndex:     binary.BigEndian.Uint32(data[8:12]),
	}
}
