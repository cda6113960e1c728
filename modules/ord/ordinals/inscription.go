package ordinals

import (
	"encoding/binary"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/samber/lo"
)

// Inscription is the content record decoded from an envelope.
type Inscription struct {
	// Body is nil when the envelope has no body separator.
	Body            []byte
	ContentEncoding []byte
	ContentType     []byte
	Delegate        []byte
	Metadata        []byte
	Metaprotocol    []byte
	Parents         [][]byte
	Pointer         []byte

	DuplicateField        bool
	IncompleteField       bool
	UnrecognizedEvenField bool
}

// PointerValue decodes the pointer field as a little-endian u64. Pointers with non-zero bytes past
// the eighth are ignored.
func (i Inscription) PointerValue() *uint64 {
	if i.Pointer == nil {
		return nil
	}
	if len(i.Pointer) > 8 && lo.SomeBy(i.Pointer[8:], func(b byte) bool { return b != 0 }) {
		return nil
	}
	var buf [8]byte
	copy(buf[:], i.Pointer)
	return lo.ToPtr(binary.LittleEndian.Uint64(buf[:]))
}

func (i Inscription) DelegateId() *InscriptionId {
	return inscriptionIdFromField(i.Delegate)
}

// ParentIds returns the well-formed parent ids, in order.
func (i Inscription) ParentIds() []InscriptionId {
	parents := make([]InscriptionId, 0, len(i.Parents))
	for _, value := range i.Parents {
		if id := inscriptionIdFromField(value); id != nil {
			parents = append(parents, *id)
		}
	}
	return parents
}

func (i Inscription) ContentTypeString() string {
	return string(i.ContentType)
}

// inscriptionIdFromField decodes the binary form: a 32 byte txid followed by up to 4 bytes of
// little-endian index without trailing zeros.
func inscriptionIdFromField(value []byte) *InscriptionId {
	if len(value) < chainhash.HashSize || len(value) > chainhash.HashSize+4 {
		return nil
	}
	index := value[chainhash.HashSize:]
	if len(index) > 0 && index[len(index)-1] == 0 {
		return nil
	}
	var txHash chainhash.Hash
	copy(txHash[:], value[:chainhash.HashSize])
	var buf [4]byte
	copy(buf[:], index)
	return &InscriptionId{
		TxHash: txHash,
		Index:  binary.LittleEndian.Uint32(buf[:]),
	}
}

// Bytes is the binary field form of the id, as used for parent and delegate fields.
func (i InscriptionId) Bytes() []byte {
	out := make([]byte, 0, chainhash.HashSize+4)
	out = append(out, i.TxHash[:]...)
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], i.Index)
	index := buf[:]
	for len(index) > 0 && index[len(index)-1] == 0 {
		index = index[:len(index)-1]
	}
	return append(out, index...)
}
