package ordinals

import (
	"encoding/binary"

	"github.com/btcsuite/btcd/txscript"
	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
)

// PushScriptBuilder builds scripts whose data pushes always use OP_DATA_* or OP_PUSHDATA*,
// unlike txscript.ScriptBuilder which turns small one-byte pushes into OP_N.
// Empty pushes are still encoded as OP_0.
type PushScriptBuilder struct {
	script []byte
	err    error
}

func NewPushScriptBuilder() *PushScriptBuilder {
	return &PushScriptBuilder{}
}

func pushDataToBytes(data []byte) []byte {
	dataLen := len(data)
	var script []byte
	switch {
	case dataLen == 0:
		return []byte{txscript.OP_0}
	case dataLen < txscript.OP_PUSHDATA1:
		script = []byte{byte(txscript.OP_DATA_1 - 1 + dataLen)}
	case dataLen <= 0xff:
		script = []byte{txscript.OP_PUSHDATA1, byte(dataLen)}
	case dataLen <= 0xffff:
		script = binary.LittleEndian.AppendUint16([]byte{txscript.OP_PUSHDATA2}, uint16(dataLen))
	default:
		script = binary.LittleEndian.AppendUint32([]byte{txscript.OP_PUSHDATA4}, uint32(dataLen))
	}
	return append(script, data...)
}

func (b *PushScriptBuilder) AddData(data []byte) *PushScriptBuilder {
	if b.err != nil {
		return b
	}
	if len(data) > txscript.MaxScriptElementSize {
		b.err = errors.Newf("data push of %d bytes exceeds the maximum script element size", len(data))
		return b
	}
	b.script = append(b.script, pushDataToBytes(data)...)
	return b
}

func (b *PushScriptBuilder) AddOp(opcode byte) *PushScriptBuilder {
	if b.err != nil {
		return b
	}
	b.script = append(b.script, opcode)
	return b
}

func (b *PushScriptBuilder) Script() ([]byte, error) {
	return b.script, b.err
}

// AppendEnvelope writes the inscription as an OP_FALSE OP_IF ... OP_ENDIF envelope.
// Bodies are split into pushes of at most MaxScriptElementSize bytes.
func (b *PushScriptBuilder) AppendEnvelope(inscription Inscription) *PushScriptBuilder {
	b.AddOp(txscript.OP_FALSE).
		AddOp(txscript.OP_IF).
		AddData(ProtocolId)

	addField := func(tag Tag, value []byte) {
		if value == nil {
			return
		}
		if tag.IsChunked() {
			for _, chunk := range lo.Chunk(value, txscript.MaxScriptElementSize) {
				b.AddData(tag.Bytes()).AddData(chunk)
			}
			return
		}
		b.AddData(tag.Bytes()).AddData(value)
	}
	addField(TagContentType, inscription.ContentType)
	addField(TagContentEncoding, inscription.ContentEncoding)
	addField(TagMetaprotocol, inscription.Metaprotocol)
	for _, parent := range inscription.Parents {
		addField(TagParent, parent)
	}
	addField(TagDelegate, inscription.Delegate)
	addField(TagPointer, inscription.Pointer)
	addField(TagMetadata, inscription.Metadata)

	if inscription.Body != nil {
		b.AddData(TagBody.Bytes())
		for _, chunk := range lo.Chunk(inscription.Body, txscript.MaxScriptElementSize) {
			b.AddData(chunk)
		}
	}
	return b.AddOp(txscript.OP_ENDIF)
}
