package ordinals

import (
	"bytes"

	"github.com/btcsuite/btcd/txscript"
	"github.com/gaze-network/ord-indexer/core/types"
)

// ProtocolId follows OP_FALSE OP_IF in an inscription envelope.
var ProtocolId = []byte("ord")

type Envelope struct {
	Inscription Inscription
	// InputIndex is the transaction input whose tapscript holds the envelope.
	InputIndex uint32
	// Offset is the position of the envelope among the envelopes of the same input.
	Offset int
	// PushNum is set when the payload used OP_1NEGATE or OP_1 to OP_16.
	PushNum bool
	// Stutter is set when the envelope was preceded by a false start (OP_FALSE OP_FALSE OP_IF).
	Stutter bool
}

// ParseEnvelopesFromTx extracts the envelopes of every script-path spend of tx in input order.
// Inputs whose tapscript does not tokenize contribute no envelopes.
func ParseEnvelopesFromTx(tx *types.Transaction) []*Envelope {
	envelopes := make([]*Envelope, 0)
	for i, txIn := range tx.TxIn {
		tapScript, ok := Tapscript(txIn.Witness)
		if !ok {
			continue
		}
		instructions, ok := tokenize(tapScript)
		if !ok {
			continue
		}
		envelopes = append(envelopes, envelopesFromInstructions(instructions, uint32(i))...)
	}
	return envelopes
}

// Tapscript returns the script of a script-path spend: the second to last witness element,
// or the third to last if the last one is an annex.
func Tapscript(witness [][]byte) ([]byte, bool) {
	scriptPosFromLast := 2
	if len(witness) >= 2 {
		last := witness[len(witness)-1]
		if len(last) > 0 && last[0] == txscript.TaprootAnnexTag {
			scriptPosFromLast = 3
		}
	}
	if len(witness) < scriptPosFromLast {
		return nil, false
	}
	return witness[len(witness)-scriptPosFromLast], true
}

type instruction struct {
	opcode byte
	data   []byte
}

func (i instruction) isPush() bool {
	return i.opcode <= txscript.OP_PUSHDATA4
}

func (i instruction) isEmptyPush() bool {
	return i.isPush() && len(i.data) == 0
}

func tokenize(script []byte) ([]instruction, bool) {
	instructions := make([]instruction, 0)
	tokenizer := txscript.MakeScriptTokenizer(0, script)
	for tokenizer.Next() {
		ins := instruction{
			opcode: tokenizer.Opcode(),
			data:   tokenizer.Data(),
		}
		if ins.isPush() && ins.data == nil {
			ins.data = []byte{}
		}
		instructions = append(instructions, ins)
	}
	if tokenizer.Err() != nil {
		return nil, false
	}
	return instructions, true
}

// envelopesFromInstructions scans for OP_FALSE OP_IF "ord" <payload...> OP_ENDIF.
func envelopesFromInstructions(instructions []instruction, inputIndex uint32) []*Envelope {
	envelopes := make([]*Envelope, 0)
	var stuttered bool

	for pos := 0; pos < len(instructions); pos++ {
		if !instructions[pos].isEmptyPush() {
			continue
		}
		next := pos + 1
		envelope, stutter, consumed := envelopeAt(instructions, next, inputIndex, len(envelopes), stuttered)
		if envelope != nil {
			envelopes = append(envelopes, envelope)
		} else {
			stuttered = stutter
		}
		pos = next + consumed - 1
	}
	return envelopes
}

// envelopeAt tries to read an envelope body starting right after an OP_FALSE.
// It returns how many instructions were consumed; instructions that fail to match are left for the caller.
func envelopeAt(instructions []instruction, pos int, inputIndex uint32, offset int, stuttered bool) (*Envelope, bool, int) {
	peekIsEmptyPush := func(at int) bool {
		return at < len(instructions) && instructions[at].isEmptyPush()
	}

	if pos >= len(instructions) || instructions[pos].opcode != txscript.OP_IF {
		return nil, peekIsEmptyPush(pos), 0
	}
	if pos+1 >= len(instructions) || !instructions[pos+1].isPush() || !bytes.Equal(instructions[pos+1].data, ProtocolId) {
		return nil, peekIsEmptyPush(pos + 1), 1
	}

	var pushNum bool
	payload := make([][]byte, 0)
	for at := pos + 2; at < len(instructions); at++ {
		ins := instructions[at]
		switch {
		case ins.opcode == txscript.OP_ENDIF:
			return &Envelope{
				Inscription: inscriptionFromPayload(payload),
				InputIndex:  inputIndex,
				Offset:      offset,
				PushNum:     pushNum,
				Stutter:     stuttered,
			}, false, at - pos + 1
		case ins.opcode == txscript.OP_1NEGATE:
			pushNum = true
			payload = append(payload, []byte{0x81})
		case ins.opcode >= txscript.OP_1 && ins.opcode <= txscript.OP_16:
			pushNum = true
			payload = append(payload, []byte{ins.opcode - txscript.OP_1 + 1})
		case ins.isPush():
			payload = append(payload, ins.data)
		default:
			return nil, false, at - pos + 1
		}
	}
	// no OP_ENDIF
	return nil, false, len(instructions) - pos
}

func inscriptionFromPayload(payload [][]byte) Inscription {
	bodyIndex := -1
	for i, push := range payload {
		if i%2 == 0 && len(push) == 0 {
			bodyIndex = i
			break
		}
	}
	fieldPushes := payload
	if bodyIndex >= 0 {
		fieldPushes = payload[:bodyIndex]
	}

	var incompleteField bool
	f := make(fields)
	for i := 0; i < len(fieldPushes); i += 2 {
		if i+1 >= len(fieldPushes) {
			incompleteField = true
			break
		}
		key := string(fieldPushes[i])
		f[key] = append(f[key], fieldPushes[i+1])
	}

	var duplicateField bool
	for _, values := range f {
		if len(values) > 1 {
			duplicateField = true
			break
		}
	}

	inscription := Inscription{
		ContentEncoding: f.take(TagContentEncoding),
		ContentType:     f.take(TagContentType),
		Delegate:        f.take(TagDelegate),
		Metadata:        f.take(TagMetadata),
		Metaprotocol:    f.take(TagMetaprotocol),
		Parents:         f.takeAll(TagParent),
		Pointer:         f.take(TagPointer),
		DuplicateField:  duplicateField,
		IncompleteField: incompleteField,
	}
	f.take(TagRune)
	f.take(TagNote)

	for key := range f {
		if len(key) > 0 && key[0]%2 == 0 {
			inscription.UnrecognizedEvenField = true
			break
		}
	}

	if bodyIndex >= 0 {
		body := make([]byte, 0)
		for _, push := range payload[bodyIndex+1:] {
			body = append(body, push...)
		}
		inscription.Body = body
	}
	return inscription
}
