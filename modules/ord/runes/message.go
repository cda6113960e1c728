package runes

import (
	"github.com/gaze-network/ord-indexer/core/types"
	"github.com/gaze-network/uint128"
)

// message is the tag/value stream of a runestone before its fields are interpreted.
type message struct {
	Flaws  Flaws
	Edicts []Edict
	Fields Fields
}

func messageFromIntegers(tx *types.Transaction, payload []uint128.Uint128) message {
	var (
		flaws  Flaws
		edicts []Edict
	)
	fields := make(Fields)

	for i := 0; i < len(payload); i += 2 {
		tag := Tag(payload[i])

		if tag == TagBody {
			var id RuneId
			body := payload[i+1:]
			for len(body) > 0 {
				if len(body) < 4 {
					flaws |= FlawFlagTrailingIntegers.Mask()
					break
				}
				chunk := body[:4]
				body = body[4:]

				if !chunk[0].IsUint64() || !chunk[1].IsUint32() {
					flaws |= FlawFlagEdictRuneId.Mask()
					break
				}
				next, err := id.Next(chunk[0].Uint64(), uint32(chunk[1].Lo))
				if err != nil {
					flaws |= FlawFlagEdictRuneId.Mask()
					break
				}

				edict, ok := edictFromIntegers(tx, next, chunk[2], chunk[3])
				if !ok {
					flaws |= FlawFlagEdictOutput.Mask()
					break
				}
				id = next
				edicts = append(edicts, edict)
			}
			break
		}

		if i+1 >= len(payload) {
			flaws |= FlawFlagTruncatedField.Mask()
			break
		}
		fields[tag] = append(fields[tag], payload[i+1])
	}

	return message{
		Flaws:  flaws,
		Edicts: edicts,
		Fields: fields,
	}
}

func edictFromIntegers(tx *types.Transaction, id RuneId, amount uint128.Uint128, output uint128.Uint128) (Edict, bool) {
	if !output.IsUint32() {
		return Edict{}, false
	}
	if output.Uint64() > uint64(len(tx.TxOut)) {
		return Edict{}, false
	}
	return Edict{
		Id:     id,
		Amount: amount,
		Output: uint32(output.Lo),
	}, true
}
