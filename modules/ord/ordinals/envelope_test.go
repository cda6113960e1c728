package ordinals

import (
	"bytes"
	"testing"

	"github.com/Cleverse/go-utilities/utils"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/gaze-network/ord-indexer/core/types"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
)

func txWithWitnesses(witnesses ...wire.TxWitness) *types.Transaction {
	return &types.Transaction{
		Version: 2,
		TxIn: lo.Map(witnesses, func(witness wire.TxWitness, _ int) *types.TxIn {
			return &types.TxIn{Witness: witness}
		}),
	}
}

// scriptPathWitness wraps a tapscript with a placeholder control block.
func scriptPathWitness(tapScript []byte) wire.TxWitness {
	return wire.TxWitness{tapScript, {}}
}

func envelopeScript(pushes ...[]byte) []byte {
	builder := NewPushScriptBuilder().
		AddOp(txscript.OP_FALSE).
		AddOp(txscript.OP_IF).
		AddData(ProtocolId)
	for _, push := range pushes {
		builder.AddData(push)
	}
	return utils.Must(builder.AddOp(txscript.OP_ENDIF).Script())
}

func TestParseEnvelopesFromTx(t *testing.T) {
	parse := func(tapScript []byte) []*Envelope {
		return ParseEnvelopesFromTx(txWithWitnesses(scriptPathWitness(tapScript)))
	}
	inscriptionOf := func(tapScript []byte) Inscription {
		envelopes := parse(tapScript)
		if len(envelopes) != 1 {
			t.Fatalf("expected exactly one envelope, got %d", len(envelopes))
		}
		return envelopes[0].Inscription
	}

	t.Run("empty_witness", func(t *testing.T) {
		assert.Empty(t, ParseEnvelopesFromTx(txWithWitnesses(wire.TxWitness{})))
	})
	t.Run("key_path_spends_are_ignored", func(t *testing.T) {
		assert.Empty(t, ParseEnvelopesFromTx(txWithWitnesses(wire.TxWitness{envelopeScript()})))
		assert.Empty(t, ParseEnvelopesFromTx(txWithWitnesses(wire.TxWitness{envelopeScript(), {txscript.TaprootAnnexTag}})))
	})
	t.Run("annex_is_skipped", func(t *testing.T) {
		envelopes := ParseEnvelopesFromTx(txWithWitnesses(wire.TxWitness{envelopeScript(), {}, {txscript.TaprootAnnexTag}}))
		assert.Len(t, envelopes, 1)
	})
	t.Run("empty_envelope", func(t *testing.T) {
		assert.Equal(t, []*Envelope{{}}, parse(envelopeScript()))
	})
	t.Run("unparsable_script_is_ignored", func(t *testing.T) {
		script := append(envelopeScript(), txscript.OP_DATA_1)
		assert.Empty(t, parse(script))
	})
	t.Run("content_type_and_body", func(t *testing.T) {
		inscription := inscriptionOf(envelopeScript(
			TagContentType.Bytes(), []byte("text/plain;charset=utf-8"),
			TagBody.Bytes(), []byte("ord"),
		))
		assert.Equal(t, Inscription{ContentType: []byte("text/plain;charset=utf-8"), Body: []byte("ord")}, inscription)
	})
	t.Run("body_in_multiple_pushes", func(t *testing.T) {
		inscription := inscriptionOf(envelopeScript(TagBody.Bytes(), []byte("foo"), []byte{}, []byte("bar")))
		assert.Equal(t, []byte("foobar"), inscription.Body)
	})
	t.Run("empty_body_is_not_missing_body", func(t *testing.T) {
		assert.Equal(t, []byte{}, inscriptionOf(envelopeScript(TagBody.Bytes())).Body)
		assert.Nil(t, inscriptionOf(envelopeScript(TagContentType.Bytes(), []byte("text/plain"))).Body)
	})
	t.Run("duplicate_field", func(t *testing.T) {
		inscription := inscriptionOf(envelopeScript(
			TagContentType.Bytes(), []byte("a"),
			TagContentType.Bytes(), []byte("b"),
		))
		assert.True(t, inscription.DuplicateField)
		assert.Equal(t, []byte("a"), inscription.ContentType)
	})
	t.Run("incomplete_field", func(t *testing.T) {
		inscription := inscriptionOf(envelopeScript(TagContentType.Bytes()))
		assert.True(t, inscription.IncompleteField)
	})
	t.Run("unknown_odd_field_is_ignored", func(t *testing.T) {
		inscription := inscriptionOf(envelopeScript(TagNop.Bytes(), []byte("x"), TagBody.Bytes(), []byte("y")))
		assert.Equal(t, Inscription{Body: []byte("y")}, inscription)
	})
	t.Run("unknown_even_field", func(t *testing.T) {
		inscription := inscriptionOf(envelopeScript(TagUnbound.Bytes(), []byte{1}))
		assert.True(t, inscription.UnrecognizedEvenField)
	})
	t.Run("multi_byte_key_uses_first_byte_parity", func(t *testing.T) {
		inscription := inscriptionOf(envelopeScript([]byte{TagContentType.Bytes()[0], 0}, []byte("a")))
		assert.Nil(t, inscription.ContentType)
		assert.False(t, inscription.UnrecognizedEvenField)

		inscription = inscriptionOf(envelopeScript([]byte{2, 1}, []byte("a")))
		assert.True(t, inscription.UnrecognizedEvenField)
	})
	t.Run("metadata_chunks_are_concatenated", func(t *testing.T) {
		inscription := inscriptionOf(envelopeScript(TagMetadata.Bytes(), []byte{1, 2}, TagMetadata.Bytes(), []byte{3}))
		assert.Equal(t, []byte{1, 2, 3}, inscription.Metadata)
		// repeated keys still count as duplicates, even for chunked tags
		assert.True(t, inscription.DuplicateField)
	})
	t.Run("pointer", func(t *testing.T) {
		inscription := inscriptionOf(envelopeScript(TagPointer.Bytes(), []byte{0, 1}))
		assert.Equal(t, lo.ToPtr(uint64(256)), inscription.PointerValue())

		inscription = inscriptionOf(envelopeScript(TagPointer.Bytes(), []byte{1, 0, 0, 0, 0, 0, 0, 0, 0, 0}))
		assert.Equal(t, lo.ToPtr(uint64(1)), inscription.PointerValue())

		inscription = inscriptionOf(envelopeScript(TagPointer.Bytes(), []byte{1, 0, 0, 0, 0, 0, 0, 0, 1}))
		assert.Nil(t, inscription.PointerValue())
	})
	t.Run("parents_and_delegate", func(t *testing.T) {
		parent := NewInscriptionId(chainhash.Hash{1}, 0)
		other := NewInscriptionId(chainhash.Hash{2}, 257)
		inscription := inscriptionOf(envelopeScript(
			TagParent.Bytes(), parent.Bytes(),
			TagParent.Bytes(), other.Bytes(),
			TagParent.Bytes(), append(other.Bytes(), 0),
			TagDelegate.Bytes(), other.Bytes(),
		))
		assert.Equal(t, []InscriptionId{parent, other}, inscription.ParentIds())
		assert.Equal(t, &other, inscription.DelegateId())
		assert.Len(t, parent.Bytes(), chainhash.HashSize)
	})
	t.Run("pushnum", func(t *testing.T) {
		script := utils.Must(NewPushScriptBuilder().
			AddOp(txscript.OP_FALSE).
			AddOp(txscript.OP_IF).
			AddData(ProtocolId).
			AddData(TagBody.Bytes()).
			AddOp(txscript.OP_1NEGATE).
			AddOp(txscript.OP_1).
			AddOp(txscript.OP_10).
			AddOp(txscript.OP_16).
			AddOp(txscript.OP_ENDIF).
			Script())
		envelopes := parse(script)
		if assert.Len(t, envelopes, 1) {
			assert.True(t, envelopes[0].PushNum)
			assert.Equal(t, []byte{0x81, 1, 10, 16}, envelopes[0].Inscription.Body)
		}
	})
	t.Run("non_push_opcode_aborts_envelope", func(t *testing.T) {
		script := utils.Must(NewPushScriptBuilder().
			AddOp(txscript.OP_FALSE).
			AddOp(txscript.OP_IF).
			AddData(ProtocolId).
			AddOp(txscript.OP_CHECKSIG).
			AddOp(txscript.OP_ENDIF).
			Script())
		assert.Empty(t, parse(script))
	})
	t.Run("missing_endif", func(t *testing.T) {
		script := utils.Must(NewPushScriptBuilder().
			AddOp(txscript.OP_FALSE).
			AddOp(txscript.OP_IF).
			AddData(ProtocolId).
			Script())
		assert.Empty(t, parse(script))
	})
	t.Run("wrong_protocol", func(t *testing.T) {
		script := utils.Must(NewPushScriptBuilder().
			AddOp(txscript.OP_FALSE).
			AddOp(txscript.OP_IF).
			AddData([]byte("foo")).
			AddOp(txscript.OP_ENDIF).
			Script())
		assert.Empty(t, parse(script))
	})
	t.Run("multiple_envelopes_in_one_input", func(t *testing.T) {
		script := append(envelopeScript(TagBody.Bytes(), []byte("a")), envelopeScript(TagBody.Bytes(), []byte("b"))...)
		envelopes := parse(script)
		if assert.Len(t, envelopes, 2) {
			assert.Equal(t, 0, envelopes[0].Offset)
			assert.Equal(t, 1, envelopes[1].Offset)
			assert.Equal(t, []byte("b"), envelopes[1].Inscription.Body)
		}
	})
	t.Run("envelopes_from_second_input", func(t *testing.T) {
		envelopes := ParseEnvelopesFromTx(txWithWitnesses(
			wire.TxWitness{},
			scriptPathWitness(envelopeScript(TagBody.Bytes(), []byte("a"))),
		))
		if assert.Len(t, envelopes, 1) {
			assert.Equal(t, uint32(1), envelopes[0].InputIndex)
		}
	})
	t.Run("stutter", func(t *testing.T) {
		test := func(prefix []byte, expected bool) {
			script := append(prefix, envelopeScript()...)
			envelopes := parse(script)
			if assert.Len(t, envelopes, 1) {
				assert.Equal(t, expected, envelopes[0].Stutter, "prefix %x", prefix)
			}
		}
		test([]byte{txscript.OP_FALSE}, true)
		test([]byte{txscript.OP_FALSE, txscript.OP_FALSE}, true)
		test([]byte{txscript.OP_FALSE, txscript.OP_IF}, true)
		test([]byte{txscript.OP_FALSE, txscript.OP_IF, txscript.OP_FALSE}, true)
		test([]byte{txscript.OP_FALSE, txscript.OP_FALSE, txscript.OP_1}, false)
		test([]byte{txscript.OP_1}, false)
	})
}

func TestAppendEnvelopeRoundTrip(t *testing.T) {
	body := bytes.Repeat([]byte{0xab}, txscript.MaxScriptElementSize*2+10)
	inscription := Inscription{
		Body:         body,
		ContentType:  []byte("image/png"),
		Metaprotocol: []byte("brc-20"),
		Pointer:      []byte{5},
		Parents:      [][]byte{NewInscriptionId(chainhash.Hash{9}, 1).Bytes()},
	}
	script := utils.Must(NewPushScriptBuilder().AppendEnvelope(inscription).Script())

	envelopes := ParseEnvelopesFromTx(txWithWitnesses(scriptPathWitness(script)))
	if assert.Len(t, envelopes, 1) {
		assert.Equal(t, inscription, envelopes[0].Inscription)
	}
}
