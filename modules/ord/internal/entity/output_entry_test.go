package entity

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/gaze-network/ord-indexer/modules/ord/ordinals"
	"github.com/gaze-network/ord-indexer/modules/ord/runes"
	"github.com/gaze-network/uint128"
	"github.com/stretchr/testify/assert"
)

func TestOutputEntryAddInscription(t *testing.T) {
	entry := &OutputEntry{}
	entry.AddInscription(InscriptionLocation{Offset: 5, SequenceNumber: 1})
	entry.AddInscription(InscriptionLocation{Offset: 0, SequenceNumber: 3})
	entry.AddInscription(InscriptionLocation{Offset: 5, SequenceNumber: 0, InscriptionId: ordinals.NewInscriptionId(chainhash.Hash{1}, 0)})

	assert.Equal(t, []uint64{0, 5, 5}, []uint64{entry.Inscriptions[0].Offset, entry.Inscriptions[1].Offset, entry.Inscriptions[2].Offset})
	assert.Equal(t, []uint64{3, 0, 1}, []uint64{entry.Inscriptions[0].SequenceNumber, entry.Inscriptions[1].SequenceNumber, entry.Inscriptions[2].SequenceNumber})
}

func TestRuneBalancesFromMap(t *testing.T) {
	balances := RuneBalancesFromMap(map[runes.RuneId]uint128.Uint128{
		{BlockHeight: 2, TxIndex: 0}: uint128.From64(5),
		{BlockHeight: 1, TxIndex: 9}: uint128.From64(7),
		{BlockHeight: 1, TxIndex: 1}: uint128.Zero,
	})
	assert.Equal(t, []RuneBalance{
		{RuneId: runes.RuneId{BlockHeight: 1, TxIndex: 9}, Amount: uint128.From64(7)},
		{RuneId: runes.RuneId{BlockHeight: 2, TxIndex: 0}, Amount: uint128.From64(5)},
	}, balances)
}

func TestOutputEntryIsOpReturn(t *testing.T) {
	assert.True(t, (&OutputEntry{PkScript: []byte{txscript.OP_RETURN}}).IsOpReturn())
	assert.False(t, (&OutputEntry{PkScript: []byte{txscript.OP_1}}).IsOpReturn())
	assert.False(t, (&OutputEntry{}).IsOpReturn())
}

func TestCharms(t *testing.T) {
	var charms Charms
	charms.Set(CharmCursed)
	charms.Set(CharmLost)
	assert.True(t, charms.Has(CharmCursed))
	assert.False(t, charms.Has(CharmUnbound))
	assert.Equal(t, []string{"cursed", "lost"}, charms.Names())
}
