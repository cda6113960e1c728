package types

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/stretchr/testify/assert"
)

func TestParseGenesisBlock(t *testing.T) {
	block := ParseMsgBlock(chaincfg.MainNetParams.GenesisBlock, 0)

	assert.Equal(t, *chaincfg.MainNetParams.GenesisHash, block.Header.Hash)
	assert.EqualValues(t, 0, block.Header.Height)
	if assert.Len(t, block.Transactions, 1) {
		coinbase := block.Transactions[0]
		assert.True(t, coinbase.IsCoinbase())
		assert.Equal(t, block.Header.Hash, coinbase.BlockHash)
		assert.EqualValues(t, 0, coinbase.Index)
		assert.EqualValues(t, 50_0000_0000, coinbase.TxOut[0].Value)
	}
}

func TestTxOutIsOpReturn(t *testing.T) {
	assert.True(t, TxOut{PkScript: []byte{txscript.OP_RETURN, txscript.OP_13}}.IsOpReturn())
	assert.False(t, TxOut{PkScript: []byte{txscript.OP_1, txscript.OP_DATA_32}}.IsOpReturn())
	assert.False(t, TxOut{}.IsOpReturn())
}
