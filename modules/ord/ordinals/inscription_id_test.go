package ordinals

import (
	"encoding/json"
	"testing"

	"github.com/Cleverse/go-utilities/utils"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/assert"
)

const testTxid = "1111111111111111111111111111111111111111111111111111111111111111"

func TestNewInscriptionIdFromString(t *testing.T) {
	txHash := *utils.Must(chainhash.NewHashFromStr(testTxid))

	type testcase struct {
		input    string
		expected InscriptionId
		err      bool
	}
	testcases := []testcase{
		{input: testTxid + "i0", expected: NewInscriptionId(txHash, 0)},
		{input: testTxid + "i42", expected: NewInscriptionId(txHash, 42)},
		{input: testTxid, expected: NewInscriptionId(txHash, 0)},
		{input: testTxid + "i", err: true},
		{input: testTxid + "i-1", err: true},
		{input: testTxid + "i4294967296", err: true},
		{input: testTxid[1:] + "i0", err: true},
		{input: "zz" + testTxid[2:] + "i0", err: true},
		{input: "", err: true},
	}
	for _, tc := range testcases {
		t.Run(tc.input, func(t *testing.T) {
			t.Parallel()
			actual, err := NewInscriptionIdFromString(tc.input)
			if tc.err {
				assert.ErrorIs(t, err, ErrInvalidInscriptionId)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, actual)
		})
	}
}

func TestInscriptionIdString(t *testing.T) {
	id := NewInscriptionId(*utils.Must(chainhash.NewHashFromStr(testTxid)), 7)
	assert.Equal(t, testTxid+"i7", id.String())

	parsed, err := NewInscriptionIdFromString(id.String())
	assert.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestInscriptionIdJSON(t *testing.T) {
	id := NewInscriptionId(*utils.Must(chainhash.NewHashFromStr(testTxid)), 3)
	data, err := json.Marshal(id)
	assert.NoError(t, err)
	assert.Equal(t, `"`+testTxid+`i3"`, string(data))

	var decoded InscriptionId
	assert.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, id, decoded)

	assert.Error(t, json.Unmarshal([]byte(`"nope"`), &decoded))
}

func TestInscriptionIdBytes(t *testing.T) {
	txHash := chainhash.Hash{0xaa}
	t.Run("zero_index_has_no_suffix", func(t *testing.T) {
		assert.Equal(t, txHash[:], NewInscriptionId(txHash, 0).Bytes())
	})
	t.Run("little_endian_index", func(t *testing.T) {
		value := NewInscriptionId(txHash, 0x0100).Bytes()
		assert.Equal(t, []byte{0x00, 0x01}, value[chainhash.HashSize:])
	})
	t.Run("round_trip", func(t *testing.T) {
		for _, index := range []uint32{0, 1, 255, 256, 65536, 1 << 31} {
			id := NewInscriptionId(txHash, index)
			assert.Equal(t, &id, inscriptionIdFromField(id.Bytes()))
		}
	})
	t.Run("invalid", func(t *testing.T) {
		assert.Nil(t, inscriptionIdFromField(txHash[:31]))
		assert.Nil(t, inscriptionIdFromField(append(txHash[:], 1, 2, 3, 4, 5)))
		assert.Nil(t, inscriptionIdFromField(append(txHash[:], 1, 0)))
	})
}
