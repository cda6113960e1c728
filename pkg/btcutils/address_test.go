package btcutils

import (
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/gaze-network/ord-indexer/common/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddressFromPkScript(t *testing.T) {
	t.Parallel()
	testcases := []struct {
		name     string
		pkScript string
		net      *chaincfg.Params
		expected string
	}{
		{
			name:     "p2wpkh",
			pkScript: "0014751e76e8199196d454941c45d1b3a323f1433bd6",
			net:      &chaincfg.MainNetParams,
			expected: "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4",
		},
		{
			name:     "p2wpkh testnet",
			pkScript: "0014751e76e8199196d454941c45d1b3a323f1433bd6",
			net:      &chaincfg.TestNet3Params,
			expected: "tb1qw508d6qejxtdg4y5r3zarvary0c5xw7kxpjzsx",
		},
		{
			name:     "op_return",
			pkScript: "6a0568656c6c6f",
			net:      &chaincfg.MainNetParams,
			expected: "",
		},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			pkScript, err := hex.DecodeString(tc.pkScript)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, AddressFromPkScript(pkScript, tc.net))
		})
	}
}

func TestPkScriptFromString(t *testing.T) {
	t.Parallel()
	t.Run("address", func(t *testing.T) {
		pkScript, err := PkScriptFromString("bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4", &chaincfg.MainNetParams)
		require.NoError(t, err)
		assert.Equal(t, "0014751e76e8199196d454941c45d1b3a323f1433bd6", hex.EncodeToString(pkScript))
	})
	t.Run("round_trip", func(t *testing.T) {
		pkScript, err := PkScriptFromString("0014751e76e8199196d454941c45d1b3a323f1433bd6", &chaincfg.RegressionNetParams)
		require.NoError(t, err)
		address := AddressFromPkScript(pkScript, &chaincfg.RegressionNetParams)
		assert.Contains(t, address, "bcrt1q")
		again, err := PkScriptFromString(address, &chaincfg.RegressionNetParams)
		require.NoError(t, err)
		assert.Equal(t, pkScript, again)
	})
	t.Run("wrong_network", func(t *testing.T) {
		_, err := PkScriptFromString("bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4", &chaincfg.RegressionNetParams)
		assert.ErrorIs(t, err, errs.InvalidArgument)
	})
	t.Run("garbage", func(t *testing.T) {
		_, err := PkScriptFromString("not-a-wallet", &chaincfg.MainNetParams)
		assert.ErrorIs(t, err, errs.InvalidArgument)
	})
	t.Run("empty", func(t *testing.T) {
		_, err := PkScriptFromString("", &chaincfg.MainNetParams)
		assert.ErrorIs(t, err, errs.InvalidArgument)
	})
}
