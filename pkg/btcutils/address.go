package btcutils

import (
	"encoding/hex"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ord-indexer/common/errs"
)

// AddressFromPkScript returns the address paying to pkScript, or an empty string
// if the script is not a standard single-address script.
func AddressFromPkScript(pkScript []byte, net *chaincfg.Params) string {
	_, addrs, _, err := txscript.ExtractPkScriptAddrs(pkScript, net)
	if err != nil || len(addrs) != 1 {
		return ""
	}
	return addrs[0].EncodeAddress()
}

// PkScriptFromString accepts either an address of net or a hex encoded pkScript.
func PkScriptFromString(wallet string, net *chaincfg.Params) ([]byte, error) {
	if wallet == "" {
		return nil, errors.Wrap(errs.InvalidArgument, "empty wallet")
	}

	address, err := btcutil.DecodeAddress(wallet, net)
	if err == nil {
		if !address.IsForNet(net) {
			return nil, errors.Wrapf(errs.InvalidArgument, "address %q is not for %s", wallet, net.Name)
		}
		pkScript, err := txscript.PayToAddrScript(address)
		if err != nil {
			return nil, errors.Wrap(errs.InvalidArgument, err.Error())
		}
		return pkScript, nil
	}

	pkScript, err := hex.DecodeString(wallet)
	if err != nil {
		return nil, errors.Wrapf(errs.InvalidArgument, "%q is neither an address nor a hex pkscript", wallet)
	}
	return pkScript, nil
}
