package ordinals

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/cockroachdb/errors"
)

// InscriptionId is the reveal transaction hash and the index of the envelope within it.
type InscriptionId struct {
	TxHash chainhash.Hash
	Index  uint32
}

func NewInscriptionId(txHash chainhash.Hash, index uint32) InscriptionId {
	return InscriptionId{
		TxHash: txHash,
		Index:  index,
	}
}

func (i InscriptionId) String() string {
	return fmt.Sprintf("%si%d", i.TxHash.String(), i.Index)
}

var ErrInvalidInscriptionId = errors.New("invalid inscription id")

// NewInscriptionIdFromString parses "<txid>i<index>". A bare txid refers to index 0.
func NewInscriptionIdFromString(s string) (InscriptionId, error) {
	txStr, indexStr, found := strings.Cut(s, "i")
	if len(txStr) != chainhash.MaxHashStringSize {
		return InscriptionId{}, errors.Wrap(ErrInvalidInscriptionId, "txid must be 64 hex characters")
	}
	txHash, err := chainhash.NewHashFromStr(txStr)
	if err != nil {
		return InscriptionId{}, errors.Wrap(ErrInvalidInscriptionId, "cannot parse txid")
	}
	var index uint64
	if found {
		index, err = strconv.ParseUint(indexStr, 10, 32)
		if err != nil {
			return InscriptionId{}, errors.Wrap(ErrInvalidInscriptionId, "cannot parse index")
		}
	}
	return NewInscriptionId(*txHash, uint32(index)), nil
}

func (i InscriptionId) MarshalJSON() ([]byte, error) {
	return json.Marshal(i.String())
}

func (i *InscriptionId) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errors.WithStack(err)
	}
	parsed, err := NewInscriptionIdFromString(s)
	if err != nil {
		return errors.WithStack(err)
	}
	*i = parsed
	return nil
}
