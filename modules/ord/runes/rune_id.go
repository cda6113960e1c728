package runes

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ord-indexer/common/errs"
)

// RuneId is the (block height, tx index) of the transaction that etched a rune.
type RuneId struct {
	BlockHeight uint64
	TxIndex     uint32
}

var ErrInvalidRuneId = errors.New("invalid rune id")

func NewRuneId(blockHeight uint64, txIndex uint32) (RuneId, error) {
	if blockHeight == 0 && txIndex > 0 {
		return RuneId{}, errors.Wrap(ErrInvalidRuneId, "txIndex must be zero if blockHeight is zero")
	}
	return RuneId{
		BlockHeight: blockHeight,
		TxIndex:     txIndex,
	}, nil
}

// NewRuneIdFromString parses "<block>:<tx>".
func NewRuneIdFromString(str string) (RuneId, error) {
	blockStr, txStr, ok := strings.Cut(str, ":")
	if !ok || strings.Contains(txStr, ":") {
		return RuneId{}, errors.Wrap(ErrInvalidRuneId, "invalid separator")
	}
	blockHeight, err := strconv.ParseUint(blockStr, 10, 64)
	if err != nil {
		return RuneId{}, errors.Wrap(ErrInvalidRuneId, "cannot parse block height")
	}
	txIndex, err := strconv.ParseUint(txStr, 10, 32)
	if err != nil {
		return RuneId{}, errors.Wrap(ErrInvalidRuneId, "cannot parse tx index")
	}
	return NewRuneId(blockHeight, uint32(txIndex))
}

func (r RuneId) IsZero() bool {
	return r == RuneId{}
}

func (r RuneId) String() string {
	return fmt.Sprintf("%d:%d", r.BlockHeight, r.TxIndex)
}

func (r RuneId) Cmp(other RuneId) int {
	switch {
	case r.BlockHeight < other.BlockHeight:
		return -1
	case r.BlockHeight > other.BlockHeight:
		return 1
	case r.TxIndex < other.TxIndex:
		return -1
	case r.TxIndex > other.TxIndex:
		return 1
	}
	return 0
}

// Delta returns the edict encoding of next relative to r. next must not sort before r.
func (r RuneId) Delta(next RuneId) (uint64, uint32) {
	blockDelta := next.BlockHeight - r.BlockHeight
	if blockDelta == 0 {
		return 0, next.TxIndex - r.TxIndex
	}
	return blockDelta, next.TxIndex
}

// Next applies an edict delta to r.
func (r RuneId) Next(blockDelta uint64, txDelta uint32) (RuneId, error) {
	blockHeight := r.BlockHeight + blockDelta
	if blockHeight < r.BlockHeight {
		return RuneId{}, errors.WithStack(errs.OverflowUint64)
	}
	txIndex := txDelta
	if blockDelta == 0 {
		txIndex = r.TxIndex + txDelta
		if txIndex < txDelta {
			return RuneId{}, errors.Wrap(errs.OverflowUint64, "tx index overflows uint32")
		}
	}
	return NewRuneId(blockHeight, txIndex)
}

func (r RuneId) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *RuneId) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errors.WithStack(err)
	}
	runeId, err := NewRuneIdFromString(s)
	if err != nil {
		return errors.WithStack(err)
	}
	*r = runeId
	return nil
}
