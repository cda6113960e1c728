package ordinals

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/cockroachdb/errors"
)

// SatPoint is a position inside an output: the sat at Offset of OutPoint.
type SatPoint struct {
	OutPoint wire.OutPoint
	Offset   uint64
}

var (
	// NullOutPoint holds sats and inscriptions lost to unclaimed coinbase value.
	NullOutPoint = wire.OutPoint{Index: wire.MaxPrevOutIndex}
	// UnboundOutPoint holds inscriptions that could not be bound to a sat.
	UnboundOutPoint = wire.OutPoint{}
)

func (s SatPoint) String() string {
	return fmt.Sprintf("%s:%d", s.OutPoint.String(), s.Offset)
}

var ErrInvalidSatPoint = errors.New("invalid sat point")

// NewSatPointFromString parses "<txid>:<vout>:<offset>".
func NewSatPointFromString(s string) (SatPoint, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return SatPoint{}, errors.Wrap(ErrInvalidSatPoint, "must contain exactly two separators")
	}
	outPoint, err := NewOutPointFromString(parts[0] + ":" + parts[1])
	if err != nil {
		return SatPoint{}, errors.WithStack(err)
	}
	offset, err := strconv.ParseUint(parts[2], 10, 64)
	if err != nil {
		return SatPoint{}, errors.Wrap(ErrInvalidSatPoint, "cannot parse offset")
	}
	return SatPoint{
		OutPoint: outPoint,
		Offset:   offset,
	}, nil
}

var ErrInvalidOutPoint = errors.New("invalid outpoint")

// NewOutPointFromString parses "<txid>:<vout>".
func NewOutPointFromString(s string) (wire.OutPoint, error) {
	txStr, indexStr, ok := strings.Cut(s, ":")
	if !ok {
		return wire.OutPoint{}, errors.Wrap(ErrInvalidOutPoint, "missing separator")
	}
	txHash, err := chainhash.NewHashFromStr(txStr)
	if err != nil || len(txStr) != chainhash.MaxHashStringSize {
		return wire.OutPoint{}, errors.Wrap(ErrInvalidOutPoint, "cannot parse txid")
	}
	index, err := strconv.ParseUint(indexStr, 10, 32)
	if err != nil {
		return wire.OutPoint{}, errors.Wrap(ErrInvalidOutPoint, "cannot parse vout")
	}
	return wire.OutPoint{Hash: *txHash, Index: uint32(index)}, nil
}

func (s SatPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *SatPoint) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return errors.WithStack(err)
	}
	parsed, err := NewSatPointFromString(str)
	if err != nil {
		return errors.WithStack(err)
	}
	*s = parsed
	return nil
}
