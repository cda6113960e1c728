// Package leb128 implements unsigned LEB128 varints, the integer encoding of runestone payloads
// and of the indexer's persisted records.
package leb128

import (
	"github.com/gaze-network/ord-indexer/common/errs"
	"github.com/gaze-network/uint128"
)

const (
	ErrEmpty        = errs.ErrorKind("leb128: empty byte sequence")
	ErrUnterminated = errs.ErrorKind("leb128: unterminated byte sequence")
)

// maxUint128Bytes is the longest encoding of a uint128, the last byte may only carry 2 bits.
const maxUint128Bytes = 19

func EncodeUint128(input uint128.Uint128) []byte {
	return AppendUint128(make([]byte, 0, maxUint128Bytes), input)
}

// AppendUint128 appends the encoding of input to dst.
func AppendUint128(dst []byte, input uint128.Uint128) []byte {
	for !input.Rsh(7).IsZero() {
		dst = append(dst, input.And64(0b0111_1111).Uint8()|0b1000_0000)
		input = input.Rsh(7)
	}
	return append(dst, input.Uint8())
}

// DecodeUint128 decodes the varint at the start of data and returns its value and encoded length.
func DecodeUint128(data []byte) (n uint128.Uint128, length int, err error) {
	if len(data) == 0 {
		return uint128.Zero, 0, ErrEmpty
	}

	for i, b := range data {
		if i >= maxUint128Bytes {
			return uint128.Zero, 0, errs.OverflowUint128
		}
		value := uint128.From64(uint64(b & 0b0111_1111))
		if i == maxUint128Bytes-1 && !value.And64(0b0111_1100).IsZero() {
			return uint128.Zero, 0, errs.OverflowUint128
		}
		n = n.Or(value.Lsh(uint(7 * i)))
		if b&0b1000_0000 == 0 {
			return n, i + 1, nil
		}
	}
	return uint128.Zero, 0, ErrUnterminated
}

// AppendUint64 appends the encoding of input to dst.
func AppendUint64(dst []byte, input uint64) []byte {
	for input >= 0b1000_0000 {
		dst = append(dst, byte(input)|0b1000_0000)
		input >>= 7
	}
	return append(dst, byte(input))
}

// DecodeUint64 decodes the varint at the start of data and returns its value and encoded length.
func DecodeUint64(data []byte) (n uint64, length int, err error) {
	if len(data) == 0 {
		return 0, 0, ErrEmpty
	}

	var shift uint
	for i, b := range data {
		if i == 9 && b > 1 {
			return 0, 0, errs.OverflowUint64
		}
		if i > 9 {
			return 0, 0, errs.OverflowUint64
		}
		n |= uint64(b&0b0111_1111) << shift
		if b&0b1000_0000 == 0 {
			return n, i + 1, nil
		}
		shift += 7
	}
	return 0, 0, ErrUnterminated
}
