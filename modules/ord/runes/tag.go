package runes

import (
	"github.com/gaze-network/uint128"
)

// Tag identifies a runestone field. Unrecognized odd tags are ignored; unrecognized even tags produce a cenotaph.
type Tag uint128.Uint128

func (t Tag) Uint128() uint128.Uint128 {
	return uint128.Uint128(t)
}

func (t Tag) IsEven() bool {
	return t.Uint128().Lo&1 == 0
}

var (
	TagBody        = Tag(uint128.From64(0))
	TagFlags       = Tag(uint128.From64(2))
	TagRune        = Tag(uint128.From64(4))
	TagPremine     = Tag(uint128.From64(6))
	TagCap         = Tag(uint128.From64(8))
	TagAmount      = Tag(uint128.From64(10))
	TagHeightStart = Tag(uint128.From64(12))
	TagHeightEnd   = Tag(uint128.From64(14))
	TagOffsetStart = Tag(uint128.From64(16))
	TagOffsetEnd   = Tag(uint128.From64(18))
	TagMint        = Tag(uint128.From64(20))
	TagPointer     = Tag(uint128.From64(22))
	// TagCenotaph is never recognized, so setting it always produces a cenotaph.
	TagCenotaph = Tag(uint128.From64(126))

	TagDivisibility = Tag(uint128.From64(1))
	TagSpacers      = Tag(uint128.From64(3))
	TagSymbol       = Tag(uint128.From64(5))
	TagNop          = Tag(uint128.From64(127))
)

// Fields holds the non-body tag/value pairs of a message. Values of a repeated tag keep their order.
type Fields map[Tag][]uint128.Uint128

// Take pops the first value of tag.
func (f Fields) Take(tag Tag) *uint128.Uint128 {
	values, ok := f[tag]
	if !ok || len(values) == 0 {
		return nil
	}
	value := values[0]
	f.shift(tag, 1)
	return &value
}

// TakeWith pops the first n values of tag only if convert accepts them.
// Rejected values stay in place, so an even tag left behind turns the message into a cenotaph.
func TakeWith[T any](f Fields, tag Tag, n int, convert func(values []uint128.Uint128) (T, bool)) (T, bool) {
	var zero T
	values := f[tag]
	if len(values) < n {
		return zero, false
	}
	value, ok := convert(values[:n])
	if !ok {
		return zero, false
	}
	f.shift(tag, n)
	return value, true
}

func (f Fields) shift(tag Tag, n int) {
	values := f[tag]
	if len(values) <= n {
		delete(f, tag)
		return
	}
	f[tag] = values[n:]
}

func (f Fields) hasEvenTags() bool {
	for tag := range f {
		if tag.IsEven() {
			return true
		}
	}
	return false
}
