package runes

import (
	"github.com/gaze-network/uint128"
)

// Flag is a bit position in the Flags field of a runestone.
type Flag uint8

const (
	FlagEtching  = Flag(0)
	FlagTerms    = Flag(1)
	FlagTurbo    = Flag(2)
	FlagCenotaph = Flag(127)
)

func (f Flag) Mask() Flags {
	return Flags(uint128.From64(1).Lsh(uint(f)))
}

// Flags is a bitmask of flags that can be set on a runestone.
type Flags uint128.Uint128

func (f Flags) Uint128() uint128.Uint128 {
	return uint128.Uint128(f)
}

func (f Flags) And(other Flags) Flags {
	return Flags(f.Uint128().And(other.Uint128()))
}

func (f Flags) Or(other Flags) Flags {
	return Flags(f.Uint128().Or(other.Uint128()))
}

// Take clears flag and reports whether it was set.
func (f *Flags) Take(flag Flag) bool {
	found := !f.And(flag.Mask()).Uint128().IsZero()
	if found {
		*f = Flags(f.Uint128().Xor(flag.Mask().Uint128()))
	}
	return found
}

func (f *Flags) Set(flag Flag) {
	*f = f.Or(flag.Mask())
}
