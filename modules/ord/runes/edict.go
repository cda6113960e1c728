package runes

import "github.com/gaze-network/uint128"

// Edict moves Amount of rune Id to Output. An Output equal to the number of
// transaction outputs splits the amount across every non-OP_RETURN output.
type Edict struct {
	Id     RuneId
	Amount uint128.Uint128
	Output uint32
}
