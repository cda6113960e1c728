package runes

import "sort"

type FlawFlag int

const (
	FlawFlagEdictOutput FlawFlag = iota
	FlawFlagEdictRuneId
	FlawFlagInvalidScript
	FlawFlagOpCode
	FlawFlagSupplyOverflow
	FlawFlagTrailingIntegers
	FlawFlagTruncatedField
	FlawFlagUnrecognizedEvenTag
	FlawFlagUnrecognizedFlag
	FlawFlagVarInt
)

func (f FlawFlag) Mask() Flaws {
	return 1 << f
}

var flawMessages = map[FlawFlag]string{
	FlawFlagEdictOutput:         "edict output greater than transaction output count",
	FlawFlagEdictRuneId:         "invalid rune ID in edict",
	FlawFlagInvalidScript:       "invalid script in OP_RETURN",
	FlawFlagOpCode:              "non-pushdata opcode in OP_RETURN",
	FlawFlagSupplyOverflow:      "supply overflows u128",
	FlawFlagTrailingIntegers:    "trailing integers in body",
	FlawFlagTruncatedField:      "field with missing value",
	FlawFlagUnrecognizedEvenTag: "unrecognized even tag",
	FlawFlagUnrecognizedFlag:    "unrecognized field",
	FlawFlagVarInt:              "invalid varint",
}

func (f FlawFlag) String() string {
	return flawMessages[f]
}

// Flaws is a bitmask of the reasons a runestone became a cenotaph.
type Flaws uint32

func (f Flaws) Has(flag FlawFlag) bool {
	return f&flag.Mask() != 0
}

// Collect returns the flaws in ascending bit order.
func (f Flaws) Collect() []FlawFlag {
	var flags []FlawFlag
	for flag := range flawMessages {
		if f.Has(flag) {
			flags = append(flags, flag)
		}
	}
	sort.Slice(flags, func(i, j int) bool { return flags[i] < flags[j] })
	return flags
}

func (f Flaws) CollectAsString() []string {
	flawFlags := f.Collect()
	flawMsgs := make([]string, 0, len(flawFlags))
	for _, flag := range flawFlags {
		flawMsgs = append(flawMsgs, flag.String())
	}
	return flawMsgs
}
