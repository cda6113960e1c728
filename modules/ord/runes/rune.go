package runes

import (
	"encoding/json"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ord-indexer/common"
	"github.com/gaze-network/ord-indexer/common/errs"
	"github.com/gaze-network/uint128"
)

// Rune is the integer form of a rune name, a bijective base-26 number over the letters A-Z.
type Rune uint128.Uint128

const (
	// SubsidyHalvingInterval is fixed by the protocol regardless of the network's own halving interval.
	SubsidyHalvingInterval = 210_000

	// unlockInterval is the number of blocks after which the minimum name length decreases by one.
	unlockInterval = SubsidyHalvingInterval / 12
)

var (
	// reservedRune is the first reserved rune, "AAAAAAAAAAAAAAAAAAAAAAAAAAA".
	reservedRune = Rune(uint128.New(18016373645310469078, 347072867592939878))

	// unlockSteps[n] is the first rune with n+1 letters.
	unlockSteps = func() []uint128.Uint128 {
		steps := make([]uint128.Uint128, 28)
		power := uint128.From64(1)
		for i := 1; i < len(steps); i++ {
			power = power.Mul64(26)
			steps[i] = steps[i-1].Add(power)
		}
		return steps
	}()

	firstRuneHeights = map[common.Network]uint64{
		common.NetworkMainnet: SubsidyHalvingInterval * 4,
		common.NetworkTestnet: SubsidyHalvingInterval * 12,
		common.NetworkSignet:  0,
		common.NetworkRegtest: 0,
	}
)

var ErrInvalidBase26 = errors.New("invalid base-26 character: must be in range [A-Z]")

const maxRuneString = "BCGDENLQRQWDSLRUGSNLBTMFIJAV"

func NewRune(value uint64) Rune {
	return Rune(uint128.From64(value))
}

func NewRuneFromUint128(value uint128.Uint128) Rune {
	return Rune(value)
}

// NewRuneFromString parses a rune name without spacers.
func NewRuneFromString(value string) (Rune, error) {
	if value == "" {
		return Rune{}, errors.Wrap(ErrInvalidBase26, "empty rune name")
	}
	n := uint128.Zero
	var overflow bool
	for i, char := range value {
		if char < 'A' || char > 'Z' {
			return Rune{}, errors.Wrapf(ErrInvalidBase26, "%q", char)
		}
		if i > 0 {
			if n, overflow = n.AddOverflow(uint128.From64(1)); overflow {
				return Rune{}, errors.WithStack(errs.OverflowUint128)
			}
		}
		if n, overflow = n.MulOverflow(uint128.From64(26)); overflow {
			return Rune{}, errors.WithStack(errs.OverflowUint128)
		}
		if n, overflow = n.AddOverflow(uint128.From64(uint64(char - 'A'))); overflow {
			return Rune{}, errors.WithStack(errs.OverflowUint128)
		}
	}
	return Rune(n), nil
}

func (r Rune) Uint128() uint128.Uint128 {
	return uint128.Uint128(r)
}

func (r Rune) Cmp(other Rune) int {
	return r.Uint128().Cmp(other.Uint128())
}

func (r Rune) String() string {
	n := r.Uint128()
	if n == uint128.Max {
		return maxRuneString
	}
	n = n.Add64(1)

	var sb strings.Builder
	for !n.IsZero() {
		q, rem := n.Sub64(1).QuoRem64(26)
		sb.WriteByte(byte('A' + rem))
		n = q
	}
	out := []byte(sb.String())
	slices.Reverse(out)
	return string(out)
}

func (r Rune) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *Rune) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errors.WithStack(err)
	}
	parsed, err := NewRuneFromString(s)
	if err != nil {
		return errors.WithStack(err)
	}
	*r = parsed
	return nil
}

// IsReserved reports whether the rune is in the range assigned to etchings without an explicit name.
func (r Rune) IsReserved() bool {
	return r.Cmp(reservedRune) >= 0
}

// NewReservedRune returns the reserved rune of an unnamed etching at (blockHeight, txIndex).
func NewReservedRune(blockHeight uint64, txIndex uint32) Rune {
	delta := uint128.From64(blockHeight).Lsh(32).Or64(uint64(txIndex))
	return Rune(reservedRune.Uint128().Add(delta))
}

// Commitment is the little-endian encoding of the rune without trailing zero bytes,
// it must appear in a tapscript push of the etching transaction.
func (r Rune) Commitment() []byte {
	n := r.Uint128()
	out := make([]byte, 16)
	n.PutBytes(out)
	end := len(out)
	for end > 0 && out[end-1] == 0 {
		end--
	}
	return out[:end]
}

// FirstRuneHeight is the height at which runes start being indexed on the network.
func FirstRuneHeight(network common.Network) uint64 {
	return firstRuneHeights[network]
}

// MinimumRuneAtHeight returns the smallest rune that may be etched in the block at height.
// The minimum starts at 13 letters and decreases by one letter every unlockInterval blocks.
func MinimumRuneAtHeight(network common.Network, height uint64) Rune {
	offset := height + 1

	start := FirstRuneHeight(network)
	end := start + SubsidyHalvingInterval
	if offset < start {
		return Rune(unlockSteps[12])
	}
	if offset >= end {
		return Rune{}
	}

	progress := offset - start
	length := 12 - progress/unlockInterval
	stepEnd := unlockSteps[length-1]
	stepStart := unlockSteps[length]
	remainder := progress % unlockInterval

	decrease, _ := stepStart.Sub(stepEnd).Mul64(remainder).QuoRem64(unlockInterval)
	return Rune(stepStart.Sub(decrease))
}
