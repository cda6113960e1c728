package runes

import (
	"encoding/json"
	"math/bits"
	"strings"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
)

// SpacedRune is a rune name plus a bitmask of spacer positions; bit i places a spacer after letter i.
type SpacedRune struct {
	Rune    Rune
	Spacers uint32
}

func NewSpacedRune(rune Rune, spacers uint32) SpacedRune {
	return SpacedRune{
		Rune:    rune,
		Spacers: spacers,
	}
}

var (
	ErrLeadingSpacer              = errors.New("runes cannot start with a spacer")
	ErrTrailingSpacer             = errors.New("runes cannot end with a spacer")
	ErrDoubleSpacer               = errors.New("runes cannot have more than one spacer between characters")
	ErrInvalidSpacedRuneCharacter = errors.New("invalid spaced rune character: must satisfy regex [A-Z•.]")
)

// NewSpacedRuneFromString accepts both '•' and '.' as spacers.
func NewSpacedRuneFromString(input string) (SpacedRune, error) {
	var sb strings.Builder
	var spacers uint32

	for _, c := range input {
		switch {
		case c >= 'A' && c <= 'Z':
			sb.WriteRune(c)
		case c == '•' || c == '.':
			if sb.Len() == 0 {
				return SpacedRune{}, errors.WithStack(ErrLeadingSpacer)
			}
			flag := uint32(1) << (sb.Len() - 1)
			if spacers&flag != 0 {
				return SpacedRune{}, errors.WithStack(ErrDoubleSpacer)
			}
			spacers |= flag
		default:
			return SpacedRune{}, errors.Wrapf(ErrInvalidSpacedRuneCharacter, "%q", c)
		}
	}

	if 32-bits.LeadingZeros32(spacers) >= sb.Len() {
		return SpacedRune{}, errors.WithStack(ErrTrailingSpacer)
	}
	rune, err := NewRuneFromString(sb.String())
	if err != nil {
		return SpacedRune{}, errors.Wrap(err, "failed to parse rune from string")
	}
	return NewSpacedRune(rune, spacers), nil
}

func (r SpacedRune) String() string {
	runeStr := r.Rune.String()
	var sb strings.Builder
	sb.Grow(len(runeStr) + bits.OnesCount32(r.Spacers)*utf8.RuneLen('•'))
	for i, c := range runeStr {
		sb.WriteRune(c)
		if i < len(runeStr)-1 && r.Spacers&(1<<i) != 0 {
			sb.WriteRune('•')
		}
	}
	return sb.String()
}

func (r SpacedRune) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *SpacedRune) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errors.WithStack(err)
	}
	spacedRune, err := NewSpacedRuneFromString(s)
	if err != nil {
		return errors.WithStack(err)
	}
	*r = spacedRune
	return nil
}
