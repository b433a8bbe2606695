// internal/models/card.go
package models

import "fmt"

// Color is the suit of a card. Black is reserved for wild cards.
type Color int

const (
	ColorRed Color = iota
	ColorGreen
	ColorBlue
	ColorYellow
	ColorBlack
)

// SuitColors are the four colors a wild card may set as the active color.
var SuitColors = []Color{ColorRed, ColorGreen, ColorBlue, ColorYellow}

var colorNames = map[Color]string{
	ColorRed:    "Red",
	ColorGreen:  "Green",
	ColorBlue:   "Blue",
	ColorYellow: "Yellow",
	ColorBlack:  "Black",
}

func (c Color) String() string {
	if name, ok := colorNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Color(%d)", int(c))
}

// IsSuit reports whether c is one of the four playable suit colors.
func (c Color) IsSuit() bool {
	return c >= ColorRed && c <= ColorYellow
}

func (c Color) MarshalText() ([]byte, error) {
	name, ok := colorNames[c]
	if !ok {
		return nil, fmt.Errorf("unknown color %d", int(c))
	}
	return []byte(name), nil
}

func (c *Color) UnmarshalText(text []byte) error {
	parsed, err := ParseColor(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseColor converts a color name ("Red", "Green", ...) into a Color.
func ParseColor(s string) (Color, error) {
	for c, name := range colorNames {
		if name == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown color %q", s)
}

// Value is the face of a card: a numeral 0-9 or one of the action/wild kinds.
type Value int

const (
	ValueZero Value = iota
	ValueOne
	ValueTwo
	ValueThree
	ValueFour
	ValueFive
	ValueSix
	ValueSeven
	ValueEight
	ValueNine
	ValueSkip
	ValueReverse
	ValueDrawTwo
	ValueWild
	ValueWildDrawFour
	ValueWildPickUntil
	ValueWildSwap
)

var valueNames = map[Value]string{
	ValueZero:          "0",
	ValueOne:           "1",
	ValueTwo:           "2",
	ValueThree:         "3",
	ValueFour:          "4",
	ValueFive:          "5",
	ValueSix:           "6",
	ValueSeven:         "7",
	ValueEight:         "8",
	ValueNine:          "9",
	ValueSkip:          "Skip",
	ValueReverse:       "Reverse",
	ValueDrawTwo:       "Draw Two",
	ValueWild:          "Wild",
	ValueWildDrawFour:  "Wild Draw Four",
	ValueWildPickUntil: "Wild Pick Until",
	ValueWildSwap:      "Wild Swap",
}

func (v Value) String() string {
	if name, ok := valueNames[v]; ok {
		return name
	}
	return fmt.Sprintf("Value(%d)", int(v))
}

// IsNumeral reports whether v is one of the face values 0-9.
func (v Value) IsNumeral() bool {
	return v >= ValueZero && v <= ValueNine
}

// IsWild reports whether v only ever appears on black cards.
func (v Value) IsWild() bool {
	return v >= ValueWild && v <= ValueWildSwap
}

func (v Value) MarshalText() ([]byte, error) {
	name, ok := valueNames[v]
	if !ok {
		return nil, fmt.Errorf("unknown card value %d", int(v))
	}
	return []byte(name), nil
}

func (v *Value) UnmarshalText(text []byte) error {
	parsed, err := ParseValue(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// ParseValue converts a value label ("7", "Draw Two", "Wild Swap", ...) into a Value.
func ParseValue(s string) (Value, error) {
	for v, name := range valueNames {
		if name == s {
			return v, nil
		}
	}
	return 0, fmt.Errorf("unknown card value %q", s)
}

// Card is an immutable playing card. Duplicates are legal and indistinguishable.
type Card struct {
	Color Color `json:"color"`
	Value Value `json:"value"`
}

// IsWild reports whether the card is black.
func (c Card) IsWild() bool {
	return c.Color == ColorBlack
}

// DelaysWin reports whether emptying a hand with this card defers the round end
// until the card's effect has been resolved.
func (c Card) DelaysWin() bool {
	switch c.Value {
	case ValueDrawTwo, ValueWildDrawFour, ValueWildPickUntil:
		return true
	}
	return false
}

func (c Card) String() string {
	if c.IsWild() {
		return c.Value.String()
	}
	return c.Color.String() + " " + c.Value.String()
}
