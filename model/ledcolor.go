package model

import (
	"errors"
	"fmt"
	"image/color"
	"strings"
)

const MAX_BRIGHTNESS uint8 = 255

const (
	RED_OFFSET   uint8 = 0
	GREEN_OFFSET uint8 = 1
	BLUE_OFFSET  uint8 = 2
)

// RGB is a logical color. Channel order on the wire is decided by a
// WiringOrder at transmission time, never here.
type RGB struct {
	R, G, B uint8
}

var (
	Black = RGB{0, 0, 0}
	White = RGB{255, 255, 255}
	Red   = RGB{255, 0, 0}
	Green = RGB{0, 255, 0}
	Blue  = RGB{0, 0, 255}
)

// Channel returns the channel at offset (RED_OFFSET, GREEN_OFFSET, BLUE_OFFSET).
func (c RGB) Channel(off uint8) uint8 {
	switch off {
	case RED_OFFSET:
		return c.R
	case GREEN_OFFSET:
		return c.G
	default:
		return c.B
	}
}

func (c RGB) IsBlack() bool {
	return c.R == 0 && c.G == 0 && c.B == 0
}

func (c RGB) NRGBA() color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: 255}
}

func (c RGB) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// scale rounds v*b/255 to the nearest integer. 255 is odd so a remainder
// of exactly one half cannot occur.
func scale(v, b uint8) uint8 {
	return uint8((uint16(v)*uint16(b) + 127) / 255)
}

// ApplyBrightness scales every channel by brightness/255. Full brightness
// returns the color untouched.
func ApplyBrightness(c RGB, brightness uint8) RGB {
	if brightness == MAX_BRIGHTNESS {
		return c
	}
	return RGB{
		R: scale(c.R, brightness),
		G: scale(c.G, brightness),
		B: scale(c.B, brightness),
	}
}

// RGBA carries an alpha that is folded into the channels before use.
type RGBA struct {
	R, G, B, A uint8
}

// ToRGB pre-multiplies alpha into the color channels.
func (c RGBA) ToRGB() RGB {
	return ApplyBrightness(RGB{c.R, c.G, c.B}, c.A)
}

// WiringOrder maps transmission slots to logical channel offsets:
// slot i carries channel WiringOrder[i].
type WiringOrder [3]uint8

var (
	OrderRGB = WiringOrder{RED_OFFSET, GREEN_OFFSET, BLUE_OFFSET}
	OrderRBG = WiringOrder{RED_OFFSET, BLUE_OFFSET, GREEN_OFFSET}
	OrderGRB = WiringOrder{GREEN_OFFSET, RED_OFFSET, BLUE_OFFSET}
	OrderGBR = WiringOrder{GREEN_OFFSET, BLUE_OFFSET, RED_OFFSET}
	OrderBRG = WiringOrder{BLUE_OFFSET, RED_OFFSET, GREEN_OFFSET}
	OrderBGR = WiringOrder{BLUE_OFFSET, GREEN_OFFSET, RED_OFFSET}
)

var ErrWiringOrder = errors.New("invalid wiring order")

var orders = map[string]WiringOrder{
	"RGB": OrderRGB,
	"RBG": OrderRBG,
	"GRB": OrderGRB,
	"GBR": OrderGBR,
	"BRG": OrderBRG,
	"BGR": OrderBGR,
}

// ParseWiringOrder accepts names like "GRB" (case-insensitive).
func ParseWiringOrder(s string) (WiringOrder, error) {
	o, ok := orders[strings.ToUpper(strings.TrimSpace(s))]
	if !ok {
		return WiringOrder{}, fmt.Errorf("%w: %q", ErrWiringOrder, s)
	}
	return o, nil
}

// Valid reports whether o is a permutation of the three channels.
func (o WiringOrder) Valid() bool {
	var seen [3]bool
	for _, v := range o {
		if v > BLUE_OFFSET || seen[v] {
			return false
		}
		seen[v] = true
	}
	return true
}

// Wire returns the bytes of c in transmission order.
func (o WiringOrder) Wire(c RGB) [3]byte {
	return [3]byte{c.Channel(o[0]), c.Channel(o[1]), c.Channel(o[2])}
}

func (o WiringOrder) String() string {
	const names = "RGB"
	return string([]byte{names[o[0]%3], names[o[1]%3], names[o[2]%3]})
}
