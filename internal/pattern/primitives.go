package pattern

import (
	"github.com/coreman2200/stripdimmer/internal/clock"
	"github.com/coreman2200/stripdimmer/model"
)

// SubSat returns a-b clamped at 0 and whether the clamp was hit.
func SubSat(a, b uint8) (uint8, bool) {
	if b > a {
		return 0, true
	}
	return a - b, false
}

// AddSat returns a+b clamped at 255 and whether the clamp was hit.
func AddSat(a, b uint8) (uint8, bool) {
	if s := uint16(a) + uint16(b); s <= 255 {
		return uint8(s), false
	}
	return 255, true
}

// HueSteps is the number of unit steps around the hue circle.
const HueSteps = 3 * 255

// Hue walks the fully saturated hue circle red -> green -> blue -> red,
// moving value from one channel to the next so R+G+B stays 255.
type Hue struct {
	Color model.RGB
	r2g   bool
}

func NewHue() Hue {
	return Hue{Color: model.Red, r2g: true}
}

// fadeChannel moves step from lose to gain. It reports whether lose is
// now empty.
func fadeChannel(lose, gain *uint8, step uint8) bool {
	v, under := SubSat(*lose, step)
	if under {
		*lose = 0
		*gain = 255
		return true
	}
	*lose = v
	*gain, _ = AddSat(*gain, step)
	return v == 0
}

// Step advances the hue by step (0 counts as 1) and reports whether the
// current transition finished.
func (h *Hue) Step(step uint8) bool {
	if step == 0 {
		step = 1
	}
	c := &h.Color
	var done bool
	switch {
	case h.r2g:
		done = fadeChannel(&c.R, &c.G, step)
		h.r2g = c.R > 0
	case c.G > 0:
		done = fadeChannel(&c.G, &c.B, step)
	default:
		done = fadeChannel(&c.B, &c.R, step)
		h.r2g = c.R == 255
	}
	return done
}

// HueAt is the color pos unit steps from red.
func HueAt(pos int) model.RGB {
	pos %= HueSteps
	if pos < 0 {
		pos += HueSteps
	}
	off := uint8(pos % 255)
	switch pos / 255 {
	case 0:
		return model.RGB{R: 255 - off, G: off}
	case 1:
		return model.RGB{G: 255 - off, B: off}
	default:
		return model.RGB{R: off, B: 255 - off}
	}
}

// BreathHoldMs is the dark pause before each breath.
const BreathHoldMs = 2000

// Breath ramps a level 0 -> 255 -> 0 after a hold at 0.
type Breath struct {
	Level   uint8
	rising  bool
	holding bool
	timer   clock.Timer
}

func NewBreath(src clock.Source) Breath {
	return Breath{holding: true, timer: clock.NewTimer(src)}
}

// Holding reports whether the breath is in its dark pause.
func (b *Breath) Holding() bool { return b.holding }

// Step moves the level by step (0 counts as 1). It returns true exactly once
// per cycle, on the call that brings the level back to 0.
func (b *Breath) Step(step uint8) bool {
	if step == 0 {
		step = 1
	}
	if b.holding {
		if !b.timer.Due(BreathHoldMs) {
			return false
		}
		b.holding = false
		b.rising = true
	}
	if b.rising {
		v, over := AddSat(b.Level, step)
		b.Level = v
		if over || v == 255 {
			b.rising = false
		}
		return false
	}
	v, under := SubSat(b.Level, step)
	b.Level = v
	if under || v == 0 {
		b.Level = 0
		b.holding = true
		b.timer.Reset()
		return true
	}
	return false
}

// Edge detects rising edges of a sampled signal.
type Edge struct {
	prev bool
}

// Rising records cur and reports a false -> true transition.
func (e *Edge) Rising(cur bool) bool {
	r := cur && !e.prev
	e.prev = cur
	return r
}
