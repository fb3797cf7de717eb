package pattern

import (
	"github.com/coreman2200/stripdimmer/internal/clock"
	"github.com/coreman2200/stripdimmer/model"
)

// fade moves the whole strip around the hue circle.
type fade struct {
	env   *Env
	p     Params
	hue   Hue
	timer clock.Timer
}

func newFade(env *Env, p Params) (Pattern, error) {
	return &fade{env: env, p: p, hue: NewHue(), timer: clock.NewTimer(env.Clock)}, nil
}

func (f *fade) params() (step uint8, delay uint32) {
	if f.p.PotControl {
		pot := f.p.pot(f.env.Input)
		return pot >> 6, clampInterval(uint32(255-pot) >> 3)
	}
	return f.p.Step, clampInterval(f.p.DelayMs)
}

func (f *fade) Step() error {
	step, delay := f.params()
	if f.timer.Due(delay) {
		f.hue.Step(step)
		f.timer.Reset()
	}
	return f.env.Strip.Uniform(f.hue.Color, f.p.brightness(f.env.Input))
}

// rotateRainbow spreads the hue circle across the strip, Step hue units
// apart, and turns it by one pixel per delay.
type rotateRainbow struct {
	env   *Env
	p     Params
	phase Hue
	timer clock.Timer

	cursor Hue
	step   uint8
}

func newRotateRainbow(env *Env, p Params) (Pattern, error) {
	return &rotateRainbow{env: env, p: p, phase: NewHue(), timer: clock.NewTimer(env.Clock)}, nil
}

func (r *rotateRainbow) delay() uint32 {
	if r.p.PotControl {
		return uint32(31-(r.p.pot(r.env.Input)>>3)) + 5
	}
	return clampInterval(r.p.DelayMs)
}

func (r *rotateRainbow) Step() error {
	r.step = clampStep(r.p.Step)
	if r.timer.Due(r.delay()) {
		r.phase.Step(r.step)
		r.timer.Reset()
	}
	r.cursor = r.phase
	return r.env.Strip.Stream(r.next, r.p.brightness(r.env.Input))
}

func (r *rotateRainbow) next(int) model.RGB {
	c := r.cursor.Color
	r.cursor.Step(r.step)
	return c
}
