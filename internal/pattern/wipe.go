package pattern

import (
	"github.com/coreman2200/stripdimmer/internal/clock"
	"github.com/coreman2200/stripdimmer/model"
)

// wipe lights one more pixel of the next color per delay, starting from
// pixel 0, over the previous color. Once the strip is covered the next color
// is picked by the variant.
type wipe struct {
	env   *Env
	p     Params
	timer clock.Timer
	trig  gate

	prev  model.RGB
	cur   model.RGB
	lit   int
	idx   int
	hue   Hue
	drawn bool
}

func newWipe(env *Env, p Params) (Pattern, error) {
	w := &wipe{
		env:   env,
		p:     p,
		timer: clock.NewTimer(env.Clock),
		trig:  gate{mode: p.Trigger},
		prev:  model.Black,
		hue:   NewHue(),
	}
	switch p.Variant {
	case VariantArray:
		w.cur = p.Colors[0]
	case VariantRandom:
		w.cur = model.White
	case VariantRainbow:
		w.cur = w.hue.Color
	}
	return w, nil
}

func (w *wipe) delay() uint32 {
	if w.p.PotControl {
		d := uint32(255 - w.p.pot(w.env.Input))
		if w.p.Variant == VariantArray {
			d += 5
		}
		return clampInterval(d)
	}
	return clampInterval(w.p.DelayMs)
}

func (w *wipe) next() {
	switch w.p.Variant {
	case VariantArray:
		w.idx = (w.idx + 1) % len(w.p.Colors)
		w.cur = w.p.Colors[w.idx]
	case VariantRandom:
		w.cur = randomColor(w.env.Rand)
	case VariantRainbow:
		w.hue.Step(w.p.Step)
		w.cur = w.hue.Color
	}
}

// Step draws only when a pixel is added. The call that covers the strip
// completes the wipe and queues the next color.
func (w *wipe) Step() error {
	fired := w.trig.fire(w.timer.Due(w.delay()), w.env.Input.Gate())
	if w.drawn && !fired {
		return nil
	}
	if w.drawn {
		w.lit++
		w.timer.Reset()
	}
	w.drawn = true

	n := w.env.Strip.Pixels()
	err := w.env.Strip.Segments(model.Split(n, w.lit, w.cur, w.prev), w.p.brightness(w.env.Input))
	if w.lit >= n {
		w.prev = w.cur
		w.next()
		w.lit = 0
	}
	return err
}
