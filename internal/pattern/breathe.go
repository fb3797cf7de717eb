package pattern

import "github.com/coreman2200/stripdimmer/model"

// breathe fades a color in and out. When a breath completes the next color
// is chosen by the variant: the same color, the next array entry, a random
// color or the hue advanced by Step.
type breathe struct {
	env    *Env
	p      Params
	breath Breath
	trig   gate

	color model.RGB
	idx   int
	hue   Hue
}

func newBreathe(env *Env, p Params) (Pattern, error) {
	b := &breathe{
		env:    env,
		p:      p,
		breath: NewBreath(env.Clock),
		trig:   gate{mode: p.Trigger},
		hue:    NewHue(),
	}
	switch p.Variant {
	case VariantColor, VariantArray:
		b.color = p.Colors[0]
	case VariantRandom:
		b.color = randomColor(env.Rand)
	case VariantRainbow:
		b.color = b.hue.Color
	}
	return b, nil
}

// speed is the breath step. With pot control it runs from 1 to 8.
func (b *breathe) speed() uint8 {
	if b.p.PotControl {
		return b.p.pot(b.env.Input)>>5 + 1
	}
	return b.p.Step
}

func (b *breathe) advance() {
	switch b.p.Variant {
	case VariantArray:
		b.idx = (b.idx + 1) % len(b.p.Colors)
		b.color = b.p.Colors[b.idx]
	case VariantRandom:
		b.color = randomColor(b.env.Rand)
	case VariantRainbow:
		b.hue.Step(b.p.Step)
		b.color = b.hue.Color
	}
}

func (b *breathe) Step() error {
	done := b.breath.Step(b.speed())
	if b.trig.fire(done, b.env.Input.Gate()) {
		b.advance()
	}
	return b.env.Strip.Uniform(b.color, b.breath.Level)
}
