package pattern

import "github.com/coreman2200/stripdimmer/model"

// solid paints the whole strip one color.
type solid struct {
	env *Env
	p   Params
}

func newSolid(env *Env, p Params) (Pattern, error) {
	return &solid{env: env, p: p}, nil
}

func (s *solid) Step() error {
	return s.env.Strip.Uniform(s.p.Colors[0], s.p.brightness(s.env.Input))
}

// distribute divides the strip evenly between the colors, or splits two
// colors at SplitAt.
type distribute struct {
	env     *Env
	p       Params
	scratch model.SegmentBuffer
}

func newDistribute(env *Env, p Params) (Pattern, error) {
	d := &distribute{env: env, p: p, scratch: make(model.SegmentBuffer, 0, len(p.Colors))}
	return d, nil
}

func (d *distribute) Step() error {
	n := d.env.Strip.Pixels()
	var buf model.SegmentBuffer
	if d.p.SplitAt > 0 && len(d.p.Colors) == 2 {
		buf = model.Split(n, d.p.SplitAt, d.p.Colors[0], d.p.Colors[1])
	} else {
		var err error
		if buf, err = model.DistributeInto(d.scratch, d.p.Colors, n); err != nil {
			return err
		}
	}
	return d.env.Strip.Segments(buf, d.p.brightness(d.env.Input))
}

// dial picks a hue with the pot.
type dial struct {
	env *Env
	p   Params
}

func newDial(env *Env, p Params) (Pattern, error) {
	return &dial{env: env, p: p}, nil
}

func (d *dial) Step() error {
	c := HueAt(int(d.p.pot(d.env.Input)) * 3)
	return d.env.Strip.Uniform(c, d.p.Brightness)
}
