package pattern

import (
	"github.com/coreman2200/stripdimmer/internal/clock"
	"github.com/coreman2200/stripdimmer/model"
)

// DefaultSwapFloorMs keeps the pot-driven swap interval from reaching zero.
const DefaultSwapFloorMs = 100

// swap shows the colors in even regions and rotates them one region on each
// trigger.
type swap struct {
	env   *Env
	p     Params
	timer clock.Timer
	trig  gate

	offset  int
	drawn   bool
	colors  []model.RGB
	scratch model.SegmentBuffer
}

func newSwap(env *Env, p Params) (Pattern, error) {
	return &swap{
		env:     env,
		p:       p,
		timer:   clock.NewTimer(env.Clock),
		trig:    gate{mode: p.Trigger},
		colors:  make([]model.RGB, len(p.Colors)),
		scratch: make(model.SegmentBuffer, 0, len(p.Colors)),
	}, nil
}

// SwapInterval returns the swap period for a pot reading: higher readings swap
// faster. floor 0 takes DefaultSwapFloorMs.
func SwapInterval(pot uint8, floor uint32) uint32 {
	if floor == 0 {
		floor = DefaultSwapFloorMs
	}
	return clampInterval(1020 - uint32(pot)<<2 + floor)
}

func (s *swap) interval() uint32 {
	if s.p.PotControl {
		return SwapInterval(s.p.pot(s.env.Input), s.p.SwapFloorMs)
	}
	return clampInterval(s.p.DelayMs)
}

func (s *swap) Step() error {
	fired := s.trig.fire(s.timer.Due(s.interval()), s.env.Input.Gate())
	if s.drawn && !fired {
		return nil
	}
	if s.drawn {
		s.offset = (s.offset + 1) % len(s.p.Colors)
	}
	s.timer.Reset()
	s.drawn = true

	n := len(s.p.Colors)
	for i := range s.colors {
		s.colors[i] = s.p.Colors[(i+s.offset)%n]
	}
	buf, err := model.DistributeInto(s.scratch, s.colors, s.env.Strip.Pixels())
	if err != nil {
		return err
	}
	return s.env.Strip.Segments(buf, s.p.brightness(s.env.Input))
}
