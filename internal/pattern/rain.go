package pattern

import (
	"github.com/coreman2200/stripdimmer/internal/clock"
	"github.com/coreman2200/stripdimmer/model"
)

// rain spawns droplets at free positions and fades them out. Decay and
// spawning run on separate timers.
type rain struct {
	env   *Env
	p     Params
	drops *model.SparseBuffer
	trig  gate

	decay clock.Timer
	spawn clock.Timer
	gap   uint32
}

// RainLimits are the droplet parameters for one step.
type RainLimits struct {
	MaxDrops int
	MinGapMs uint32
	MaxGapMs uint32
	DecayMs  uint32
}

// RainFromPot maps a pot reading to rain intensity: more and faster
// droplets at higher readings.
func RainFromPot(pot uint8, pixels int) RainLimits {
	return RainLimits{
		MaxDrops: int(pot) * pixels / 255,
		MinGapMs: uint32(255 - pot),
		MaxGapMs: 510 - uint32(pot)<<1,
		DecayMs:  uint32(pot >> 5),
	}
}

func newRain(env *Env, p Params) (Pattern, error) {
	r := &rain{
		env:   env,
		p:     p,
		drops: model.NewSparseBuffer(env.Strip.Pixels()),
		trig:  gate{mode: p.Trigger},
		decay: clock.NewTimer(env.Clock),
		spawn: clock.NewTimer(env.Clock),
	}
	r.gap = r.nextGap(r.limits())
	return r, nil
}

func (r *rain) limits() RainLimits {
	if r.p.PotControl {
		return RainFromPot(r.p.pot(r.env.Input), r.env.Strip.Pixels())
	}
	return RainLimits{
		MaxDrops: r.p.MaxDrops,
		MinGapMs: r.p.MinGapMs,
		MaxGapMs: r.p.MaxGapMs,
		DecayMs:  r.p.DecayMs,
	}
}

func (r *rain) nextGap(l RainLimits) uint32 {
	lo, hi := l.MinGapMs, l.MaxGapMs
	if lo > hi {
		lo, hi = hi, lo
	}
	return lo + uint32(r.env.Rand.Int63n(int64(hi-lo)+1))
}

// freeSlot returns the k-th position not holding a droplet.
func (r *rain) freeSlot(k int) uint16 {
	next := 0
	for pos := 0; pos < r.env.Strip.Pixels(); pos++ {
		if next < r.drops.Len() && int(r.drops.At(next).Pos) == pos {
			next++
			continue
		}
		if k == 0 {
			return uint16(pos)
		}
		k--
	}
	return 0
}

func (r *rain) Step() error {
	l := r.limits()

	// droplets that went black last step
	r.drops.Compact()

	if r.decay.Due(clampInterval(l.DecayMs)) {
		for i := 0; i < r.drops.Len(); i++ {
			c := r.drops.At(i).Color
			c.R, _ = SubSat(c.R, 1)
			c.G, _ = SubSat(c.G, 1)
			c.B, _ = SubSat(c.B, 1)
			r.drops.Set(i, c)
		}
		r.decay.Reset()
	}

	fired := r.trig.fire(r.spawn.Due(r.gap), r.env.Input.Gate())
	free := r.env.Strip.Pixels() - r.drops.Len()
	if fired && r.drops.Len() < l.MaxDrops && free > 0 {
		pos := r.freeSlot(r.env.Rand.Intn(free))
		r.drops.Insert(pos, r.p.Colors[0])
		r.spawn.Reset()
		r.gap = r.nextGap(l)
	}

	return r.env.Strip.Sparse(r.drops, r.p.brightness(r.env.Input))
}

// Drops is the number of live droplets.
func (r *rain) Drops() int { return r.drops.Len() }
