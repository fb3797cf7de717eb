package pattern

import (
	"math/rand"
	"testing"
	"time"

	"github.com/coreman2200/stripdimmer/internal/clock"
	"github.com/coreman2200/stripdimmer/internal/input"
	"github.com/coreman2200/stripdimmer/internal/led"
	"github.com/coreman2200/stripdimmer/internal/strip"
	"github.com/coreman2200/stripdimmer/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rig struct {
	env *Env
	sim *led.Sim
	clk *clock.Manual
	in  *input.Fixed
}

func newRig(pixels int) *rig {
	sim := led.NewSim(zerolog.Nop())
	clk := clock.NewManual(0)
	in := &input.Fixed{}
	return &rig{
		env: &Env{
			Strip: strip.New(sim, model.OrderRGB, pixels),
			Clock: clk,
			Input: in,
			Rand:  rand.New(rand.NewSource(1)),
		},
		sim: sim,
		clk: clk,
		in:  in,
	}
}

func (r *rig) build(t *testing.T, kind string, p Params) Pattern {
	t.Helper()
	pat, err := Default().Build(kind, r.env, p)
	require.NoError(t, err)
	return pat
}

func (r *rig) step(t *testing.T, p Pattern) []model.RGB {
	t.Helper()
	require.NoError(t, p.Step())
	return r.frame()
}

func (r *rig) frame() []model.RGB {
	raw := r.sim.Frame()
	out := make([]model.RGB, 0, len(raw)/3)
	for i := 0; i+2 < len(raw); i += 3 {
		out = append(out, model.RGB{R: raw[i], G: raw[i+1], B: raw[i+2]})
	}
	return out
}

func (r *rig) advance(ms int) {
	r.clk.Advance(time.Duration(ms) * time.Millisecond)
}

func fill(n int, c model.RGB) []model.RGB {
	out := make([]model.RGB, n)
	for i := range out {
		out[i] = c
	}
	return out
}

func TestSolidUsesPotBrightness(t *testing.T) {
	r := newRig(3)
	p := r.build(t, KindSolid, Params{Colors: []model.RGB{model.White}, PotBrightness: true})
	r.in.PotLevel = 128
	assert.Equal(t, fill(3, model.RGB{R: 128, G: 128, B: 128}), r.step(t, p))
	r.in.PotLevel = 0
	assert.Equal(t, fill(3, model.Black), r.step(t, p))
}

func TestDistributeAndSplit(t *testing.T) {
	r := newRig(5)
	p := r.build(t, KindDistribute, Params{Colors: []model.RGB{model.Red, model.Green}, Brightness: 255})
	assert.Equal(t, []model.RGB{model.Red, model.Red, model.Green, model.Green, model.Green}, r.step(t, p))

	p = r.build(t, KindDistribute, Params{Colors: []model.RGB{model.Red, model.Green}, SplitAt: 1, Brightness: 255})
	assert.Equal(t, []model.RGB{model.Red, model.Green, model.Green, model.Green, model.Green}, r.step(t, p))
}

func TestDialFollowsPot(t *testing.T) {
	r := newRig(2)
	p := r.build(t, KindDial, Params{Brightness: 255})
	assert.Equal(t, fill(2, model.Red), r.step(t, p))
	r.in.PotLevel = 85
	assert.Equal(t, fill(2, model.Green), r.step(t, p))
	r.in.PotLevel = 170
	assert.Equal(t, fill(2, model.Blue), r.step(t, p))
}

func TestDialFollowsCV(t *testing.T) {
	r := newRig(2)
	p := r.build(t, KindDial, Params{UseCV: true, Brightness: 255})
	r.in.PotLevel = 85
	assert.Equal(t, fill(2, model.Red), r.step(t, p))
	r.in.CVLevel = 170
	assert.Equal(t, fill(2, model.Blue), r.step(t, p))
}

func TestCVBrightness(t *testing.T) {
	r := newRig(1)
	p := r.build(t, KindSolid, Params{Colors: []model.RGB{model.White}, PotBrightness: true, UseCV: true})
	r.in.PotLevel = 255
	r.in.CVLevel = 64
	assert.Equal(t, []model.RGB{{R: 64, G: 64, B: 64}}, r.step(t, p))
}

func TestZeroIntervalsWaitOneMs(t *testing.T) {
	r := newRig(1)
	fade := r.build(t, KindFade, Params{Step: 255, Brightness: 255})
	assert.Equal(t, []model.RGB{model.Red}, r.step(t, fade))
	assert.Equal(t, []model.RGB{model.Red}, r.step(t, fade))
	r.advance(1)
	assert.Equal(t, []model.RGB{model.Green}, r.step(t, fade))

	r = newRig(2)
	rot := r.build(t, KindRotateRainbow, Params{Step: 255, Brightness: 255})
	assert.Equal(t, []model.RGB{model.Red, model.Green}, r.step(t, rot))
	assert.Equal(t, []model.RGB{model.Red, model.Green}, r.step(t, rot))
	r.advance(1)
	assert.Equal(t, []model.RGB{model.Green, model.Blue}, r.step(t, rot))

	r = newRig(2)
	w := r.build(t, KindWipe, Params{Variant: VariantArray, Colors: []model.RGB{model.Red}, Brightness: 255})
	r.step(t, w)
	r.step(t, w)
	assert.Equal(t, 1, r.sim.Frames())
	r.advance(1)
	r.step(t, w)
	assert.Equal(t, 2, r.sim.Frames())
}

func TestFadeWaitsForDelay(t *testing.T) {
	r := newRig(1)
	p := r.build(t, KindFade, Params{Step: 255, DelayMs: 50, Brightness: 255})
	assert.Equal(t, []model.RGB{model.Red}, r.step(t, p))
	r.advance(49)
	assert.Equal(t, []model.RGB{model.Red}, r.step(t, p))
	r.advance(1)
	assert.Equal(t, []model.RGB{model.Green}, r.step(t, p))
	assert.Equal(t, []model.RGB{model.Green}, r.step(t, p))
}

func TestFadePotControl(t *testing.T) {
	r := newRig(1)
	r.in.PotLevel = 255
	p := r.build(t, KindFade, Params{PotControl: true, Brightness: 255})
	// step 3, delay 0 waits 1ms
	assert.Equal(t, []model.RGB{model.Red}, r.step(t, p))
	r.advance(1)
	assert.Equal(t, []model.RGB{{R: 252, G: 3}}, r.step(t, p))
	r.in.PotLevel = 0
	// step 0 counts as 1, delay 31
	assert.Equal(t, []model.RGB{{R: 252, G: 3}}, r.step(t, p))
	r.advance(31)
	assert.Equal(t, []model.RGB{{R: 251, G: 4}}, r.step(t, p))
}

func TestRotateRainbow(t *testing.T) {
	r := newRig(4)
	p := r.build(t, KindRotateRainbow, Params{Step: 85, DelayMs: 100, Brightness: 255})
	assert.Equal(t, []model.RGB{HueAt(0), HueAt(85), HueAt(170), HueAt(255)}, r.step(t, p))
	r.advance(100)
	assert.Equal(t, []model.RGB{HueAt(85), HueAt(170), HueAt(255), HueAt(340)}, r.step(t, p))
}

func TestRotateRainbowPotDelay(t *testing.T) {
	r := newRig(2)
	r.in.PotLevel = 255
	p := r.build(t, KindRotateRainbow, Params{Step: 255, PotControl: true, Brightness: 255})
	assert.Equal(t, []model.RGB{model.Red, model.Green}, r.step(t, p))
	// 31 - 31 + 5
	r.advance(4)
	assert.Equal(t, []model.RGB{model.Red, model.Green}, r.step(t, p))
	r.advance(1)
	assert.Equal(t, []model.RGB{model.Green, model.Blue}, r.step(t, p))
}

func TestBreatheArrayAdvancesOnCompletion(t *testing.T) {
	r := newRig(1)
	p := r.build(t, KindBreathe, Params{Variant: VariantArray, Colors: []model.RGB{model.Red, model.Blue}, Step: 255})

	assert.Equal(t, []model.RGB{model.Black}, r.step(t, p))
	r.advance(BreathHoldMs)
	assert.Equal(t, []model.RGB{model.Red}, r.step(t, p))
	assert.Equal(t, []model.RGB{model.Black}, r.step(t, p))
	r.advance(BreathHoldMs)
	assert.Equal(t, []model.RGB{model.Blue}, r.step(t, p))
	r.step(t, p)
	r.advance(BreathHoldMs)
	assert.Equal(t, []model.RGB{model.Red}, r.step(t, p))
}

func TestBreatheGateTrigger(t *testing.T) {
	r := newRig(1)
	p := r.build(t, KindBreathe, Params{Variant: VariantArray, Colors: []model.RGB{model.Red, model.Blue}, Step: 255, Trigger: TriggerGate})
	r.advance(BreathHoldMs)
	assert.Equal(t, []model.RGB{model.Red}, r.step(t, p))
	// completion alone does not advance
	r.step(t, p)
	r.advance(BreathHoldMs)
	assert.Equal(t, []model.RGB{model.Red}, r.step(t, p))

	r.in.GateLevel = true
	assert.Equal(t, []model.RGB{model.Black}, r.step(t, p))
	r.advance(BreathHoldMs)
	assert.Equal(t, []model.RGB{model.Blue}, r.step(t, p))
}

func TestBreatheRainbowAndRandom(t *testing.T) {
	r := newRig(1)
	p := r.build(t, KindBreathe, Params{Variant: VariantRainbow, Step: 255})
	r.advance(BreathHoldMs)
	assert.Equal(t, []model.RGB{model.Red}, r.step(t, p))
	r.step(t, p)
	r.advance(BreathHoldMs)
	assert.Equal(t, []model.RGB{model.Green}, r.step(t, p))

	p = r.build(t, KindBreathe, Params{Variant: VariantRandom, Step: 255})
	r.advance(BreathHoldMs)
	c := r.step(t, p)[0]
	assert.False(t, c.IsBlack())
	assert.Equal(t, uint8(255), max3(c))
}

func max3(c model.RGB) uint8 {
	m := c.R
	if c.G > m {
		m = c.G
	}
	if c.B > m {
		m = c.B
	}
	return m
}

func TestSwapRotatesOnInterval(t *testing.T) {
	r := newRig(4)
	a, b := model.Red, model.Blue
	p := r.build(t, KindSwap, Params{Colors: []model.RGB{a, b}, DelayMs: 100, Brightness: 255})

	assert.Equal(t, []model.RGB{a, a, b, b}, r.step(t, p))
	assert.Equal(t, 1, r.sim.Frames())
	r.advance(50)
	r.step(t, p)
	assert.Equal(t, 1, r.sim.Frames())
	r.advance(50)
	assert.Equal(t, []model.RGB{b, b, a, a}, r.step(t, p))
	r.advance(100)
	assert.Equal(t, []model.RGB{a, a, b, b}, r.step(t, p))
}

func TestSwapThreeColors(t *testing.T) {
	r := newRig(3)
	c := []model.RGB{model.Red, model.Green, model.Blue}
	p := r.build(t, KindSwap, Params{Colors: c, DelayMs: 10, Brightness: 255})
	assert.Equal(t, c, r.step(t, p))
	r.advance(10)
	assert.Equal(t, []model.RGB{model.Green, model.Blue, model.Red}, r.step(t, p))
}

func TestSwapInterval(t *testing.T) {
	assert.Equal(t, uint32(1120), SwapInterval(0, 0))
	assert.Equal(t, uint32(100), SwapInterval(255, 0))
	assert.Equal(t, uint32(20), SwapInterval(255, 20))
	assert.Equal(t, uint32(1020), SwapInterval(0, 0)-DefaultSwapFloorMs)
}

func TestSwapGate(t *testing.T) {
	r := newRig(2)
	a, b := model.Red, model.Blue
	p := r.build(t, KindSwap, Params{Colors: []model.RGB{a, b}, DelayMs: 1, Trigger: TriggerGate, Brightness: 255})
	assert.Equal(t, []model.RGB{a, b}, r.step(t, p))
	r.advance(10)
	r.step(t, p)
	assert.Equal(t, 1, r.sim.Frames())
	r.in.GateLevel = true
	assert.Equal(t, []model.RGB{b, a}, r.step(t, p))
	r.step(t, p)
	assert.Equal(t, 2, r.sim.Frames())
}

func lit(frame []model.RGB) int {
	n := 0
	for _, c := range frame {
		if !c.IsBlack() {
			n++
		}
	}
	return n
}

func TestRainNeverExceedsMax(t *testing.T) {
	r := newRig(10)
	p := r.build(t, KindRain, Params{
		Colors:     []model.RGB{model.White},
		MaxDrops:   3,
		MinGapMs:   0,
		MaxGapMs:   5,
		DecayMs:    2,
		Brightness: 255,
	})
	rn := p.(*rain)
	for i := 0; i < 2000; i++ {
		f := r.step(t, p)
		require.LessOrEqual(t, rn.Drops(), 3)
		require.LessOrEqual(t, lit(f), 3)
		r.advance(1)
	}
}

func TestRainRemovesBlackDropletNextStep(t *testing.T) {
	r := newRig(8)
	p := r.build(t, KindRain, Params{
		Colors:     []model.RGB{{R: 2, G: 2, B: 2}},
		MaxDrops:   4,
		Trigger:    TriggerGate,
		Brightness: 255,
	})
	rn := p.(*rain)

	r.in.GateLevel = true
	f := r.step(t, p)
	assert.Equal(t, 1, rn.Drops())
	assert.Equal(t, 1, lit(f))
	r.in.GateLevel = false

	// decay 0 runs every millisecond
	r.step(t, p)
	assert.Equal(t, model.RGB{R: 2, G: 2, B: 2}, rn.drops.At(0).Color)
	r.advance(1)
	r.step(t, p)
	assert.Equal(t, model.RGB{R: 1, G: 1, B: 1}, rn.drops.At(0).Color)
	r.advance(1)
	f = r.step(t, p)
	assert.Equal(t, 1, rn.Drops())
	assert.Equal(t, 0, lit(f))
	r.advance(1)
	r.step(t, p)
	assert.Equal(t, 0, rn.Drops())
}

func TestRainSpawnsOnFreePositions(t *testing.T) {
	r := newRig(6)
	p := r.build(t, KindRain, Params{
		Colors:     []model.RGB{model.White},
		MaxDrops:   6,
		DecayMs:    1000000,
		Brightness: 255,
	})
	rn := p.(*rain)
	for i := 0; i < 6; i++ {
		r.step(t, p)
	}
	assert.Equal(t, 6, rn.Drops())
	assert.Equal(t, fill(6, model.White), r.frame())
	r.step(t, p)
	assert.Equal(t, 6, rn.Drops())
}

func TestRainFromPot(t *testing.T) {
	assert.Equal(t, RainLimits{MaxDrops: 60, MinGapMs: 0, MaxGapMs: 0, DecayMs: 7}, RainFromPot(255, 60))
	assert.Equal(t, RainLimits{MaxDrops: 0, MinGapMs: 255, MaxGapMs: 510, DecayMs: 0}, RainFromPot(0, 60))
	assert.Equal(t, RainLimits{MaxDrops: 30, MinGapMs: 127, MaxGapMs: 254, DecayMs: 4}, RainFromPot(128, 60))
}

func TestWipeArray(t *testing.T) {
	r := newRig(3)
	k := model.Black
	red, blue := model.Red, model.Blue
	p := r.build(t, KindWipe, Params{Variant: VariantArray, Colors: []model.RGB{red, blue}, DelayMs: 10, Brightness: 255})

	assert.Equal(t, []model.RGB{k, k, k}, r.step(t, p))
	r.advance(10)
	assert.Equal(t, []model.RGB{red, k, k}, r.step(t, p))
	r.advance(5)
	r.step(t, p)
	assert.Equal(t, 2, r.sim.Frames())
	r.advance(5)
	assert.Equal(t, []model.RGB{red, red, k}, r.step(t, p))
	r.advance(10)
	assert.Equal(t, []model.RGB{red, red, red}, r.step(t, p))
	r.advance(10)
	assert.Equal(t, []model.RGB{blue, red, red}, r.step(t, p))
}

func TestWipeRandomStartsWhite(t *testing.T) {
	r := newRig(2)
	p := r.build(t, KindWipe, Params{Variant: VariantRandom, DelayMs: 1, Brightness: 255})
	r.step(t, p)
	r.advance(1)
	r.step(t, p)
	r.advance(1)
	assert.Equal(t, fill(2, model.White), r.step(t, p))
	r.advance(1)
	f := r.step(t, p)
	assert.Equal(t, model.White, f[1])
	assert.NotEqual(t, model.White, f[0])
}

func TestWipePotDelay(t *testing.T) {
	r := newRig(2)
	r.in.PotLevel = 250
	p := r.build(t, KindWipe, Params{Variant: VariantArray, Colors: []model.RGB{model.Red}, PotControl: true, Brightness: 255})
	r.step(t, p)
	r.advance(9)
	r.step(t, p)
	assert.Equal(t, 1, r.sim.Frames())
	r.advance(1)
	r.step(t, p)
	assert.Equal(t, 2, r.sim.Frames())
}

func TestEngineBuildsFreshStateOnSwitch(t *testing.T) {
	r := newRig(1)
	patches := []Patch{
		{Name: "hue", Kind: KindFade, Params: Params{Step: 255, Brightness: 255}},
		{Name: "white", Kind: KindSolid, Params: Params{Colors: []model.RGB{model.White}, Brightness: 255}},
	}
	e, err := NewEngine(r.env, Default(), patches)
	require.NoError(t, err)
	assert.Equal(t, -1, e.Active())
	assert.Equal(t, 2, e.Len())

	require.NoError(t, e.Render(0))
	assert.Equal(t, []model.RGB{model.Red}, r.frame())
	r.advance(1)
	require.NoError(t, e.Render(0))
	assert.Equal(t, []model.RGB{model.Green}, r.frame())

	require.NoError(t, e.Render(1))
	assert.Equal(t, []model.RGB{model.White}, r.frame())
	assert.Equal(t, "white", e.Patch(e.Active()).Name)

	require.NoError(t, e.Render(0))
	assert.Equal(t, []model.RGB{model.Red}, r.frame(), "rebuilt from the first hue")

	assert.ErrorIs(t, e.Render(2), ErrNoPatch)
}

func TestEngineResetRebuilds(t *testing.T) {
	r := newRig(1)
	e, err := NewEngine(r.env, Default(), []Patch{{Kind: KindFade, Params: Params{Step: 255, Brightness: 255}}})
	require.NoError(t, err)
	r.advance(5)
	require.NoError(t, e.Render(0))
	r.advance(1)
	require.NoError(t, e.Render(0))
	assert.Equal(t, []model.RGB{model.Green}, r.frame())

	e.Reset()
	require.NoError(t, e.Render(0))
	assert.Equal(t, []model.RGB{model.Red}, r.frame())
	assert.Equal(t, 0, e.Active())
}

func TestEngineRejectsBadPatches(t *testing.T) {
	r := newRig(1)
	_, err := NewEngine(r.env, Default(), nil)
	assert.ErrorIs(t, err, ErrNoPatch)

	_, err = NewEngine(r.env, Default(), []Patch{{Kind: "sparkle"}})
	assert.ErrorIs(t, err, ErrUnknownKind)

	_, err = NewEngine(r.env, Default(), []Patch{{Kind: KindSwap, Params: Params{Colors: []model.RGB{model.Red}}}})
	assert.ErrorIs(t, err, ErrTooFewColor)

	_, err = NewEngine(r.env, Default(), []Patch{{Kind: KindWipe, Params: Params{Variant: "sideways"}}})
	assert.Error(t, err)

	_, err = NewEngine(r.env, Default(), []Patch{{Kind: KindBreathe, Params: Params{Variant: VariantColor}}})
	assert.ErrorIs(t, err, ErrTooFewColor)
}

func TestRegistryList(t *testing.T) {
	assert.Equal(t, []string{
		KindBreathe, KindDial, KindDistribute, KindFade, KindRain,
		KindRotateRainbow, KindSolid, KindSwap, KindWipe,
	}, Default().List())
}
