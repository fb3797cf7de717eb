package dispatch

import (
	"bytes"
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"

	"github.com/coreman2200/stripdimmer/internal/clock"
	"github.com/coreman2200/stripdimmer/internal/input"
	"github.com/coreman2200/stripdimmer/internal/led"
	"github.com/coreman2200/stripdimmer/internal/pattern"
	"github.com/coreman2200/stripdimmer/internal/strip"
	"github.com/coreman2200/stripdimmer/model"
)

type fakeButton struct{ down bool }

func (b *fakeButton) Pressed() bool { return b.down }

type brokenTx struct{}

func (brokenTx) Begin() error         { return nil }
func (brokenTx) WriteByte(byte) error { return errors.New("line stuck") }
func (brokenTx) End() error           { return nil }

func patches() []pattern.Patch {
	return []pattern.Patch{
		{Name: "red", Kind: pattern.KindSolid, Params: pattern.Params{Colors: []model.RGB{model.Red}, Brightness: 255}},
		{Name: "green", Kind: pattern.KindSolid, Params: pattern.Params{Colors: []model.RGB{model.Green}, Brightness: 255}},
		{Name: "blue", Kind: pattern.KindSolid, Params: pattern.Params{Colors: []model.RGB{model.Blue}, Brightness: 255}},
	}
}

func newEngine(t *testing.T, tx strip.Transmitter, clk clock.Source) *pattern.Engine {
	t.Helper()
	env := &pattern.Env{
		Strip: strip.New(tx, model.OrderRGB, 4),
		Clock: clk,
		Input: &input.Fixed{},
		Rand:  rand.New(rand.NewSource(1)),
	}
	e, err := pattern.NewEngine(env, pattern.Default(), patches())
	require.NoError(t, err)
	return e
}

func TestButtonAdvancesOnRelease(t *testing.T) {
	sim := led.NewSim(zerolog.Nop())
	clk := clock.NewManual(0)
	btn := &fakeButton{}
	l := New(newEngine(t, sim, clk), btn, clk, 0, zerolog.Nop())

	require.NoError(t, l.Frame())
	assert.Equal(t, []byte{255, 0, 0}, sim.Frame()[:3])

	btn.down = true
	for i := 0; i < 5; i++ {
		require.NoError(t, l.Frame())
		clk.Advance(10 * time.Millisecond)
	}
	assert.Equal(t, 0, l.Current(), "press alone does not advance")

	btn.down = false
	for i := 0; i < 5; i++ {
		require.NoError(t, l.Frame())
		clk.Advance(10 * time.Millisecond)
	}
	assert.Equal(t, 1, l.Current())
	assert.Equal(t, []byte{0, 255, 0}, sim.Frame()[:3])
}

func TestBounceIsIgnored(t *testing.T) {
	clk := clock.NewManual(0)
	btn := &fakeButton{}
	l := New(newEngine(t, led.NewSim(zerolog.Nop()), clk), btn, clk, 0, zerolog.Nop())

	for i := 0; i < 20; i++ {
		btn.down = !btn.down
		require.NoError(t, l.Frame())
		clk.Advance(5 * time.Millisecond)
	}
	assert.Equal(t, 0, l.Current())
}

func TestSelectWraps(t *testing.T) {
	clk := clock.NewManual(0)
	l := New(newEngine(t, led.NewSim(zerolog.Nop()), clk), nil, clk, 0, zerolog.Nop())
	l.Select(4)
	assert.Equal(t, 1, l.Current())
	l.Select(-1)
	assert.Equal(t, 2, l.Current())
	assert.Equal(t, 0, l.Next())
}

func TestRenderErrorKeepsRunning(t *testing.T) {
	var buf bytes.Buffer
	clk := clock.NewManual(0)
	l := New(newEngine(t, brokenTx{}, clk), nil, clk, 0, zerolog.New(&buf))

	assert.Error(t, l.Frame())
	assert.Error(t, l.Frame())
	assert.Equal(t, uint64(2), l.Frames())
	assert.Contains(t, buf.String(), "render failed")
	assert.Contains(t, buf.String(), "line stuck")
}

func TestRunStopsOnCancel(t *testing.T) {
	sim := led.NewSim(zerolog.Nop())
	clk := clock.NewManual(0)
	l := New(newEngine(t, sim, clk), nil, clk, 200, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err := l.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Greater(t, l.Frames(), uint64(0))
	assert.Equal(t, int(l.Frames()), sim.Frames())
}

func TestPinButton(t *testing.T) {
	p := &gpiotest.Pin{N: "GPIO17", Num: 17}
	b, err := NewPinButton(p)
	require.NoError(t, err)
	assert.Equal(t, gpio.PullUp, p.P)
	assert.False(t, b.Pressed())
	p.L = gpio.Low
	assert.True(t, b.Pressed())
}

type calRig struct {
	sim *led.Sim
	clk *clock.Manual
	in  *input.Fixed
	s   *strip.Strip
	btn *fakeButton
	l   *Looper
}

func newCalRig(t *testing.T, pixels int) *calRig {
	t.Helper()
	r := &calRig{
		sim: led.NewSim(zerolog.Nop()),
		clk: clock.NewManual(0),
		in:  &input.Fixed{},
		btn: &fakeButton{},
	}
	r.s = strip.New(r.sim, model.OrderRGB, pixels)
	env := &pattern.Env{Strip: r.s, Clock: r.clk, Input: r.in, Rand: rand.New(rand.NewSource(1))}
	e, err := pattern.NewEngine(env, pattern.Default(), patches())
	require.NoError(t, err)
	r.l = New(e, r.btn, r.clk, 0, zerolog.Nop())
	return r
}

// run renders n frames 10ms apart.
func (r *calRig) run(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, r.l.Frame())
		r.clk.Advance(10 * time.Millisecond)
	}
}

func (r *calRig) pixel(i int) []byte { return r.sim.Frame()[i*3 : i*3+3] }

func TestHoldCalibratesLength(t *testing.T) {
	r := newCalRig(t, 10)
	r.l.Calibrate(r.s, r.in)
	r.in.PotLevel = 255

	r.btn.down = true
	r.run(t, 400)
	assert.False(t, r.l.Calibrating(), "4s is not long enough")
	r.run(t, 200)
	require.True(t, r.l.Calibrating())

	white := model.ApplyBrightness(model.White, calibrateBrightness)
	red := model.ApplyBrightness(model.Red, calibrateBrightness)
	assert.Equal(t, 10, r.s.Pixels())
	assert.Equal(t, []byte{white.R, white.G, white.B}, r.pixel(0))
	assert.Equal(t, []byte{red.R, red.G, red.B}, r.pixel(9))

	r.in.PotLevel = 0
	r.run(t, 1)
	assert.Equal(t, 1, r.s.Pixels())
	assert.Equal(t, []byte{red.R, red.G, red.B}, r.pixel(0))
	assert.Equal(t, []byte{0, 0, 0}, r.pixel(9))
	assert.Len(t, r.sim.Frame(), 30)

	r.in.PotLevel = 128
	r.btn.down = false
	r.run(t, 5)
	assert.False(t, r.l.Calibrating())
	assert.Equal(t, 0, r.l.Current(), "release after calibration keeps the patch")
	assert.Equal(t, 5, r.s.Pixels())
	assert.Equal(t, []byte{255, 0, 0}, r.pixel(4))
	assert.Equal(t, []byte{0, 0, 0}, r.pixel(5))

	// a short press still advances
	r.btn.down = true
	r.run(t, 5)
	r.btn.down = false
	r.run(t, 5)
	assert.Equal(t, 1, r.l.Current())
	assert.Equal(t, 5, r.s.Pixels())
}

func TestLongHoldWithoutCalibration(t *testing.T) {
	r := newCalRig(t, 4)
	r.btn.down = true
	r.run(t, 600)
	assert.False(t, r.l.Calibrating())
	r.btn.down = false
	r.run(t, 5)
	assert.Equal(t, 1, r.l.Current())
	assert.Equal(t, 4, r.s.Pixels())
}

func TestCalibrationWithPinButton(t *testing.T) {
	p := &gpiotest.Pin{N: "GPIO17", Num: 17}
	b, err := NewPinButton(p)
	require.NoError(t, err)

	r := newCalRig(t, 8)
	r.l.button = b
	r.l.Calibrate(r.s, r.in)
	r.in.PotLevel = 64

	p.L = gpio.Low
	r.run(t, 510)
	require.True(t, r.l.Calibrating())
	p.L = gpio.High
	r.run(t, 5)
	assert.False(t, r.l.Calibrating())
	// 1 + 64*7/255
	assert.Equal(t, 2, r.s.Pixels())
	assert.Equal(t, 0, r.l.Current())
}
