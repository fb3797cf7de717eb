// Package dispatch runs the frame loop: it renders the selected patch once per
// tick and advances the selection when the patch button is released. Holding
// the button for CalibrateHoldMs instead lets the pot set the strip length.
package dispatch

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/gpio"

	"github.com/coreman2200/stripdimmer/internal/clock"
	"github.com/coreman2200/stripdimmer/internal/input"
	"github.com/coreman2200/stripdimmer/internal/pattern"
	"github.com/coreman2200/stripdimmer/internal/strip"
	"github.com/coreman2200/stripdimmer/model"
)

const (
	DFLT_FPS = 60
	// DebounceMs is how long the button must hold a level before it counts.
	DebounceMs = 30
	// CalibrateHoldMs is how long the button is held to start calibration.
	CalibrateHoldMs = 5000
	// statsEvery is the number of frames between frame-rate log lines.
	statsEvery = 600

	calibrateBrightness = 64
)

// Button reports whether the patch button is held down.
type Button interface {
	Pressed() bool
}

// PinButton is a push button to ground on a pulled-up gpio.
type PinButton struct {
	Pin gpio.PinIn
}

// NewPinButton enables the pull-up on pin.
func NewPinButton(pin gpio.PinIn) (*PinButton, error) {
	if err := pin.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return nil, err
	}
	return &PinButton{Pin: pin}, nil
}

func (b *PinButton) Pressed() bool { return b.Pin.Read() == gpio.Low }

type edge int

const (
	noEdge edge = iota
	pressed
	released
)

// debouncer accepts a new level once it has been stable for DebounceMs.
type debouncer struct {
	stable  bool
	pending bool
	since   clock.Timer
}

// update returns the debounced edge, if any.
func (d *debouncer) update(raw bool) edge {
	if raw != d.pending {
		d.pending = raw
		d.since.Reset()
		return noEdge
	}
	if raw == d.stable || !d.since.Due(DebounceMs) {
		return noEdge
	}
	d.stable = raw
	if raw {
		return pressed
	}
	return released
}

type Looper struct {
	engine *pattern.Engine
	button Button
	clk    clock.Source
	fps    int
	log    zerolog.Logger

	current  int
	debounce debouncer
	held     clock.Timer
	frames   uint64
	errors   uint64

	// calibration; strip is nil when disabled
	strip       *strip.Strip
	pot         input.Source
	calibrating bool
}

// New builds a Looper starting at patch 0. button may be nil.
func New(engine *pattern.Engine, button Button, clk clock.Source, fps int, log zerolog.Logger) *Looper {
	if fps <= 0 {
		fps = DFLT_FPS
	}
	return &Looper{
		engine:   engine,
		button:   button,
		clk:      clk,
		fps:      fps,
		log:      log,
		debounce: debouncer{since: clock.NewTimer(clk)},
		held:     clock.NewTimer(clk),
	}
}

// Calibrate enables strip length calibration on s, with the length read
// from pot while the button stays held.
func (l *Looper) Calibrate(s *strip.Strip, pot input.Source) {
	l.strip, l.pot = s, pot
}

// Calibrating reports whether the loop is showing the calibration frame.
func (l *Looper) Calibrating() bool { return l.calibrating }

// Current is the id of the selected patch.
func (l *Looper) Current() int { return l.current }

// Select jumps to patch id, wrapping out of range values.
func (l *Looper) Select(id int) {
	n := l.engine.Len()
	l.current = ((id % n) + n) % n
}

// Next advances to the following patch and returns its id.
func (l *Looper) Next() int {
	l.Select(l.current + 1)
	p := l.engine.Patch(l.current)
	l.log.Info().Int("patch", l.current).Str("name", p.Name).Str("kind", p.Kind).Msg("patch selected")
	return l.current
}

// Frame runs one iteration: poll the button, then render. Render errors are
// logged and returned; the selection is unaffected.
func (l *Looper) Frame() error {
	if l.button != nil {
		l.poll()
	}
	var err error
	if l.calibrating {
		err = l.calibrationFrame()
	} else {
		err = l.engine.Render(l.current)
	}
	l.frames++
	if err != nil {
		l.errors++
		l.log.Error().Err(err).Int("patch", l.current).Msg("render failed")
	}
	return err
}

// poll advances the patch on a release. A release that ends calibration
// keeps the patch.
func (l *Looper) poll() {
	switch l.debounce.update(l.button.Pressed()) {
	case pressed:
		l.held.Reset()
	case released:
		if l.calibrating {
			l.calibrating = false
			l.engine.Reset()
			l.log.Info().Int("pixels", l.strip.Pixels()).Int("max", l.strip.Max()).Msg("strip length set")
			return
		}
		l.Next()
		return
	}
	if l.strip != nil && l.debounce.stable && !l.calibrating && l.held.Due(CalibrateHoldMs) {
		l.calibrating = true
		l.log.Info().Msg("calibrating strip length")
	}
}

// calibrationFrame lights the pot-selected length in white with the last
// pixel red.
func (l *Looper) calibrationFrame() error {
	n := 1 + int(l.pot.Pot())*(l.strip.Max()-1)/255
	n = l.strip.SetPixels(n)
	return l.strip.Segments(model.Split(n, n-1, model.White, model.Red), calibrateBrightness)
}

// Run ticks at the configured frame rate until ctx is done.
func (l *Looper) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Second / time.Duration(l.fps))
	defer ticker.Stop()

	start := time.Now()
	var last uint64
	for {
		select {
		case <-ctx.Done():
			l.log.Info().Uint64("frames", l.frames).Uint64("errors", l.errors).Msg("loop stopped")
			return ctx.Err()
		case <-ticker.C:
			_ = l.Frame()
			if l.frames-last >= statsEvery {
				el := time.Since(start)
				l.log.Debug().
					Float64("fps", float64(l.frames-last)/el.Seconds()).
					Float64("render_ms", l.engine.Last.RenderMS).
					Msg("frame stats")
				last, start = l.frames, time.Now()
			}
		}
	}
}

// Frames is the number of frames rendered so far.
func (l *Looper) Frames() uint64 { return l.frames }
