// Package ws2812 encodes bytes into the self-clocked NRZ waveform understood
// by WS2811/WS2812/WS2812B/SK6812 pixels.
package ws2812

import (
	"errors"
	"fmt"
)

// Target windows in nanoseconds.
const (
	ZeroPulseNs   = 350
	OnePulseNs    = 900
	TotalPeriodNs = 1250
)

// Cycles consumed by the emitting loop itself, independent of padding.
const (
	FixedLow   = 3
	FixedHigh  = 6
	FixedTotal = 10
)

// Limits on the shortest high pulse (a logical 0) the hardware tolerates.
const (
	MaxLowTimeNs      = 550
	MarginalLowTimeNs = 450
)

// DefaultHz is the reference controller clock.
const DefaultHz = 16000000

const (
	defZeroCycles  = ((DefaultHz / 1000) * ZeroPulseNs) / 1000000
	defOneCycles   = ((DefaultHz/1000)*OnePulseNs + 500000) / 1000000
	defTotalCycles = ((DefaultHz/1000)*TotalPeriodNs + 500000) / 1000000

	defW1 = defZeroCycles - FixedLow

	// Uses defW1 unclamped; the second assertion below keeps it >= 0.
	defLowTimeNs = ((defW1 + FixedLow) * 1000000) / (DefaultHz / 1000)
)

// Refuses to compile if DefaultHz cannot produce a short enough zero pulse.
var _ [MaxLowTimeNs - defLowTimeNs]struct{}

var _ [defW1]struct{}

var ErrClockTooSlow = errors.New("clock too slow for ws2812 timing")

// Timing holds the cycle budget of one bit for a given clock.
type Timing struct {
	Hz uint32

	// Padding cycles inserted after the rising edge, between the two
	// possible falling edges, and at the end of the period.
	W1, W2, W3 int

	// Absolute cycle offsets from the rising edge.
	ZeroHigh int
	OneHigh  int
	Period   int

	LowTimeNs int

	// Marginal is set when the zero pulse only meets WS2812B tolerances.
	Marginal bool
}

func pad(n int) int {
	if n > 0 {
		return n
	}
	return 0
}

// NewTiming derives the padding for hz with the same integer arithmetic the
// compile-time constants use. Clocks that cannot meet MaxLowTimeNs return
// ErrClockTooSlow.
func NewTiming(hz uint32) (Timing, error) {
	khz := int64(hz / 1000)
	if khz == 0 {
		return Timing{}, fmt.Errorf("%w: %d Hz", ErrClockTooSlow, hz)
	}

	zero := int((khz * ZeroPulseNs) / 1000000)
	one := int((khz*OnePulseNs + 500000) / 1000000)
	total := int((khz*TotalPeriodNs + 500000) / 1000000)

	w1 := zero - FixedLow
	w2 := one - FixedHigh - w1
	w3 := total - FixedTotal - w1 - w2

	t := Timing{Hz: hz, W1: pad(w1), W2: pad(w2), W3: pad(w3)}
	t.LowTimeNs = int((int64(t.W1+FixedLow) * 1000000) / khz)
	t.ZeroHigh = t.W1 + FixedLow
	t.OneHigh = t.W1 + t.W2 + FixedHigh
	t.Period = t.W1 + t.W2 + t.W3 + FixedTotal

	if t.LowTimeNs > MaxLowTimeNs {
		return t, fmt.Errorf("%w: %d Hz gives a %d ns zero pulse (max %d)", ErrClockTooSlow, hz, t.LowTimeNs, MaxLowTimeNs)
	}
	t.Marginal = t.LowTimeNs > MarginalLowTimeNs
	return t, nil
}

// Default is the timing of DefaultHz.
func Default() Timing {
	t, _ := NewTiming(DefaultHz)
	return t
}

// Cycles converts a duration in microseconds to clock cycles.
func (t Timing) Cycles(us int) int {
	return int(int64(us) * int64(t.Hz) / 1000000)
}

// Nanos converts clock cycles to nanoseconds.
func (t Timing) Nanos(cycles int) int64 {
	if t.Hz == 0 {
		return 0
	}
	return int64(cycles) * 1000000000 / int64(t.Hz)
}
