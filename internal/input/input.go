// Package input samples the external controls: the pot, the CV input and the
// gate.
package input

import (
	"fmt"

	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/gpio"
)

// Source is a snapshot of the control inputs, read once per call.
type Source interface {
	// Pot is the normalised dial position.
	Pot() uint8
	CV() uint8
	Gate() bool
}

// Fixed returns constant readings. Fields may be changed between frames by
// the goroutine that owns it.
type Fixed struct {
	PotLevel  uint8
	CVLevel   uint8
	GateLevel bool
}

func (f *Fixed) Pot() uint8 { return f.PotLevel }
func (f *Fixed) CV() uint8  { return f.CVLevel }
func (f *Fixed) Gate() bool { return f.GateLevel }

// Conditioning shapes raw pot readings.
type Conditioning struct {
	// Samples > 1 averages that many reads per call.
	Samples int
	Invert  bool
	// Readings at or below Lower read as 0, at or above Upper as 255.
	// 0 and 255 disable them.
	Lower uint8
	Upper uint8
}

// Conditioned applies Conditioning to the pot of another Source.
type Conditioned struct {
	src Source
	c   Conditioning
}

func Condition(src Source, c Conditioning) *Conditioned {
	if c.Upper == 0 {
		c.Upper = 255
	}
	return &Conditioned{src: src, c: c}
}

func (c *Conditioned) Pot() uint8 {
	var v uint8
	if n := c.c.Samples; n > 1 {
		sum := 0
		for i := 0; i < n; i++ {
			sum += int(c.src.Pot())
		}
		v = uint8((sum + n/2) / n)
	} else {
		v = c.src.Pot()
	}
	if c.c.Invert {
		v = ^v
	}
	if c.c.Lower > 0 && v <= c.c.Lower {
		return 0
	}
	if c.c.Upper < 255 && v >= c.c.Upper {
		return 255
	}
	return v
}

func (c *Conditioned) CV() uint8  { return c.src.CV() }
func (c *Conditioned) Gate() bool { return c.src.Gate() }

// Hardware reads the pot and CV from ADC pins and the gate from a gpio. Any
// pin may be nil; it then reads from Fallback, or as zero without one. A
// failed read repeats the previous value.
type Hardware struct {
	PotPin  analog.PinADC
	CVPin   analog.PinADC
	GatePin gpio.PinIn
	// InvertGate treats a low level as an active gate.
	InvertGate bool
	Fallback   Source

	pot, cv uint8
}

func (h *Hardware) Pot() uint8 {
	if h.PotPin == nil && h.Fallback != nil {
		return h.Fallback.Pot()
	}
	h.pot = read(h.PotPin, h.pot)
	return h.pot
}

func (h *Hardware) CV() uint8 {
	if h.CVPin == nil && h.Fallback != nil {
		return h.Fallback.CV()
	}
	h.cv = read(h.CVPin, h.cv)
	return h.cv
}

// BindGate configures p as a plain input, leaving its pull as wired, and
// reads the gate from it. On error the gate is left unbound.
func (h *Hardware) BindGate(p gpio.PinIn) error {
	if err := p.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
		return fmt.Errorf("gate %s: %w", p, err)
	}
	h.GatePin = p
	return nil
}

func (h *Hardware) Gate() bool {
	if h.GatePin == nil {
		return h.Fallback != nil && h.Fallback.Gate()
	}
	return (h.GatePin.Read() == gpio.High) != h.InvertGate
}

// read scales a sample to 0..255 against the pin's full range.
func read(p analog.PinADC, prev uint8) uint8 {
	if p == nil {
		return 0
	}
	s, err := p.Read()
	if err != nil {
		return prev
	}
	lo, hi := p.Range()
	span := int64(hi.Raw) - int64(lo.Raw)
	if span <= 0 {
		return prev
	}
	v := (int64(s.Raw) - int64(lo.Raw)) * 255 / span
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	}
	return uint8(v)
}
