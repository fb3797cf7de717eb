package ws2812

import "errors"

var (
	ErrNoFrame   = errors.New("write outside of frame")
	ErrFrameOpen = errors.New("frame already open")
)

// Port is an 8-bit output register shared by the data pin and its
// neighbours.
type Port interface {
	Read() uint8
	Write(v uint8)
}

// Spinner burns a number of clock cycles.
type Spinner interface {
	Spin(cycles int)
}

// State is an opaque saved interrupt state.
type State uint32

// Masker disables preemption for the length of a frame. Restore must put back
// exactly the state Disable returned.
type Masker interface {
	Disable() State
	Restore(s State)
}

// Encoder emits frames on a single pin of a Port.
type Encoder struct {
	port   Port
	spin   Spinner
	mask   Masker
	timing Timing
	pin    uint8

	resetCycles int

	open   bool
	saved  State
	hi, lo uint8
}

// NewEncoder drives the bits set in pin. resetUs is the latch hold after each
// frame.
func NewEncoder(port Port, spin Spinner, mask Masker, pin uint8, t Timing, resetUs int) *Encoder {
	return &Encoder{
		port:        port,
		spin:        spin,
		mask:        mask,
		timing:      t,
		pin:         pin,
		resetCycles: t.Cycles(resetUs),
	}
}

func (e *Encoder) Timing() Timing { return e.timing }

// Begin opens a frame: interrupts are disabled and the high/low masks are
// taken from the current port value so neighbouring pins keep their level.
func (e *Encoder) Begin() error {
	if e.open {
		return ErrFrameOpen
	}
	e.saved = e.mask.Disable()
	cur := e.port.Read()
	e.lo = ^e.pin & cur
	e.hi = e.pin | cur
	e.open = true
	return nil
}

func (e *Encoder) WriteByte(b byte) error {
	if !e.open {
		return ErrNoFrame
	}
	e.Transmit([]byte{b}, e.hi, e.lo)
	return nil
}

// End restores the interrupt state saved by Begin and holds the line low for
// the latch interval.
func (e *Encoder) End() error {
	if !e.open {
		return ErrNoFrame
	}
	e.open = false
	e.mask.Restore(e.saved)
	if e.resetCycles > 0 {
		e.spin.Spin(e.resetCycles)
	}
	return nil
}

// Transmit writes data MSB first. The caller owns the critical section.
func (e *Encoder) Transmit(data []byte, hi, lo uint8) {
	t := e.timing
	for _, b := range data {
		for bit := 0; bit < 8; bit++ {
			one := b&0x80 != 0
			b <<= 1

			e.port.Write(hi)
			e.spin.Spin(t.ZeroHigh)
			if !one {
				e.port.Write(lo)
			}
			e.spin.Spin(t.OneHigh - t.ZeroHigh)
			if one {
				e.port.Write(lo)
			}
			e.spin.Spin(t.Period - t.OneHigh)
		}
	}
}
