package led

import (
	"runtime"
	"runtime/debug"
	"time"

	"github.com/coreman2200/stripdimmer/internal/ws2812"
	"periph.io/x/conn/v3/gpio"
)

// PinPort presents a single gpio pin as bit 0 of an 8-bit output register.
type PinPort struct {
	pin   gpio.PinOut
	value uint8
	err   error
}

const pinBit uint8 = 1

func NewPinPort(pin gpio.PinOut) *PinPort {
	return &PinPort{pin: pin}
}

func (p *PinPort) Read() uint8 { return p.value }

func (p *PinPort) Write(v uint8) {
	if (v^p.value)&pinBit != 0 {
		if err := p.pin.Out(gpio.Level(v&pinBit != 0)); err != nil && p.err == nil {
			p.err = err
		}
	}
	p.value = v
}

// Err returns and clears the first pin error since the last call.
func (p *PinPort) Err() error {
	err := p.err
	p.err = nil
	return err
}

// BusyWait spins on the monotonic clock.
type BusyWait struct {
	Timing ws2812.Timing
}

func (b BusyWait) Spin(cycles int) {
	if cycles <= 0 {
		return
	}
	deadline := time.Now().Add(time.Duration(b.Timing.Nanos(cycles)))
	for time.Now().Before(deadline) {
	}
}

// GCMasker is the host critical section: the goroutine is pinned to its
// thread and the collector is switched off until Restore.
type GCMasker struct{}

func (GCMasker) Disable() ws2812.State {
	runtime.LockOSThread()
	prev := debug.SetGCPercent(-1)
	return ws2812.State(uint32(int32(prev)))
}

func (GCMasker) Restore(s ws2812.State) {
	debug.SetGCPercent(int(int32(uint32(s))))
	runtime.UnlockOSThread()
}

// Bitbang drives the data line directly from a gpio pin.
type Bitbang struct {
	port *PinPort
	enc  *ws2812.Encoder
}

func NewBitbang(pin gpio.PinOut, t ws2812.Timing, resetUs int) *Bitbang {
	port := NewPinPort(pin)
	return &Bitbang{
		port: port,
		enc:  ws2812.NewEncoder(port, BusyWait{Timing: t}, GCMasker{}, pinBit, t, resetUs),
	}
}

func (b *Bitbang) Begin() error { return b.enc.Begin() }

func (b *Bitbang) WriteByte(v byte) error { return b.enc.WriteByte(v) }

func (b *Bitbang) End() error {
	if err := b.enc.End(); err != nil {
		return err
	}
	return b.port.Err()
}

func (b *Bitbang) Close() error {
	b.port.value = 0
	return b.port.pin.Out(gpio.Low)
}
