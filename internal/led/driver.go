// Package led holds the transports that put encoded frames on a pin.
package led

import (
	"fmt"
	"strings"

	"github.com/coreman2200/stripdimmer/internal/ws2812"
	"github.com/coreman2200/stripdimmer/model"
	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi/spireg"
)

// Driver abstracts an LED output sink. A frame is one Begin, the wire-ordered
// pixel bytes, then End.
type Driver interface {
	Begin() error
	WriteByte(b byte) error
	End() error
	// Close releases resources.
	Close() error
}

const (
	DriverGPIO   = "gpio"
	DriverSPI    = "spi"
	DriverNrzled = "nrzled"
	DriverPWM    = "pwm"
	DriverSim    = "sim"
)

// Options selects and parameterises a Driver.
type Options struct {
	Driver string
	Pixels int
	Order  model.WiringOrder

	// gpio
	Pin     string
	Hz      uint32
	ResetUs int

	// spi, nrzled
	SPIDev   string
	SPISpeed physic.Frequency

	// pwm
	PWMPins [3]string
	PWMFreq physic.Frequency

	Log zerolog.Logger
}

// Open builds the Driver named by o.Driver. The host must already be
// initialised.
func Open(o Options) (Driver, error) {
	switch strings.ToLower(o.Driver) {
	case DriverGPIO:
		p := gpioreg.ByName(o.Pin)
		if p == nil {
			return nil, fmt.Errorf("gpio pin %q not found", o.Pin)
		}
		t, err := ws2812.NewTiming(o.Hz)
		if err != nil {
			return nil, err
		}
		if t.Marginal {
			o.Log.Warn().Int("low_ns", t.LowTimeNs).Msg("zero pulse is only within WS2812B tolerance")
		}
		return NewBitbang(p, t, o.ResetUs), nil
	case DriverSPI:
		port, err := spireg.Open(o.SPIDev)
		if err != nil {
			return nil, fmt.Errorf("open spi %q: %w", o.SPIDev, err)
		}
		d, err := NewSPI(port, o.SPISpeed, o.ResetUs)
		if err != nil {
			_ = port.Close()
			return nil, err
		}
		d.closer = port
		return d, nil
	case DriverNrzled:
		port, err := spireg.Open(o.SPIDev)
		if err != nil {
			return nil, fmt.Errorf("open spi %q: %w", o.SPIDev, err)
		}
		d, err := NewNrzled(port, o.Pixels, o.SPISpeed)
		if err != nil {
			_ = port.Close()
			return nil, err
		}
		d.closer = port
		return d, nil
	case DriverPWM:
		var pins [3]gpio.PinOut
		for i, name := range o.PWMPins {
			p := gpioreg.ByName(name)
			if p == nil {
				return nil, fmt.Errorf("pwm pin %q not found", name)
			}
			pins[i] = p
		}
		d, err := NewPWM(pins, o.Order, o.PWMFreq)
		if err != nil {
			return nil, err
		}
		return d, nil
	case DriverSim, "":
		return NewSim(o.Log), nil
	default:
		return nil, fmt.Errorf("unknown driver %q", o.Driver)
	}
}
