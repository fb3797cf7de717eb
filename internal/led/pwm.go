package led

import (
	"errors"
	"fmt"
	"strings"

	"github.com/coreman2200/stripdimmer/internal/ws2812"
	"github.com/coreman2200/stripdimmer/model"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

var ErrNotPWM = errors.New("pin has no hardware PWM")

// Pins routed to a hardware PWM channel on the Raspberry Pi header.
var pwmPins = map[string]bool{
	"GPIO12": true,
	"GPIO13": true,
	"GPIO18": true,
	"GPIO19": true,
}

// PWMCapable reports whether name is a hardware PWM pin. Bare numbers are
// accepted as GPIO numbers.
func PWMCapable(name string) bool {
	n := strings.ToUpper(strings.TrimSpace(name))
	if !strings.HasPrefix(n, "GPIO") {
		n = "GPIO" + n
	}
	return pwmPins[n]
}

const DefaultPWMFreq = 1 * physic.KiloHertz

// PWM drives a non-addressable RGB strip from three PWM pins. Only the first
// pixel of each frame is used.
type PWM struct {
	pins  [3]gpio.PinOut
	order model.WiringOrder
	freq  physic.Frequency

	rgb  [3]uint8
	n    int
	open bool
}

// NewPWM takes the red, green and blue pins in that order. order is the
// wiring order frames are written in, so bytes can be mapped back to
// channels.
func NewPWM(pins [3]gpio.PinOut, order model.WiringOrder, freq physic.Frequency) (*PWM, error) {
	for _, p := range pins {
		if !PWMCapable(p.Name()) {
			return nil, fmt.Errorf("%w: %s", ErrNotPWM, p.Name())
		}
	}
	if !order.Valid() {
		return nil, model.ErrWiringOrder
	}
	if freq <= 0 {
		freq = DefaultPWMFreq
	}
	return &PWM{pins: pins, order: order, freq: freq}, nil
}

func (p *PWM) Begin() error {
	if p.open {
		return ws2812.ErrFrameOpen
	}
	p.open = true
	p.n = 0
	return nil
}

func (p *PWM) WriteByte(b byte) error {
	if !p.open {
		return ws2812.ErrNoFrame
	}
	if p.n < 3 {
		p.rgb[p.order[p.n]] = b
	}
	p.n++
	return nil
}

func (p *PWM) End() error {
	if !p.open {
		return ws2812.ErrNoFrame
	}
	p.open = false
	if p.n < 3 {
		return nil
	}
	return p.set(p.rgb)
}

func (p *PWM) set(rgb [3]uint8) error {
	for i, pin := range p.pins {
		duty := gpio.Duty(uint64(rgb[i]) * uint64(gpio.DutyMax) / 255)
		if err := pin.PWM(duty, p.freq); err != nil {
			return fmt.Errorf("pwm %s: %w", pin.Name(), err)
		}
	}
	return nil
}

func (p *PWM) Close() error {
	var err error
	for _, pin := range p.pins {
		if e := pin.Out(gpio.Low); e != nil && err == nil {
			err = e
		}
	}
	return err
}
