// Package config loads the YAML description of a strip and its patch list.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
	"gopkg.in/yaml.v3"
	"periph.io/x/conn/v3/physic"

	"github.com/coreman2200/stripdimmer/internal/input"
	"github.com/coreman2200/stripdimmer/internal/led"
	"github.com/coreman2200/stripdimmer/internal/pattern"
	"github.com/coreman2200/stripdimmer/internal/strip"
	"github.com/coreman2200/stripdimmer/internal/ws2812"
	"github.com/coreman2200/stripdimmer/model"
)

var (
	ErrNoPatches = errors.New("no patches configured")
	ErrPixels    = errors.New("pixel count out of range")
	ErrColor     = errors.New("bad color")
)

type GPIO struct {
	Pin     string `yaml:"pin"`      // e.g. GPIO18
	ResetUs int    `yaml:"reset_us"` // e.g. 300
}

type SPI struct {
	Dev     string `yaml:"dev"`      // e.g. /dev/spidev0.0
	SpeedHz int    `yaml:"speed_hz"` // e.g. 2400000
	ResetUs int    `yaml:"reset_us"` // e.g. 300
}

type PWM struct {
	Red    string `yaml:"red"`
	Green  string `yaml:"green"`
	Blue   string `yaml:"blue"`
	FreqHz int    `yaml:"freq_hz"`
}

// Power bounds the estimated strip current. BudgetMA 0 disables it.
type Power struct {
	BudgetMA  int `yaml:"budget_ma"`
	ChannelMA int `yaml:"channel_ma"` // full-scale draw of one channel
}

type Input struct {
	// ADC is the SPI device of an MCP3008; empty uses FixedPot.
	ADC     string `yaml:"adc,omitempty"`
	PotChan int    `yaml:"pot_channel"`
	CVChan  int    `yaml:"cv_channel"`
	Gate    string `yaml:"gate,omitempty"`
	Button  string `yaml:"button,omitempty"` // patch advance
	Invert  bool   `yaml:"invert"`
	Lower   uint8  `yaml:"lower"`
	Upper   uint8  `yaml:"upper"`
	Samples int    `yaml:"samples"`

	InvertGate bool `yaml:"invert_gate"`

	// Fixed readings used when no ADC is configured.
	FixedPot uint8 `yaml:"fixed_pot"`
}

// Patch is one entry of the patch list. Colors are hex strings.
type Patch struct {
	Name          string   `yaml:"name"`
	Kind          string   `yaml:"kind"`
	Colors        []string `yaml:"colors,omitempty"`
	Brightness    *uint8   `yaml:"brightness,omitempty"` // default 255
	PotBrightness bool     `yaml:"pot_brightness,omitempty"`
	PotControl    bool     `yaml:"pot_control,omitempty"`
	UseCV         bool     `yaml:"use_cv,omitempty"` // read the CV input in place of the pot
	Step          uint8    `yaml:"step,omitempty"`
	DelayMs       uint32   `yaml:"delay_ms,omitempty"`
	Variant       string   `yaml:"variant,omitempty"`
	Trigger       string   `yaml:"trigger,omitempty"`
	SplitAt       int      `yaml:"split_at,omitempty"`
	SwapFloorMs   uint32   `yaml:"swap_floor_ms,omitempty"`
	MaxDrops      int      `yaml:"max_drops,omitempty"`
	MinGapMs      uint32   `yaml:"min_gap_ms,omitempty"`
	MaxGapMs      uint32   `yaml:"max_gap_ms,omitempty"`
	DecayMs       uint32   `yaml:"decay_ms,omitempty"`
}

type Config struct {
	Driver      string `yaml:"driver"` // "gpio" | "spi" | "nrzled" | "pwm" | "sim"
	Pixels      int    `yaml:"pixels"`
	WiringOrder string `yaml:"wiring_order"`
	CPUHz       uint32 `yaml:"cpu_hz,omitempty"`
	FPS         int    `yaml:"fps"`

	GPIO  GPIO  `yaml:"gpio,omitempty"`
	SPI   SPI   `yaml:"spi,omitempty"`
	PWM   PWM   `yaml:"pwm,omitempty"`
	Input Input `yaml:"input,omitempty"`
	Power Power `yaml:"power,omitempty"`

	Patches []Patch `yaml:"patches"`
}

// Default is a 60 pixel GRB strip on the simulator with one solid patch.
func Default() *Config {
	return &Config{
		Driver:      led.DriverSim,
		Pixels:      60,
		WiringOrder: "GRB",
		CPUHz:       ws2812.DefaultHz,
		FPS:         60,
		GPIO:        GPIO{Pin: "GPIO18", ResetUs: led.DefaultResetUs},
		SPI:         SPI{Dev: "/dev/spidev0.0", SpeedHz: int(led.DefaultSPISpeed / physic.Hertz), ResetUs: led.DefaultResetUs},
		PWM:         PWM{Red: "GPIO12", Green: "GPIO13", Blue: "GPIO18", FreqHz: int(led.DefaultPWMFreq / physic.Hertz)},
		Input:       Input{Samples: 1, FixedPot: 128, PotChan: 0, CVChan: 1},
		Power:       Power{ChannelMA: strip.DefaultChannelMA},
		Patches: []Patch{
			{Name: "white", Kind: pattern.KindSolid, Colors: []string{"#ffffff"}, PotBrightness: true},
		},
	}
}

// Load reads path over Default. Patches and the driver are not inherited: a
// file without a driver key leaves it empty so the command line can pick one.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	c.Driver = ""
	c.Patches = nil
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, err
	}
	return c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

// Validate reports the first configuration error. Nothing touches hardware.
func (c *Config) Validate() error {
	if c.Pixels <= 0 || c.Pixels > math.MaxUint16 {
		return fmt.Errorf("%w: %d", ErrPixels, c.Pixels)
	}
	for _, ch := range []int{c.Input.PotChan, c.Input.CVChan} {
		if ch < 0 || ch > 7 {
			return fmt.Errorf("input: adc channel %d out of range", ch)
		}
	}
	if c.Power.BudgetMA < 0 || c.Power.ChannelMA < 0 {
		return errors.New("power: negative current")
	}
	if _, err := model.ParseWiringOrder(c.WiringOrder); err != nil {
		return err
	}
	switch strings.ToLower(c.Driver) {
	case led.DriverGPIO:
		if _, err := ws2812.NewTiming(c.CPUHz); err != nil {
			return err
		}
		if c.GPIO.Pin == "" {
			return errors.New("gpio: pin is required")
		}
	case led.DriverSPI, led.DriverNrzled:
		if c.SPI.Dev == "" {
			return errors.New("spi: dev is required")
		}
	case led.DriverPWM:
		for _, p := range []string{c.PWM.Red, c.PWM.Green, c.PWM.Blue} {
			if !led.PWMCapable(p) {
				return fmt.Errorf("pwm: %w: %q", led.ErrNotPWM, p)
			}
		}
	case led.DriverSim, "":
	default:
		return fmt.Errorf("unknown driver %q", c.Driver)
	}
	_, err := c.PatchList(pattern.Default())
	return err
}

// LED converts the driver section to led.Options.
func (c *Config) LED() (led.Options, error) {
	order, err := model.ParseWiringOrder(c.WiringOrder)
	if err != nil {
		return led.Options{}, err
	}
	o := led.Options{
		Driver:   c.Driver,
		Pixels:   c.Pixels,
		Order:    order,
		Pin:      c.GPIO.Pin,
		Hz:       c.CPUHz,
		ResetUs:  c.GPIO.ResetUs,
		SPIDev:   c.SPI.Dev,
		SPISpeed: physic.Frequency(c.SPI.SpeedHz) * physic.Hertz,
		PWMPins:  [3]string{c.PWM.Red, c.PWM.Green, c.PWM.Blue},
		PWMFreq:  physic.Frequency(c.PWM.FreqHz) * physic.Hertz,
	}
	if d := strings.ToLower(c.Driver); d == led.DriverSPI || d == led.DriverNrzled {
		o.ResetUs = c.SPI.ResetUs
	}
	if o.Hz == 0 {
		o.Hz = ws2812.DefaultHz
	}
	return o, nil
}

// Conditioning is the pot shaping of the input section.
func (c *Config) Conditioning() input.Conditioning {
	return input.Conditioning{
		Samples: c.Input.Samples,
		Invert:  c.Input.Invert,
		Lower:   c.Input.Lower,
		Upper:   c.Input.Upper,
	}
}

func (c *Config) Budget() strip.Budget {
	return strip.Budget{BudgetMA: c.Power.BudgetMA, ChannelMA: c.Power.ChannelMA}
}

// PatchList converts and checks every patch against reg.
func (c *Config) PatchList(reg *pattern.Registry) ([]pattern.Patch, error) {
	if len(c.Patches) == 0 {
		return nil, ErrNoPatches
	}
	out := make([]pattern.Patch, 0, len(c.Patches))
	for i, p := range c.Patches {
		pp, err := p.convert()
		if err == nil {
			err = reg.Check(pp.Kind, pp.Params)
		}
		if err != nil {
			return nil, fmt.Errorf("patch %d (%s): %w", i, p.Name, err)
		}
		out = append(out, pp)
	}
	return out, nil
}

func (p Patch) convert() (pattern.Patch, error) {
	colors, err := ParseColors(p.Colors)
	if err != nil {
		return pattern.Patch{}, err
	}
	trig, err := pattern.ParseTrigger(p.Trigger)
	if err != nil {
		return pattern.Patch{}, err
	}
	bright := uint8(255)
	if p.Brightness != nil {
		bright = *p.Brightness
	}
	kind := strings.ToLower(p.Kind)
	name := p.Name
	if name == "" {
		name = kind
	}
	return pattern.Patch{
		Name: name,
		Kind: kind,
		Params: pattern.Params{
			Colors:        colors,
			Brightness:    bright,
			PotBrightness: p.PotBrightness,
			PotControl:    p.PotControl,
			UseCV:         p.UseCV,
			Step:          p.Step,
			DelayMs:       p.DelayMs,
			Variant:       strings.ToLower(p.Variant),
			Trigger:       trig,
			SplitAt:       p.SplitAt,
			SwapFloorMs:   p.SwapFloorMs,
			MaxDrops:      p.MaxDrops,
			MinGapMs:      p.MinGapMs,
			MaxGapMs:      p.MaxGapMs,
			DecayMs:       p.DecayMs,
		},
	}, nil
}

// ParseColors reads "#rrggbb" (or "#rgb") strings.
func ParseColors(in []string) ([]model.RGB, error) {
	out := make([]model.RGB, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if !strings.HasPrefix(s, "#") {
			s = "#" + s
		}
		c, err := colorful.Hex(s)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %v", ErrColor, s, err)
		}
		r, g, b := c.RGB255()
		out = append(out, model.RGB{R: r, G: g, B: b})
	}
	return out, nil
}
