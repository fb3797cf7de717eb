package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/coreman2200/stripdimmer/internal/clock"
	"github.com/coreman2200/stripdimmer/internal/config"
	"github.com/coreman2200/stripdimmer/internal/dispatch"
	"github.com/coreman2200/stripdimmer/internal/input"
	"github.com/coreman2200/stripdimmer/internal/led"
	"github.com/coreman2200/stripdimmer/internal/pattern"
	"github.com/coreman2200/stripdimmer/internal/strip"
)

func main() {
	// ---- Flags (config.yaml wins where it sets a value) ----
	var (
		configPath  = flag.String("config", "config.yaml", "path to config.yaml")
		driver      = flag.String("driver", "", "driver: gpio | spi | nrzled | pwm | sim")
		pixels      = flag.Int("pixels", 0, "number of pixels on the strip")
		order       = flag.String("order", "", "wiring order (e.g. GRB, RGB)")
		fps         = flag.Int("fps", 0, "target frames per second")
		patch       = flag.Int("patch", 0, "patch to start on")
		simOnly     = flag.Bool("sim-only", false, "force simulation (no hardware output)")
		writeConfig = flag.Bool("write-config", false, "write the default config to -config and exit")
		list        = flag.Bool("list", false, "list pattern kinds and exit")
		verbose     = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	// ---- Logging ----
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	reg := pattern.Default()
	if *list {
		fmt.Println(strings.Join(reg.List(), "\n"))
		return
	}
	if *writeConfig {
		if err := config.Save(*configPath, config.Default()); err != nil {
			log.Fatal().Err(err).Str("path", *configPath).Msg("write config")
		}
		log.Info().Str("path", *configPath).Msg("default config written")
		return
	}

	// ---- Load config.yaml (optional) ----
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Warn().Err(err).Str("path", *configPath).Msg("config load failed; proceeding with defaults")
		cfg = config.Default()
		cfg.Driver = ""
	}
	if cfg.Driver == "" {
		cfg.Driver = *driver
	}
	if cfg.Driver == "" {
		cfg.Driver = led.DriverSim
	}
	if *pixels > 0 {
		cfg.Pixels = *pixels
	}
	if *order != "" {
		cfg.WiringOrder = *order
	}
	if *fps > 0 {
		cfg.FPS = *fps
	}
	if *simOnly {
		cfg.Driver = led.DriverSim
	}
	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		os.Exit(2)
	}

	if _, err := host.Init(); err != nil {
		log.Fatal().Err(err).Msg("host init")
	}

	// ---- Driver ----
	opts, err := cfg.LED()
	if err != nil {
		log.Fatal().Err(err).Msg("led options")
	}
	opts.Log = log.Logger
	drv, err := led.Open(opts)
	if err != nil {
		log.Warn().Err(err).Str("driver", cfg.Driver).Msg("driver init failed; falling back to SIM")
		drv = led.NewSim(log.Logger)
	}
	defer func() {
		if err := drv.Close(); err != nil {
			log.Warn().Err(err).Msg("driver close")
		}
	}()

	// ---- Clock & inputs ----
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clk := clock.New()
	go clk.Run(ctx)

	hw, adc := hardwareInput(cfg)
	if adc != nil {
		defer func() {
			if err := adc.Close(); err != nil {
				log.Warn().Err(err).Msg("adc close")
			}
		}()
	}
	in := input.Condition(hw, cfg.Conditioning())

	// ---- Engine & loop ----
	patches, err := cfg.PatchList(reg)
	if err != nil {
		log.Fatal().Err(err).Msg("patches")
	}
	env := &pattern.Env{
		Strip: strip.New(drv, opts.Order, cfg.Pixels),
		Clock: clk,
		Input: in,
		Rand:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	env.Strip.SetBudget(cfg.Budget())
	if b := cfg.Budget(); b.BudgetMA > 0 {
		log.Info().Int("budget_ma", b.BudgetMA).Int("full_white_ma", b.DrawMA(cfg.Pixels*765, 255)).Msg("current budget")
	}
	engine, err := pattern.NewEngine(env, reg, patches)
	if err != nil {
		log.Fatal().Err(err).Msg("engine")
	}

	var btn dispatch.Button
	if name := cfg.Input.Button; name != "" {
		if p := gpioreg.ByName(name); p == nil {
			log.Warn().Str("pin", name).Msg("button pin not found; patch stays fixed")
		} else if b, err := dispatch.NewPinButton(p); err != nil {
			log.Warn().Err(err).Str("pin", name).Msg("button setup failed")
		} else {
			btn = b
		}
	}

	loop := dispatch.New(engine, btn, clk, cfg.FPS, log.Logger)
	loop.Calibrate(env.Strip, in)
	loop.Select(*patch)
	log.Info().
		Str("driver", cfg.Driver).
		Int("pixels", cfg.Pixels).
		Str("order", opts.Order.String()).
		Int("patches", engine.Len()).
		Msg("strip running")

	done := make(chan struct{})
	go func() {
		_ = loop.Run(ctx)
		close(done)
	}()

	// ---- Graceful shutdown ----
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	s := <-ch
	log.Info().Str("signal", s.String()).Msg("shutting down")
	cancel()
	<-done

	if err := env.Strip.Clear(); err != nil {
		log.Warn().Err(err).Msg("clear strip")
	}
}

// hardwareInput binds the configured input pins. Anything missing reads from
// the fixed levels. The returned closer, when not nil, owns the ADC port.
func hardwareInput(cfg *config.Config) (*input.Hardware, io.Closer) {
	h := &input.Hardware{
		Fallback:   &input.Fixed{PotLevel: cfg.Input.FixedPot},
		InvertGate: cfg.Input.InvertGate,
	}
	var adc io.Closer
	if dev := cfg.Input.ADC; dev != "" {
		var err error
		if adc, err = bindADC(h, dev, cfg.Input.PotChan, cfg.Input.CVChan); err != nil {
			log.Warn().Err(err).Str("dev", dev).Msg("adc unavailable; using fixed pot")
		}
	}
	if name := cfg.Input.Gate; name != "" {
		if p := gpioreg.ByName(name); p == nil {
			log.Warn().Str("pin", name).Msg("gate pin not found")
		} else if err := h.BindGate(p); err != nil {
			log.Warn().Err(err).Str("pin", name).Msg("gate setup failed")
		}
	}
	return h, adc
}

// bindADC feeds the pot and CV of h from an MCP3008 on dev. On error nothing
// is bound and the port is closed.
func bindADC(h *input.Hardware, dev string, potCh, cvCh int) (io.Closer, error) {
	port, err := spireg.Open(dev)
	if err != nil {
		return nil, err
	}
	adc, err := input.NewMCP3008(port)
	if err != nil {
		return nil, err
	}
	pot, err := adc.Pin(potCh)
	if err == nil {
		h.CVPin, err = adc.Pin(cvCh)
	}
	if err != nil {
		h.CVPin = nil
		_ = adc.Close()
		return nil, err
	}
	h.PotPin = pot
	return adc, nil
}
