// Package pattern holds the animation engine: incremental, non-blocking
// patterns that each own their state and render one frame per Step.
package pattern

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/coreman2200/stripdimmer/internal/clock"
	"github.com/coreman2200/stripdimmer/internal/input"
	"github.com/coreman2200/stripdimmer/internal/strip"
	"github.com/coreman2200/stripdimmer/model"
)

var (
	ErrUnknownKind = errors.New("unknown pattern kind")
	ErrTooFewColor = errors.New("too few colors")
	ErrNoPatch     = errors.New("no such patch")
)

// Env is what a pattern may touch. It is shared by every pattern of an
// Engine but patterns keep no references into each other.
type Env struct {
	Strip *strip.Strip
	Clock clock.Source
	Input input.Source
	Rand  *rand.Rand
}

// Pattern is one running animation. Step never blocks longer than one frame.
type Pattern interface {
	Step() error
}

// Params configures a pattern. Each kind reads the fields it needs.
type Params struct {
	Colors []model.RGB

	// Brightness is used as-is unless PotBrightness is set.
	Brightness    uint8
	PotBrightness bool

	// PotControl derives speed and intensity from the pot.
	PotControl bool
	// UseCV reads the CV input wherever the pot would be read.
	UseCV bool

	Step    uint8
	DelayMs uint32

	// Variant picks the color source: "color", "array", "random", "rainbow".
	Variant string
	Trigger Trigger

	// distribute
	SplitAt int

	// swap
	SwapFloorMs uint32

	// rain
	MaxDrops int
	MinGapMs uint32
	MaxGapMs uint32
	DecayMs  uint32
}

// pot is the control reading: the CV input when UseCV is set, else the pot.
func (p Params) pot(in input.Source) uint8 {
	if p.UseCV {
		return in.CV()
	}
	return in.Pot()
}

func (p Params) brightness(in input.Source) uint8 {
	if p.PotBrightness {
		return p.pot(in)
	}
	return p.Brightness
}

// Builder constructs a fresh pattern.
type Builder func(env *Env, p Params) (Pattern, error)

// Kind describes a registered pattern.
type Kind struct {
	Name      string
	Build     Builder
	MinColors int
	// Variants lists accepted Params.Variant values; empty accepts any.
	Variants []string
}

type Registry struct{ m map[string]Kind }

func NewRegistry() *Registry { return &Registry{m: map[string]Kind{}} }

func (r *Registry) Register(k Kind) {
	if k.Build == nil {
		return
	}
	r.m[k.Name] = k
}

func (r *Registry) Get(name string) (Kind, bool) { k, ok := r.m[name]; return k, ok }

func (r *Registry) List() []string {
	out := make([]string, 0, len(r.m))
	for k := range r.m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Check validates p against kind without building anything.
func (r *Registry) Check(kind string, p Params) error {
	k, ok := r.m[kind]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if len(k.Variants) > 0 {
		found := false
		for _, v := range k.Variants {
			if v == p.Variant {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%s: unknown variant %q (want one of %v)", kind, p.Variant, k.Variants)
		}
	}
	need := k.MinColors
	if (p.Variant == VariantArray || p.Variant == VariantColor) && need < 1 {
		need = 1
	}
	if len(p.Colors) < need {
		return fmt.Errorf("%w: %s needs %d, got %d", ErrTooFewColor, kind, need, len(p.Colors))
	}
	return nil
}

// Build checks p and constructs a fresh pattern.
func (r *Registry) Build(kind string, env *Env, p Params) (Pattern, error) {
	if err := r.Check(kind, p); err != nil {
		return nil, err
	}
	return r.m[kind].Build(env, p)
}

// Default registers every built-in pattern.
func Default() *Registry {
	r := NewRegistry()
	r.Register(Kind{Name: KindSolid, Build: newSolid, MinColors: 1})
	r.Register(Kind{Name: KindDistribute, Build: newDistribute, MinColors: 1})
	r.Register(Kind{Name: KindDial, Build: newDial})
	r.Register(Kind{Name: KindFade, Build: newFade})
	r.Register(Kind{Name: KindRotateRainbow, Build: newRotateRainbow})
	r.Register(Kind{Name: KindBreathe, Build: newBreathe, Variants: []string{VariantColor, VariantArray, VariantRandom, VariantRainbow}})
	r.Register(Kind{Name: KindSwap, Build: newSwap, MinColors: 2})
	r.Register(Kind{Name: KindRain, Build: newRain, MinColors: 1})
	r.Register(Kind{Name: KindWipe, Build: newWipe, Variants: []string{VariantArray, VariantRandom, VariantRainbow}})
	return r
}

const (
	KindSolid         = "solid"
	KindDistribute    = "distribute"
	KindDial          = "dial"
	KindFade          = "fade"
	KindRotateRainbow = "rotate-rainbow"
	KindBreathe       = "breathe"
	KindSwap          = "swap"
	KindRain          = "rain"
	KindWipe          = "wipe"
)

const (
	VariantColor   = "color"
	VariantArray   = "array"
	VariantRandom  = "random"
	VariantRainbow = "rainbow"
)

// Patch is a named, configured pattern kind.
type Patch struct {
	Name   string
	Kind   string
	Params Params
}

// Engine routes Render calls to the active patch. Switching patches always
// builds a new pattern, so nothing carries over between activations.
type Engine struct {
	env     *Env
	reg     *Registry
	patches []Patch

	active int
	cur    Pattern

	// Last holds the duration of the most recent Render in ms.
	Last struct {
		RenderMS float64
	}
}

// NewEngine checks every patch up front so Render only fails on transport
// errors.
func NewEngine(env *Env, reg *Registry, patches []Patch) (*Engine, error) {
	if len(patches) == 0 {
		return nil, fmt.Errorf("%w: empty patch list", ErrNoPatch)
	}
	for i, p := range patches {
		if err := reg.Check(p.Kind, p.Params); err != nil {
			return nil, fmt.Errorf("patch %d (%s): %w", i, p.Name, err)
		}
	}
	return &Engine{env: env, reg: reg, patches: patches, active: -1}, nil
}

func (e *Engine) Len() int { return len(e.patches) }

func (e *Engine) Patch(id int) Patch { return e.patches[id] }

// Active is the id of the running patch, or -1 before the first Render.
func (e *Engine) Active() int { return e.active }

// Reset drops the running pattern; the next Render builds it afresh.
func (e *Engine) Reset() { e.cur = nil }

// Render advances patch id by one step.
func (e *Engine) Render(id int) error {
	if id < 0 || id >= len(e.patches) {
		return fmt.Errorf("%w: %d", ErrNoPatch, id)
	}
	if id != e.active || e.cur == nil {
		p := e.patches[id]
		pat, err := e.reg.Build(p.Kind, e.env, p.Params)
		if err != nil {
			return fmt.Errorf("patch %d (%s): %w", id, p.Name, err)
		}
		e.cur = pat
		e.active = id
	}
	start := time.Now()
	err := e.cur.Step()
	e.Last.RenderMS = float64(time.Since(start).Microseconds()) / 1000.0
	return err
}

func clampStep(s uint8) uint8 {
	if s == 0 {
		return 1
	}
	return s
}

func clampInterval(ms uint32) uint32 {
	if ms == 0 {
		return 1
	}
	return ms
}
