package pattern

import (
	"fmt"
	"strings"
)

// Trigger selects what advances a timed pattern.
type Trigger int

const (
	// TriggerTime advances when the pattern's interval elapses.
	TriggerTime Trigger = iota
	// TriggerGate advances on a rising edge of the gate input only.
	TriggerGate
	// TriggerEither advances on whichever comes first.
	TriggerEither
)

var triggerNames = map[string]Trigger{
	"":       TriggerTime,
	"time":   TriggerTime,
	"gate":   TriggerGate,
	"either": TriggerEither,
}

func ParseTrigger(s string) (Trigger, error) {
	t, ok := triggerNames[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return TriggerTime, fmt.Errorf("unknown trigger %q", s)
	}
	return t, nil
}

func (t Trigger) String() string {
	switch t {
	case TriggerGate:
		return "gate"
	case TriggerEither:
		return "either"
	default:
		return "time"
	}
}

// gate combines an elapsed-time condition with the gate edge according to
// a Trigger. The edge is sampled on every call so a gate held high between
// calls fires only once.
type gate struct {
	mode Trigger
	edge Edge
}

func (g *gate) fire(due bool, level bool) bool {
	rising := g.edge.Rising(level)
	switch g.mode {
	case TriggerGate:
		return rising
	case TriggerEither:
		return rising || due
	default:
		return due
	}
}
