package led

import (
	"encoding/hex"
	"sync"

	"github.com/coreman2200/stripdimmer/internal/ws2812"
	"github.com/rs/zerolog"
)

// Sim records frames instead of driving hardware.
type Sim struct {
	mu     sync.Mutex
	log    zerolog.Logger
	cur    []byte
	last   []byte
	frames int
	open   bool
}

func NewSim(log zerolog.Logger) *Sim {
	return &Sim{log: log}
}

func (s *Sim) Begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.open {
		return ws2812.ErrFrameOpen
	}
	s.open = true
	s.cur = s.cur[:0]
	return nil
}

func (s *Sim) WriteByte(b byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return ws2812.ErrNoFrame
	}
	s.cur = append(s.cur, b)
	return nil
}

func (s *Sim) End() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return ws2812.ErrNoFrame
	}
	s.open = false
	s.cur, s.last = s.last, s.cur
	s.frames++

	head := s.last
	if len(head) > 9 {
		head = head[:9]
	}
	s.log.Trace().
		Int("frame", s.frames).
		Int("bytes", len(s.last)).
		Str("head", hex.EncodeToString(head)).
		Msg("sim frame")
	return nil
}

// Frame returns a copy of the last completed frame.
func (s *Sim) Frame() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]byte, len(s.last))
	copy(out, s.last)
	return out
}

func (s *Sim) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

func (s *Sim) Close() error {
	s.log.Debug().Int("frames", s.Frames()).Msg("sim closed")
	return nil
}
