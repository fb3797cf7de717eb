// Package strip renders colors, segment buffers and sparse buffers onto a
// single-wire pixel strip. Wiring order is applied here and nowhere else.
package strip

import (
	"fmt"

	"github.com/coreman2200/stripdimmer/model"
)

var ErrSegmentTotal = model.ErrSegmentTotal

// Transmitter writes one frame as a bracketed byte stream.
type Transmitter interface {
	Begin() error
	WriteByte(b byte) error
	End() error
}

// Strip is a chain of up to max pixels behind a Transmitter, of which the
// first Pixels are driven by frames. The rest are sent black.
type Strip struct {
	tx     Transmitter
	order  model.WiringOrder
	pixels int
	max    int

	budget Budget
	// load of the last streamed frame; Stream cannot see a frame in advance.
	streamLoad int
}

func New(tx Transmitter, order model.WiringOrder, pixels int) *Strip {
	return &Strip{tx: tx, order: order, pixels: pixels, max: pixels}
}

// Pixels is the active length.
func (s *Strip) Pixels() int { return s.pixels }

// Max is the length the strip was created with.
func (s *Strip) Max() int { return s.max }

// SetPixels changes the active length, clamped to 1..Max, and returns it.
func (s *Strip) SetPixels(n int) int {
	if n > s.max {
		n = s.max
	}
	if n < 1 {
		n = 1
	}
	if n != s.pixels {
		s.pixels = n
		s.streamLoad = 0
	}
	return n
}

func (s *Strip) Order() model.WiringOrder { return s.order }

// SetBudget limits every later frame to b.
func (s *Strip) SetBudget(b Budget) { s.budget = b }

// frame brackets fn in one Begin/End pair and blanks the inactive tail. End
// runs even when fn fails so the critical section is always left.
func (s *Strip) frame(fn func() error) (err error) {
	if err := s.tx.Begin(); err != nil {
		return fmt.Errorf("begin frame: %w", err)
	}
	defer func() {
		if endErr := s.tx.End(); endErr != nil && err == nil {
			err = fmt.Errorf("end frame: %w", endErr)
		}
	}()
	if err := fn(); err != nil {
		return err
	}
	for i := s.pixels; i < s.max; i++ {
		if err := s.pixel(model.Black); err != nil {
			return err
		}
	}
	return nil
}

func (s *Strip) pixel(c model.RGB) error {
	w := s.order.Wire(c)
	for _, b := range w {
		if err := s.tx.WriteByte(b); err != nil {
			return err
		}
	}
	return nil
}

// Uniform sets every pixel to c.
func (s *Strip) Uniform(c model.RGB, brightness uint8) error {
	brightness = s.budget.Limit(load(c)*s.pixels, brightness)
	c = model.ApplyBrightness(c, brightness)
	return s.frame(func() error {
		for i := 0; i < s.pixels; i++ {
			if err := s.pixel(c); err != nil {
				return err
			}
		}
		return nil
	})
}

// Segments emits each segment's color for its length. Buffers that do not
// cover the strip exactly are refused before anything is sent.
func (s *Strip) Segments(buf model.SegmentBuffer, brightness uint8) error {
	if err := buf.Validate(s.pixels); err != nil {
		return err
	}
	total := 0
	for _, seg := range buf {
		total += load(seg.Color) * int(seg.Length)
	}
	brightness = s.budget.Limit(total, brightness)
	return s.frame(func() error {
		for _, seg := range buf {
			c := model.ApplyBrightness(seg.Color, brightness)
			for i := 0; i < int(seg.Length); i++ {
				if err := s.pixel(c); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// Sparse emits stored colors at their positions and black everywhere else.
// Entries past the end of the strip are ignored.
func (s *Strip) Sparse(buf *model.SparseBuffer, brightness uint8) error {
	total := 0
	for i := 0; i < buf.Len(); i++ {
		if int(buf.At(i).Pos) < s.pixels {
			total += load(buf.At(i).Color)
		}
	}
	brightness = s.budget.Limit(total, brightness)
	return s.frame(func() error {
		next := 0
		for i := 0; i < s.pixels; i++ {
			c := model.Black
			if next < buf.Len() && int(buf.At(next).Pos) == i {
				c = model.ApplyBrightness(buf.At(next).Color, brightness)
				next++
			}
			if err := s.pixel(c); err != nil {
				return err
			}
		}
		return nil
	})
}

// Stream asks fn for each pixel color in order. The budget is applied using
// the load of the previous streamed frame.
func (s *Strip) Stream(fn func(i int) model.RGB, brightness uint8) error {
	brightness = s.budget.Limit(s.streamLoad, brightness)
	return s.frame(func() error {
		total := 0
		for i := 0; i < s.pixels; i++ {
			c := fn(i)
			total += load(c)
			if err := s.pixel(model.ApplyBrightness(c, brightness)); err != nil {
				return err
			}
		}
		s.streamLoad = total
		return nil
	})
}

// Clear blanks the strip.
func (s *Strip) Clear() error {
	return s.Uniform(model.Black, model.MAX_BRIGHTNESS)
}
