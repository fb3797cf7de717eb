package model

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrSegmentTotal = errors.New("segment lengths do not cover the strip")
	ErrNoColors     = errors.New("no colors to distribute")
)

// Segment is a run of same-colored pixels.
type Segment struct {
	Length uint16
	Color  RGB
}

// SegmentBuffer is an ordered list of segments whose lengths add up to the
// pixel count of the strip.
type SegmentBuffer []Segment

func (b SegmentBuffer) Total() int {
	n := 0
	for _, s := range b {
		n += int(s.Length)
	}
	return n
}

func (b SegmentBuffer) Validate(pixels int) error {
	if t := b.Total(); t != pixels {
		return fmt.Errorf("%w: %d of %d pixels", ErrSegmentTotal, t, pixels)
	}
	return nil
}

// WithBrightness returns a scaled copy; b itself is left untouched.
func (b SegmentBuffer) WithBrightness(brightness uint8) SegmentBuffer {
	out := make(SegmentBuffer, len(b))
	for i, s := range b {
		out[i] = Segment{Length: s.Length, Color: ApplyBrightness(s.Color, brightness)}
	}
	return out
}

// Full is a single segment covering the strip.
func Full(pixels int, c RGB) SegmentBuffer {
	return SegmentBuffer{{Length: uint16(pixels), Color: c}}
}

// Split lights the first `at` pixels with a and the rest with b.
func Split(pixels, at int, a, b RGB) SegmentBuffer {
	if at > pixels {
		at = pixels
	}
	if at < 0 {
		at = 0
	}
	return SegmentBuffer{
		{Length: uint16(at), Color: a},
		{Length: uint16(pixels - at), Color: b},
	}
}

func Half(pixels int, a, b RGB) SegmentBuffer {
	return Split(pixels, pixels/2, a, b)
}

// Distribute divides the strip evenly between colors. Every segment gets
// pixels/N; the last one also absorbs the remainder.
func Distribute(colors []RGB, pixels int) (SegmentBuffer, error) {
	return DistributeInto(make(SegmentBuffer, 0, len(colors)), colors, pixels)
}

// DistributeInto is Distribute writing into dst[:0] so a caller-owned
// scratch slice can be reused between frames.
func DistributeInto(dst SegmentBuffer, colors []RGB, pixels int) (SegmentBuffer, error) {
	n := len(colors)
	if n == 0 {
		return dst[:0], ErrNoColors
	}
	each := pixels / n
	dst = dst[:0]
	for i, c := range colors {
		l := each
		if i == n-1 {
			l = pixels - (n-1)*each
		}
		dst = append(dst, Segment{Length: uint16(l), Color: c})
	}
	return dst, nil
}

// SparsePixel is a lit pixel in an otherwise black strip.
type SparsePixel struct {
	Pos   uint16
	Color RGB
}

// SparseBuffer is a fixed-capacity list of SparsePixel sorted ascending by
// position with unique positions. Inserting into a full buffer drops the
// new entry.
type SparseBuffer struct {
	buf []SparsePixel
}

func NewSparseBuffer(capacity int) *SparseBuffer {
	if capacity < 0 {
		capacity = 0
	}
	return &SparseBuffer{buf: make([]SparsePixel, 0, capacity)}
}

func (s *SparseBuffer) Len() int { return len(s.buf) }
func (s *SparseBuffer) Cap() int { return cap(s.buf) }

func (s *SparseBuffer) At(i int) SparsePixel { return s.buf[i] }

func (s *SparseBuffer) Set(i int, c RGB) { s.buf[i].Color = c }

func (s *SparseBuffer) Reset() { s.buf = s.buf[:0] }

// search returns the index of the first entry with Pos >= pos.
func (s *SparseBuffer) search(pos uint16) int {
	return sort.Search(len(s.buf), func(i int) bool { return s.buf[i].Pos >= pos })
}

// IndexOf returns the index of pos or -1.
func (s *SparseBuffer) IndexOf(pos uint16) int {
	i := s.search(pos)
	if i < len(s.buf) && s.buf[i].Pos == pos {
		return i
	}
	return -1
}

func (s *SparseBuffer) Exists(pos uint16) bool {
	return s.IndexOf(pos) >= 0
}

// Insert adds pos or updates its color in place. It returns false when pos
// is new and the buffer is already full.
func (s *SparseBuffer) Insert(pos uint16, c RGB) bool {
	i := s.search(pos)
	if i < len(s.buf) && s.buf[i].Pos == pos {
		s.buf[i].Color = c
		return true
	}
	if len(s.buf) == cap(s.buf) {
		return false
	}
	s.buf = append(s.buf, SparsePixel{})
	copy(s.buf[i+1:], s.buf[i:])
	s.buf[i] = SparsePixel{Pos: pos, Color: c}
	return true
}

// Remove deletes the entry at index i.
func (s *SparseBuffer) Remove(i int) {
	if i < 0 || i >= len(s.buf) {
		return
	}
	copy(s.buf[i:], s.buf[i+1:])
	s.buf = s.buf[:len(s.buf)-1]
}

func (s *SparseBuffer) RemoveAt(pos uint16) bool {
	i := s.IndexOf(pos)
	if i < 0 {
		return false
	}
	s.Remove(i)
	return true
}

// Compact drops every black entry and returns how many were removed.
func (s *SparseBuffer) Compact() int {
	kept := s.buf[:0]
	for _, p := range s.buf {
		if !p.Color.IsBlack() {
			kept = append(kept, p)
		}
	}
	n := len(s.buf) - len(kept)
	s.buf = kept
	return n
}
