package led

import (
	"fmt"
	"io"

	"github.com/coreman2200/stripdimmer/internal/ws2812"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/devices/v3/nrzled"
)

// Nrzled sends frames through the periph nrzled device.
type Nrzled struct {
	dev    *nrzled.Dev
	closer io.Closer

	pixels int
	buf    []byte
	open   bool
}

// NewNrzled opens an nrzled device for pixels RGB pixels on port.
func NewNrzled(port spi.Port, pixels int, speed physic.Frequency) (*Nrzled, error) {
	if pixels <= 0 {
		return nil, fmt.Errorf("invalid LED count: %d", pixels)
	}
	if speed <= 0 {
		speed = 2500 * physic.KiloHertz
	}
	opts := nrzled.Opts{
		NumPixels: pixels,
		Channels:  3,
		Freq:      speed,
	}
	d, err := nrzled.NewSPI(port, &opts)
	if err != nil {
		return nil, fmt.Errorf("nrzled: %w", err)
	}
	return &Nrzled{dev: d, pixels: pixels, buf: make([]byte, 0, pixels*3)}, nil
}

func (n *Nrzled) String() string { return n.dev.String() }

func (n *Nrzled) Begin() error {
	if n.open {
		return ws2812.ErrFrameOpen
	}
	n.open = true
	n.buf = n.buf[:0]
	return nil
}

func (n *Nrzled) WriteByte(b byte) error {
	if !n.open {
		return ws2812.ErrNoFrame
	}
	n.buf = append(n.buf, b)
	return nil
}

// End hands the frame to the device. nrzled always rasters its input as
// G,R,B from slots 1,0,2, so the first two bytes of each pixel are swapped
// here to keep them in the order they were written.
func (n *Nrzled) End() error {
	if !n.open {
		return ws2812.ErrNoFrame
	}
	n.open = false
	if len(n.buf)%3 != 0 || len(n.buf) > n.pixels*3 {
		return fmt.Errorf("nrzled: frame of %d bytes for %d pixels", len(n.buf), n.pixels)
	}
	for i := 0; i+2 < len(n.buf); i += 3 {
		n.buf[i], n.buf[i+1] = n.buf[i+1], n.buf[i]
	}
	if _, err := n.dev.Write(n.buf); err != nil {
		return fmt.Errorf("nrzled write: %w", err)
	}
	return nil
}

func (n *Nrzled) Close() error {
	err := n.dev.Halt()
	if n.closer != nil {
		if cerr := n.closer.Close(); err == nil {
			err = cerr
		}
		n.closer = nil
	}
	return err
}
