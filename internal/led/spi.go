package led

import (
	"fmt"
	"io"
	"sync"

	"github.com/coreman2200/stripdimmer/internal/ws2812"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// DefaultSPISpeed puts one line bit at ~417ns, a third of a data bit.
const DefaultSPISpeed = 2400 * physic.KiloHertz

const DefaultResetUs = 300

// SPI encodes each data bit as three line bits on MOSI and sends a frame in a
// single transaction, followed by a zero tail for the latch.
type SPI struct {
	mu     sync.Mutex
	conn   spi.Conn
	closer io.Closer

	tail int
	buf  []byte
	open bool
}

// NewSPI connects to port in mode 0, 8 bits per word. speed 0 and resetUs 0
// take the defaults.
func NewSPI(port spi.Port, speed physic.Frequency, resetUs int) (*SPI, error) {
	if speed <= 0 {
		speed = DefaultSPISpeed
	}
	if resetUs <= 0 {
		resetUs = DefaultResetUs
	}
	c, err := port.Connect(speed, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("spi connect: %w", err)
	}
	hz := int64(speed / physic.Hertz)
	return &SPI{
		conn: c,
		tail: int((int64(resetUs)*hz + 7999999) / 8000000),
	}, nil
}

func (s *SPI) Begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.open {
		return ws2812.ErrFrameOpen
	}
	s.open = true
	s.buf = s.buf[:0]
	return nil
}

func (s *SPI) WriteByte(b byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return ws2812.ErrNoFrame
	}
	s.buf = append(s.buf, ws2812.NRZ[b][:]...)
	return nil
}

func (s *SPI) End() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return ws2812.ErrNoFrame
	}
	s.open = false
	for i := 0; i < s.tail; i++ {
		s.buf = append(s.buf, 0)
	}
	if err := s.conn.Tx(s.buf, nil); err != nil {
		return fmt.Errorf("spi tx: %w", err)
	}
	return nil
}

func (s *SPI) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closer != nil {
		err := s.closer.Close()
		s.closer = nil
		return err
	}
	return nil
}
