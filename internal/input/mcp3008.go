package input

import (
	"fmt"
	"io"
	"sync"

	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// MCP3008Speed is well inside the chip's 1.35MHz limit at 2.7V.
const MCP3008Speed = 1 * physic.MegaHertz

// MCP3008 is an 8 channel, 10 bit ADC on SPI. The pot and CV inputs are
// usually two of its channels.
type MCP3008 struct {
	mu     sync.Mutex
	conn   spi.Conn
	closer io.Closer
	w, r   [3]byte
}

// NewMCP3008 connects to port. A port that can be closed is owned by the
// MCP3008 from here on and is closed by Close, also when connecting fails.
func NewMCP3008(port spi.Port) (*MCP3008, error) {
	m := &MCP3008{}
	if c, ok := port.(io.Closer); ok {
		m.closer = c
	}
	c, err := port.Connect(MCP3008Speed, spi.Mode0, 8)
	if err != nil {
		_ = m.Close()
		return nil, fmt.Errorf("mcp3008: %w", err)
	}
	m.conn = c
	return m, nil
}

// Close releases the SPI port.
func (m *MCP3008) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.closer
	m.closer = nil
	if c == nil {
		return nil
	}
	return c.Close()
}

// Pin returns single-ended channel ch (0..7) as an analog pin.
func (m *MCP3008) Pin(ch int) (analog.PinADC, error) {
	if ch < 0 || ch > 7 {
		return nil, fmt.Errorf("mcp3008: no channel %d", ch)
	}
	return &adcPin{m: m, ch: ch}, nil
}

func (m *MCP3008) sample(ch int) (int32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	// start bit, single-ended + channel, then clock out the result
	m.w = [3]byte{0x01, byte(0x08|ch) << 4, 0x00}
	if err := m.conn.Tx(m.w[:], m.r[:]); err != nil {
		return 0, err
	}
	return int32(m.r[1]&0x03)<<8 | int32(m.r[2]), nil
}

type adcPin struct {
	m  *MCP3008
	ch int
}

func (p *adcPin) String() string   { return p.Name() }
func (p *adcPin) Halt() error      { return nil }
func (p *adcPin) Name() string     { return fmt.Sprintf("MCP3008_CH%d", p.ch) }
func (p *adcPin) Number() int      { return p.ch }
func (p *adcPin) Function() string { return "ADC" }

func (p *adcPin) Range() (analog.Sample, analog.Sample) {
	return analog.Sample{Raw: 0}, analog.Sample{Raw: 1023}
}

func (p *adcPin) Read() (analog.Sample, error) {
	v, err := p.m.sample(p.ch)
	if err != nil {
		return analog.Sample{}, err
	}
	return analog.Sample{Raw: v}, nil
}
