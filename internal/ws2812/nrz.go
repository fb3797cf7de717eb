package ws2812

// SPI symbols: each data bit becomes three line bits, 1 -> 110, 0 -> 100.
// At ~2.4 MHz one line bit is ~417 ns, close to the pulse windows above.
const (
	SymbolOne  = 0b110
	SymbolZero = 0b100

	SymbolBits = 3
	// BytesPerByte is the expanded size of one data byte.
	BytesPerByte = 8 * SymbolBits / 8
)

// LUT maps a data byte to its 24 line bits, MSB first.
type LUT [256][BytesPerByte]byte

// NRZ is the shared symbol table.
var NRZ = buildLUT()

func buildLUT() *LUT {
	var lut LUT
	for v := 0; v < 256; v++ {
		out := uint32(0)
		for i := 7; i >= 0; i-- {
			tri := uint32(SymbolZero)
			if (v>>i)&1 == 1 {
				tri = SymbolOne
			}
			out = out<<SymbolBits | tri
		}
		lut[v][0] = byte(out >> 16)
		lut[v][1] = byte(out >> 8)
		lut[v][2] = byte(out)
	}
	return &lut
}

// Expand appends the line encoding of src to dst.
func (l *LUT) Expand(dst, src []byte) []byte {
	for _, b := range src {
		dst = append(dst, l[b][:]...)
	}
	return dst
}

// ExpandedLen is the number of line bytes for n data bytes.
func ExpandedLen(n int) int {
	return n * BytesPerByte
}
