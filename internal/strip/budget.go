package strip

import "github.com/coreman2200/stripdimmer/model"

// DefaultChannelMA is the draw of one WS2812 channel at full scale.
const DefaultChannelMA = 20

// Budget caps the estimated supply current of a frame by lowering its
// brightness. A zero BudgetMA disables it.
type Budget struct {
	BudgetMA  int
	ChannelMA int
}

// Limit returns the brightness at which a frame whose channel values add up
// to load stays within the budget.
func (b Budget) Limit(load int, brightness uint8) uint8 {
	if b.BudgetMA <= 0 || load <= 0 {
		return brightness
	}
	ch := b.ChannelMA
	if ch <= 0 {
		ch = DefaultChannelMA
	}
	limit := int64(b.BudgetMA) * 255 * 255 / (int64(load) * int64(ch))
	if limit < int64(brightness) {
		return uint8(limit)
	}
	return brightness
}

// DrawMA estimates the current of a frame with the given load and brightness.
func (b Budget) DrawMA(load int, brightness uint8) int {
	ch := b.ChannelMA
	if ch <= 0 {
		ch = DefaultChannelMA
	}
	return int(int64(load) * int64(ch) * int64(brightness) / (255 * 255))
}

func load(c model.RGB) int { return int(c.R) + int(c.G) + int(c.B) }
