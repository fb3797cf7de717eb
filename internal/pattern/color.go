package pattern

import (
	"math/rand"

	"github.com/coreman2200/stripdimmer/model"
	"github.com/lucasb-eyer/go-colorful"
)

// randomColor picks a fully bright color with random hue and a saturation
// of at least 0.6, so consecutive picks are visibly different.
func randomColor(r *rand.Rand) model.RGB {
	c := colorful.Hsv(r.Float64()*360, 0.6+0.4*r.Float64(), 1)
	red, green, blue := c.Clamped().RGB255()
	return model.RGB{R: red, G: green, B: blue}
}
