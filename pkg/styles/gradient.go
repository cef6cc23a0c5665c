package styles

import (
	"image/color"

	"github.com/mazznoer/colorgrad"
)

const (
	GRAD_RED = "red"
	GRAD_RGN = "rdylgn"
	GRAD_YOR = "ylorrd"
)

func gradient(gname string) colorgrad.Gradient {
	switch gname {
	case GRAD_RED:
		return colorgrad.Reds()
	case GRAD_YOR:
		return colorgrad.YlOrRd()
	default:
		return colorgrad.RdYlGn()
	}
}

// Track_colours spreads n colours evenly over the gradient. Alpha is
// fixed so tracks stay translucent over imagery.
func Track_colours(n int, gname string) []color.RGBA {
	if n <= 0 {
		return nil
	}
	grad := gradient(gname)
	cols := make([]color.RGBA, n)
	for j := range cols {
		t := 0.5
		if n > 1 {
			t = float64(j) / float64(n-1)
		}
		r, g, b, _ := grad.At(t).RGBA()
		cols[j] = color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: 0xa0}
	}
	return cols
}
