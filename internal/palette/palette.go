// Package palette builds the fixed-size palette buffers a ZeDMD board receives.
//
// The board always holds 64 RGB slots. A ROM palette with fewer colours is
// stretched to each tier (4, 16, 64) before it is transmitted, so the panel can
// switch colour depth without a palette round trip.
package palette

import (
	"github.com/lucasb-eyer/go-colorful"

	"github.com/coreman2200/dmdlink/internal/dmd"
)

const (
	// Slots is the number of palette entries on the board.
	Slots = 64
	// BufferLen is Slots times three channels.
	BufferLen = Slots * 3
)

// Buffer is one palette transmission. Slots past the active colour count stay zero.
type Buffer [BufferLen]byte

var tiers = [...]int{4, 16, 64}

// Tier returns the smallest tier that holds n colours. Two colours map to 4,
// there is no 1-bit mode. Anything above 64 is down-sampled into 64.
func Tier(n int) int {
	for _, t := range tiers {
		if n <= t {
			return t
		}
	}
	return tiers[len(tiers)-1]
}

// Tiers lists the tiers transmitted for an n-colour palette, starting at
// Tier(n) and always ending at 64.
func Tiers(n int) []int {
	start := Tier(n)
	for i, t := range tiers {
		if t == start {
			return append([]int(nil), tiers[i:]...)
		}
	}
	return nil
}

// Interpolate stretches (or squeezes) colors to exactly n entries. Entry i
// sits at source position i*(len-1)/(n-1) and is blended linearly between its
// two neighbours. The first and last colours are kept as-is.
func Interpolate(colors []dmd.Color, n int) []dmd.Color {
	if n <= 0 {
		return nil
	}
	out := make([]dmd.Color, n)
	switch {
	case len(colors) == 0:
		return out
	case len(colors) == n:
		copy(out, colors)
		return out
	case len(colors) == 1 || n == 1:
		for i := range out {
			out[i] = colors[0]
		}
		return out
	}

	span, steps := len(colors)-1, n-1
	for i := range out {
		pos := i * span
		lo, rem := pos/steps, pos%steps
		if rem == 0 {
			out[i] = colors[lo]
			continue
		}
		out[i] = blend(colors[lo], colors[lo+1], float64(rem)/float64(steps))
	}
	return out
}

// Build interpolates colors to tier entries and packs them as R,G,B triples.
func Build(colors []dmd.Color, tier int) Buffer {
	var buf Buffer
	if tier > Slots {
		tier = Slots
	}
	pos := 0
	for _, c := range Interpolate(colors, tier) {
		buf[pos], buf[pos+1], buf[pos+2] = c.R, c.G, c.B
		pos += 3
	}
	return buf
}

func blend(a, b dmd.Color, t float64) dmd.Color {
	r, g, bl := toColorful(a).BlendRgb(toColorful(b), t).RGB255()
	return dmd.Color{R: r, G: g, B: bl}
}

func toColorful(c dmd.Color) colorful.Color {
	return colorful.Color{R: float64(c.R) / 255.0, G: float64(c.G) / 255.0, B: float64(c.B) / 255.0}
}
