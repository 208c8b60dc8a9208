package color

import "github.com/lucasb-eyer/go-colorful"

// Palette is the 16-color console palette in console attribute order
// (bit 0 blue, bit 1 green, bit 2 red, bit 3 intensity).
var Palette = [16]Color{
	RGB(0, 0, 0),       // black
	RGB(0, 0, 128),     // blue
	RGB(0, 128, 0),     // green
	RGB(0, 128, 128),   // cyan
	RGB(128, 0, 0),     // red
	RGB(128, 0, 128),   // magenta
	RGB(128, 128, 0),   // brown
	RGB(192, 192, 192), // light gray
	RGB(128, 128, 128), // dark gray
	RGB(0, 0, 255),     // light blue
	RGB(0, 255, 0),     // light green
	RGB(0, 255, 255),   // light cyan
	RGB(255, 0, 0),     // light red
	RGB(255, 0, 255),   // light magenta
	RGB(255, 255, 0),   // yellow
	RGB(255, 255, 255), // white
}

var paletteLab [16]colorful.Color

func init() {
	for i, p := range Palette {
		paletteLab[i] = toColorful(p)
	}
}

func toColorful(c Color) colorful.Color {
	return colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
}

// Nearest returns the index of the palette entry perceptually closest to
// the RGB value of c.
func Nearest(c Color) uint8 {
	if c.Indexed {
		return c.R & 0x0F
	}
	target := toColorful(c)
	best, bestDist := 0, -1.0
	for i, p := range paletteLab {
		d := target.DistanceLab(p)
		if bestDist < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return uint8(best)
}

// consoleToANSI swaps the red and blue bits: console order puts blue in
// bit 0, ANSI order puts red there.
func consoleToANSI(i uint8) uint8 {
	i &= 0x0F
	return i&0x0A | (i&0x01)<<2 | (i&0x04)>>2
}
