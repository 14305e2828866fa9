package console

import "image/color"

// Default console colors.
var (
	DefaultForeground = color.RGBA{R: 0xaa, G: 0xaa, B: 0xaa, A: 0xff}
	DefaultBackground = color.RGBA{A: 0xff}
)

// egaPalette lists the 16 standard EGA colors together with the names that
// can be used to select them.
var egaPalette = [16]struct {
	name string
	rgba color.RGBA
}{
	{"black", color.RGBA{R: 0x00, G: 0x00, B: 0x00, A: 0xff}},
	{"blue", color.RGBA{R: 0x00, G: 0x00, B: 0xaa, A: 0xff}},
	{"green", color.RGBA{R: 0x00, G: 0xaa, B: 0x00, A: 0xff}},
	{"cyan", color.RGBA{R: 0x00, G: 0xaa, B: 0xaa, A: 0xff}},
	{"red", color.RGBA{R: 0xaa, G: 0x00, B: 0x00, A: 0xff}},
	{"magenta", color.RGBA{R: 0xaa, G: 0x00, B: 0xaa, A: 0xff}},
	{"brown", color.RGBA{R: 0xaa, G: 0x55, B: 0x00, A: 0xff}},
	{"lightgray", color.RGBA{R: 0xaa, G: 0xaa, B: 0xaa, A: 0xff}},
	{"darkgray", color.RGBA{R: 0x55, G: 0x55, B: 0x55, A: 0xff}},
	{"lightblue", color.RGBA{R: 0x55, G: 0x55, B: 0xff, A: 0xff}},
	{"lightgreen", color.RGBA{R: 0x55, G: 0xff, B: 0x55, A: 0xff}},
	{"lightcyan", color.RGBA{R: 0x55, G: 0xff, B: 0xff, A: 0xff}},
	{"lightred", color.RGBA{R: 0xff, G: 0x55, B: 0x55, A: 0xff}},
	{"lightmagenta", color.RGBA{R: 0xff, G: 0x55, B: 0xff, A: 0xff}},
	{"yellow", color.RGBA{R: 0xff, G: 0xff, B: 0x55, A: 0xff}},
	{"white", color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}},
}

// ColorByName looks up one of the 16 EGA colors by name.
func ColorByName(name string) (color.RGBA, bool) {
	for _, entry := range egaPalette {
		if entry.name == name {
			return entry.rgba, true
		}
	}

	return color.RGBA{}, false
}

// Palette returns the EGA colors as a color.Palette.
func Palette() color.Palette {
	pal := make(color.Palette, len(egaPalette))
	for i, entry := range egaPalette {
		pal[i] = entry.rgba
	}
	return pal
}
