package console

import (
	"bytes"
	"constanos/device/emu"
	"constanos/device/video/console/font"
	"constanos/kernel/sync"
	"image/color"
	"math/rand"
	"testing"
)

var (
	testFg = color.RGBA{R: 0x10, G: 0x20, B: 0x30, A: 0xff}
	testBg = color.RGBA{R: 0x01, G: 0x02, B: 0x03, A: 0xff}
)

// newTestFb returns an initialized console with cols x rows characters. The
// framebuffer has a few extra pixels of padding on each scanline and below
// the last text row.
func newTestFb(t *testing.T, cols, rows, bpp uint32, format PixelFormat) (*Fb, []byte) {
	width, height := cols*8, rows*8+3
	stride := width + 5
	pixels := make([]byte, stride*height*bpp)

	cons := NewFb(pixels, width, height, stride, bpp, format)
	cons.SetColors(testFg, testBg)
	if err := cons.DriverInit(&bytes.Buffer{}); err != nil {
		t.Fatal(err)
	}

	return cons, pixels
}

func pixelAt(cons *Fb, x, y uint32) []byte {
	offset := (y*cons.stride + x) * cons.bytesPerPixel
	return cons.pixels[offset : offset+cons.bytesPerPixel]
}

// cellMatches checks whether the cell at (col, row) contains the glyph for ch.
func cellMatches(cons *Fb, col, row uint32, ch byte) bool {
	glyph := font.Font8x8.Glyph(ch)
	for y := uint32(0); y < 8; y++ {
		for x := uint32(0); x < 8; x++ {
			exp := cons.bgPixel[:cons.bytesPerPixel]
			if font.Font8x8.PixelSet(glyph[y:y+1], x) {
				exp = cons.fgPixel[:cons.bytesPerPixel]
			}

			if !bytes.Equal(pixelAt(cons, col*8+x, row*8+y), exp) {
				return false
			}
		}
	}

	return true
}

func TestFbDriverInit(t *testing.T) {
	defer (&emu.CPU{}).Install()()

	specs := []struct {
		descr     string
		width     uint32
		height    uint32
		stride    uint32
		bpp       uint32
		format    PixelFormat
		bufLen    int
		expErr    error
		expOutput string
		expCols   uint32
		expRows   uint32
	}{
		{"valid 32bpp", 64, 32, 64, 4, PixelBGR, 64 * 32 * 4, nil, "64x32, 4 bytes per pixel, font font8x8 (8x4 characters)\n", 8, 4},
		{"valid 24bpp with padding", 70, 20, 80, 3, PixelRGB, 80 * 20 * 3, nil, "70x20, 3 bytes per pixel, font font8x8 (8x2 characters)\n", 8, 2},
		{"valid 8bpp", 16, 16, 16, 1, PixelRGB, 16 * 16, nil, "16x16, 1 bytes per pixel, font font8x8 (2x2 characters)\n", 2, 2},
		{"unsupported bpp", 64, 32, 64, 2, PixelRGB, 64 * 32 * 2, errUnsupportedBpp, "", 0, 0},
		{"grayscale with 4bpp", 64, 32, 64, 4, PixelU8, 64 * 32 * 4, errUnsupportedBpp, "", 0, 0},
		{"short buffer", 64, 32, 64, 4, PixelRGB, 64*32*4 - 1, errBufferTooSmall, "", 0, 0},
		{"stride below width", 64, 32, 32, 4, PixelRGB, 64 * 32 * 4, errBufferTooSmall, "", 0, 0},
		{"too narrow for a glyph", 4, 32, 4, 4, PixelRGB, 4 * 32 * 4, errNoFont, "", 0, 0},
	}

	for _, spec := range specs {
		t.Run(spec.descr, func(t *testing.T) {
			cons := NewFb(make([]byte, spec.bufLen), spec.width, spec.height, spec.stride, spec.bpp, spec.format)

			var buf bytes.Buffer
			err := cons.DriverInit(&buf)
			if spec.expErr != nil {
				if err == nil || err.Error() != spec.expErr.Error() {
					t.Fatalf("expected error %v; got %v", spec.expErr, err)
				}
				return
			}

			if err != nil {
				t.Fatal(err)
			}

			if got := buf.String(); got != spec.expOutput {
				t.Errorf("expected output %q; got %q", spec.expOutput, got)
			}

			if cols, rows := cons.Dimensions(Characters); cols != spec.expCols || rows != spec.expRows {
				t.Errorf("expected %dx%d characters; got %dx%d", spec.expCols, spec.expRows, cols, rows)
			}

			if w, h := cons.Dimensions(Pixels); w != spec.width || h != spec.height {
				t.Errorf("expected %dx%d pixels; got %dx%d", spec.width, spec.height, w, h)
			}
		})
	}
}

func TestFbWritesBeforeInitAreIgnored(t *testing.T) {
	defer (&emu.CPU{}).Install()()

	pixels := make([]byte, 64*32*4)
	cons := NewFb(pixels, 64, 32, 64, 4, PixelRGB)
	cons.Write([]byte("hello"))

	for i, b := range pixels {
		if b != 0 {
			t.Fatalf("expected framebuffer to be untouched; byte %d is 0x%x", i, b)
		}
	}

	if col, row := cons.Cursor(); col != 0 || row != 0 {
		t.Fatalf("expected cursor at (0,0); got (%d,%d)", col, row)
	}
}

func TestFbPixelFormats(t *testing.T) {
	defer (&emu.CPU{}).Install()()

	specs := []struct {
		bpp    uint32
		format PixelFormat
		expFg  []byte
		expBg  []byte
	}{
		{4, PixelRGB, []byte{0x10, 0x20, 0x30, 0x00}, []byte{0x01, 0x02, 0x03, 0x00}},
		{4, PixelBGR, []byte{0x30, 0x20, 0x10, 0x00}, []byte{0x03, 0x02, 0x01, 0x00}},
		{3, PixelRGB, []byte{0x10, 0x20, 0x30}, []byte{0x01, 0x02, 0x03}},
		{3, PixelBGR, []byte{0x30, 0x20, 0x10}, []byte{0x03, 0x02, 0x01}},
		{1, PixelU8, []byte{29}, []byte{1}},
		{1, PixelBGR, []byte{29}, []byte{1}},
	}

	for specIndex, spec := range specs {
		cons, _ := newTestFb(t, 4, 2, spec.bpp, spec.format)
		cons.WriteChar('A')

		// The first row of 'A' is 0x0c: pixels 2 and 3 are set.
		if got := pixelAt(cons, 2, 0); !bytes.Equal(got, spec.expFg) {
			t.Errorf("[spec %d] expected foreground pixel % x; got % x", specIndex, spec.expFg, got)
		}
		if got := pixelAt(cons, 0, 0); !bytes.Equal(got, spec.expBg) {
			t.Errorf("[spec %d] expected background pixel % x; got % x", specIndex, spec.expBg, got)
		}

		if !cellMatches(cons, 0, 0, 'A') {
			t.Errorf("[spec %d] expected cell (0,0) to contain 'A'", specIndex)
		}
	}
}

func TestFbCursorMovement(t *testing.T) {
	defer (&emu.CPU{}).Install()()

	specs := []struct {
		input  string
		expCol uint32
		expRow uint32
	}{
		{"", 0, 0},
		{"ab", 2, 0},
		{"ab\n", 0, 1},
		{"abc\r", 0, 0},
		{"\t", 4, 0},
		{"abc\t", 4, 0},
		{"abcd\t", 0, 1},
		{"\t\t", 0, 1},
		{"\b", 0, 0},
		{"ab\b", 1, 0},
		{"abcdefgh", 0, 1},
		{"abcdefgh\b", 7, 0},
		{"\n\b", 7, 0},
		{"\n\n\n", 0, 3},
		{"\n\n\n\n", 0, 3},
		{"\n\n\nabcdefgh", 0, 3},
	}

	for specIndex, spec := range specs {
		cons, _ := newTestFb(t, 8, 4, 4, PixelRGB)
		cons.Write([]byte(spec.input))

		if col, row := cons.Cursor(); col != spec.expCol || row != spec.expRow {
			t.Errorf("[spec %d] expected cursor for %q at (%d,%d); got (%d,%d)", specIndex, spec.input, spec.expCol, spec.expRow, col, row)
		}
	}
}

func TestFbBackspaceClearsCell(t *testing.T) {
	defer (&emu.CPU{}).Install()()

	cons, _ := newTestFb(t, 8, 4, 4, PixelRGB)
	cons.Write([]byte("abcdefghX\b\b"))

	if !cellMatches(cons, 7, 0, ' ') {
		t.Fatal("expected the last cell of the first row to be cleared")
	}

	if !cellMatches(cons, 6, 0, 'g') {
		t.Fatal("expected the neighbouring cell to keep its glyph")
	}

	if !cellMatches(cons, 0, 1, ' ') {
		t.Fatal("expected the first cell of the second row to be cleared")
	}
}

func TestFbUnprintable(t *testing.T) {
	defer (&emu.CPU{}).Install()()

	cons, _ := newTestFb(t, 8, 4, 4, PixelRGB)
	cons.Write([]byte{0x01, 0x7f, 0x80, 0xff, 0x1b})

	for col := uint32(0); col < 5; col++ {
		if !cellMatches(cons, col, 0, '?') {
			t.Errorf("expected cell %d to contain the replacement glyph", col)
		}
	}
}

func TestFbScroll(t *testing.T) {
	defer (&emu.CPU{}).Install()()

	const cols, rows = 8, 4
	cons, pixels := newTestFb(t, cols, rows, 4, PixelRGB)

	// Mark the padding area below the text rows; scrolling must not touch it.
	padStart := rows * 8 * cons.stride * 4
	for i := padStart; i < uint32(len(pixels)); i++ {
		pixels[i] = 0xee
	}

	var input []byte
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			input = append(input, byte('A'+row))
		}
	}

	for i, ch := range input {
		cons.WriteChar(ch)
		if _, row := cons.Cursor(); row >= rows {
			t.Fatalf("cursor row %d out of bounds after %d characters", row, i+1)
		}
	}

	if col, row := cons.Cursor(); col != 0 || row != rows-1 {
		t.Fatalf("expected cursor at (0,%d); got (%d,%d)", rows-1, col, row)
	}

	for col := uint32(0); col < cols; col++ {
		if cellMatches(cons, col, 0, 'A') {
			t.Fatalf("expected first row content to be scrolled out; cell %d still contains 'A'", col)
		}
		if !cellMatches(cons, col, 0, 'B') {
			t.Fatalf("expected cell (%d,0) to contain 'B' after scrolling", col)
		}
		if !cellMatches(cons, col, rows-2, 'D') {
			t.Fatalf("expected cell (%d,%d) to contain 'D' after scrolling", col, rows-2)
		}
		if !cellMatches(cons, col, rows-1, ' ') {
			t.Fatalf("expected last row to be cleared; cell %d is not", col)
		}
	}

	for i := padStart; i < uint32(len(pixels)); i++ {
		if pixels[i] != 0xee {
			t.Fatalf("expected padding below the text area to be preserved; byte %d is 0x%x", i, pixels[i])
		}
	}
}

func TestFbCursorBounds(t *testing.T) {
	defer (&emu.CPU{}).Install()()

	const cols, rows = 5, 3
	cons, _ := newTestFb(t, cols, rows, 3, PixelBGR)
	rng := rand.New(rand.NewSource(7))

	alphabet := []byte("ab \n\r\t\b\x00\x7f")
	for i := 0; i < 10000; i++ {
		cons.WriteChar(alphabet[rng.Intn(len(alphabet))])

		if col, row := cons.Cursor(); col >= cols || row >= rows {
			t.Fatalf("cursor (%d,%d) out of bounds after %d characters", col, row, i+1)
		}
	}
}

func TestFbClearAndColors(t *testing.T) {
	defer (&emu.CPU{}).Install()()

	cons, _ := newTestFb(t, 4, 2, 4, PixelRGB)
	cons.Write([]byte("hi\n"))

	white := color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	blue, _ := ColorByName("blue")
	cons.SetColors(white, blue)

	if fg, bg := cons.Colors(); fg != white || bg != blue {
		t.Fatalf("expected colors %v/%v; got %v/%v", white, blue, fg, bg)
	}

	cons.Clear()
	if col, row := cons.Cursor(); col != 0 || row != 0 {
		t.Fatalf("expected cursor at (0,0) after clear; got (%d,%d)", col, row)
	}

	w, h := cons.Dimensions(Pixels)
	for y := uint32(0); y < h; y++ {
		for x := uint32(0); x < w; x++ {
			if got := pixelAt(cons, x, y); !bytes.Equal(got, []byte{0x00, 0x00, 0xaa, 0x00}) {
				t.Fatalf("expected pixel (%d,%d) to be blue; got % x", x, y, got)
			}
		}
	}

	cons.WriteChar('#')
	if got := pixelAt(cons, 1, 0); !bytes.Equal(got, []byte{0xff, 0xff, 0xff, 0x00}) {
		t.Fatalf("expected white foreground pixel; got % x", got)
	}
}

func TestFbDriverIdentity(t *testing.T) {
	cons := NewFb(nil, 0, 0, 0, 4, PixelRGB)
	if got := cons.DriverName(); got != "fb_console" {
		t.Fatalf("unexpected driver name %q", got)
	}
	if major, minor, patch := cons.DriverVersion(); major != 0 || minor != 1 || patch != 0 {
		t.Fatalf("unexpected driver version %d.%d.%d", major, minor, patch)
	}
}

func TestFbGettersMaskInterrupts(t *testing.T) {
	defer (&emu.CPU{}).Install()()
	cons, _ := newTestFb(t, 4, 2, 4, PixelRGB)

	var disabled, restored int
	sync.SetInterruptControl(
		func() uint64 { disabled++; return 0 },
		func(uint64) { restored++ },
	)

	specs := []struct {
		descr string
		fn    func()
	}{
		{"Dimensions(Characters)", func() { cons.Dimensions(Characters) }},
		{"Dimensions(Pixels)", func() { cons.Dimensions(Pixels) }},
		{"Colors", func() { cons.Colors() }},
		{"Cursor", func() { cons.Cursor() }},
	}

	for _, spec := range specs {
		disabled, restored = 0, 0
		spec.fn()

		if disabled != 1 || restored != 1 {
			t.Errorf("%s: expected interrupts to be masked once and restored once; got %d/%d", spec.descr, disabled, restored)
		}
	}
}
