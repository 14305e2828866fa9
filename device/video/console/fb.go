package console

import (
	"constanos/device/video/console/font"
	"constanos/kernel"
	"constanos/kernel/kfmt"
	"constanos/kernel/sync"
	"image/color"
	"io"
)

// PixelFormat describes the byte order of a framebuffer pixel.
type PixelFormat uint8

// The supported pixel formats.
const (
	// PixelRGB stores red in the lowest address.
	PixelRGB PixelFormat = iota

	// PixelBGR stores blue in the lowest address.
	PixelBGR

	// PixelU8 stores a single grayscale intensity byte.
	PixelU8
)

const (
	tabWidth = 4

	// replacementChar is rendered for bytes without a printable glyph.
	replacementChar = '?'
)

var (
	errUnsupportedBpp = &kernel.Error{Module: "fb_console", Message: "unsupported bytes per pixel value"}
	errBufferTooSmall = &kernel.Error{Module: "fb_console", Message: "framebuffer smaller than its declared geometry"}
	errNoFont         = &kernel.Error{Module: "fb_console", Message: "no font fits the framebuffer"}
)

// Fb renders text on a linear framebuffer using a bitmap font. The pixel
// buffer is borrowed from the boot loader; Fb writes directly into it without
// double buffering.
//
// All exported methods serialize on an IRQSpinlock so the console can be used
// both from the idle loop and from interrupt handlers.
type Fb struct {
	lock sync.IRQSpinlock

	pixels []byte

	// Framebuffer geometry in pixels. stride is the number of pixels per
	// scanline and may exceed width.
	width, height, stride uint32
	bytesPerPixel         uint32
	format                PixelFormat

	font *font.Font

	// Console dimensions in characters
	cols, rows uint32

	// 0-based cursor position in characters.
	col, row uint32

	fg, bg           color.RGBA
	fgPixel, bgPixel [4]byte
}

// NewFb returns a console for the supplied framebuffer. The console renders
// nothing until DriverInit has selected a font. Framebuffers with one byte per
// pixel are always treated as grayscale.
func NewFb(pixels []byte, width, height, stride, bytesPerPixel uint32, format PixelFormat) *Fb {
	if bytesPerPixel == 1 {
		format = PixelU8
	}

	cons := &Fb{
		pixels:        pixels,
		width:         width,
		height:        height,
		stride:        stride,
		bytesPerPixel: bytesPerPixel,
		format:        format,
	}
	cons.setColors(DefaultForeground, DefaultBackground)
	return cons
}

// SetFont selects a bitmap font to be used by the console and resets the
// cursor.
func (cons *Fb) SetFont(f *font.Font) {
	if f == nil {
		return
	}

	cons.lock.Acquire()
	defer cons.lock.Release()

	cons.font = f
	cons.cols = cons.width / f.GlyphWidth
	cons.rows = cons.height / f.GlyphHeight
	cons.col, cons.row = 0, 0
}

// Dimensions returns the console width and height in the specified dimension.
func (cons *Fb) Dimensions(dim Dimension) (uint32, uint32) {
	cons.lock.Acquire()
	defer cons.lock.Release()

	switch dim {
	case Characters:
		return cons.cols, cons.rows
	default:
		return cons.width, cons.height
	}
}

// Cursor returns the 0-based column and row of the cursor.
func (cons *Fb) Cursor() (col, row uint32) {
	cons.lock.Acquire()
	defer cons.lock.Release()

	return cons.col, cons.row
}

// Colors returns the active foreground and background colors.
func (cons *Fb) Colors() (fg, bg color.RGBA) {
	cons.lock.Acquire()
	defer cons.lock.Release()

	return cons.fg, cons.bg
}

// SetColors changes the colors used for subsequent output. Content that is
// already on screen keeps its colors.
func (cons *Fb) SetColors(fg, bg color.RGBA) {
	cons.lock.Acquire()
	defer cons.lock.Release()

	cons.setColors(fg, bg)
}

func (cons *Fb) setColors(fg, bg color.RGBA) {
	cons.fg, cons.bg = fg, bg
	cons.fgPixel = cons.encode(fg)
	cons.bgPixel = cons.encode(bg)
}

// encode converts c into the byte layout of a framebuffer pixel.
func (cons *Fb) encode(c color.RGBA) [4]byte {
	switch cons.format {
	case PixelBGR:
		return [4]byte{c.B, c.G, c.R, 0}
	case PixelU8:
		// ITU-R BT.601 luma
		luma := (299*uint32(c.R) + 587*uint32(c.G) + 114*uint32(c.B)) / 1000
		return [4]byte{uint8(luma)}
	default:
		return [4]byte{c.R, c.G, c.B, 0}
	}
}

// Clear fills the framebuffer with the background color and moves the cursor
// to the top-left cell.
func (cons *Fb) Clear() {
	cons.lock.Acquire()
	defer cons.lock.Release()

	cons.fillRows(0, cons.height)
	cons.col, cons.row = 0, 0
}

// WriteChar renders ch at the cursor position and advances the cursor,
// wrapping at the end of a line and scrolling once the last row is full.
// The control characters '\n', '\r', '\t' and '\b' move the cursor; other
// bytes without a printable glyph are rendered as '?'.
func (cons *Fb) WriteChar(ch byte) {
	cons.lock.Acquire()
	defer cons.lock.Release()

	cons.writeChar(ch)
}

// Write implements io.Writer. The whole buffer is rendered while holding the
// console lock so output from interrupt handlers never interleaves with it.
func (cons *Fb) Write(p []byte) (int, error) {
	cons.lock.Acquire()
	defer cons.lock.Release()

	for _, ch := range p {
		cons.writeChar(ch)
	}

	return len(p), nil
}

func (cons *Fb) writeChar(ch byte) {
	if cons.font == nil || cons.cols == 0 || cons.rows == 0 {
		return
	}

	switch ch {
	case '\n':
		cons.newLine()
	case '\r':
		cons.col = 0
	case '\t':
		cons.col = (cons.col/tabWidth + 1) * tabWidth
		if cons.col >= cons.cols {
			cons.newLine()
		}
	case '\b':
		switch {
		case cons.col > 0:
			cons.col--
		case cons.row > 0:
			cons.row--
			cons.col = cons.cols - 1
		default:
			return
		}
		cons.drawGlyph(' ', cons.col, cons.row)
	default:
		if ch < ' ' || ch > '~' || cons.font.Glyph(ch) == nil {
			ch = replacementChar
		}

		cons.drawGlyph(ch, cons.col, cons.row)
		cons.col++
		if cons.col == cons.cols {
			cons.newLine()
		}
	}
}

// newLine moves the cursor to the first column of the next row, scrolling the
// console if the cursor is on the last row.
func (cons *Fb) newLine() {
	cons.col = 0
	if cons.row+1 < cons.rows {
		cons.row++
		return
	}

	cons.scrollUp()
}

// scrollUp moves the contents of the text area one glyph row up and clears
// the last glyph row.
func (cons *Fb) scrollUp() {
	pitch := cons.stride * cons.bytesPerPixel
	glyphRowBytes := pitch * cons.font.GlyphHeight
	textBytes := glyphRowBytes * cons.rows

	copy(cons.pixels[:textBytes-glyphRowBytes], cons.pixels[glyphRowBytes:textBytes])
	cons.fillRows((cons.rows-1)*cons.font.GlyphHeight, cons.font.GlyphHeight)
}

// fillRows paints count pixel rows starting at pixel row y with the
// background color.
func (cons *Fb) fillRows(y, count uint32) {
	pitch := cons.stride * cons.bytesPerPixel
	rowBytes := cons.width * cons.bytesPerPixel
	for ; count > 0 && y < cons.height; y, count = y+1, count-1 {
		offset := y * pitch
		kernel.Fill(cons.pixels[offset:offset+rowBytes], cons.bgPixel[:cons.bytesPerPixel])
	}
}

// drawGlyph renders ch into the cell at (col, row).
func (cons *Fb) drawGlyph(ch byte, col, row uint32) {
	var (
		f        = cons.font
		glyph    = f.Glyph(ch)
		pitch    = cons.stride * cons.bytesPerPixel
		rowStart = row*f.GlyphHeight*pitch + col*f.GlyphWidth*cons.bytesPerPixel
		pixel    []byte
	)

	for y := uint32(0); y < f.GlyphHeight; y, rowStart = y+1, rowStart+pitch {
		glyphRow := glyph[y*f.BytesPerRow : (y+1)*f.BytesPerRow]
		offset := rowStart
		for x := uint32(0); x < f.GlyphWidth; x, offset = x+1, offset+cons.bytesPerPixel {
			if f.PixelSet(glyphRow, x) {
				pixel = cons.fgPixel[:cons.bytesPerPixel]
			} else {
				pixel = cons.bgPixel[:cons.bytesPerPixel]
			}
			copy(cons.pixels[offset:offset+cons.bytesPerPixel], pixel)
		}
	}
}

// DriverName returns the name of this driver.
func (cons *Fb) DriverName() string {
	return "fb_console"
}

// DriverVersion returns the version of this driver.
func (cons *Fb) DriverVersion() (uint16, uint16, uint16) {
	return 0, 1, 0
}

// DriverInit validates the framebuffer geometry, selects the best fitting
// font and clears the screen.
func (cons *Fb) DriverInit(w io.Writer) *kernel.Error {
	switch cons.bytesPerPixel {
	case 1, 3, 4:
	default:
		return errUnsupportedBpp
	}

	if cons.stride < cons.width || uint64(len(cons.pixels)) < uint64(cons.stride)*uint64(cons.height)*uint64(cons.bytesPerPixel) {
		return errBufferTooSmall
	}

	if cons.format == PixelU8 && cons.bytesPerPixel != 1 {
		return errUnsupportedBpp
	}

	f := font.BestFit(cons.width, cons.height)
	if f == nil || f.GlyphWidth > cons.width || f.GlyphHeight > cons.height {
		return errNoFont
	}

	cons.SetFont(f)
	cons.Clear()

	kfmt.Fprintf(w, "%dx%d, %d bytes per pixel, font %s (%dx%d characters)\n",
		cons.width, cons.height, cons.bytesPerPixel, f.Name, cons.cols, cons.rows)
	return nil
}
