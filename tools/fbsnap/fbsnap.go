package main

import (
	"errors"
	"flag"
	"fmt"
	"image"
	"image/color"
	"os"
	"strings"

	"constanos/device/emu"
	"constanos/device/video/console"
	"constanos/kernel/hal"

	"github.com/fogleman/gg"
)

const (
	bytesPerPixel = 4

	// Height of the annotation strip below the framebuffer.
	footerHeight = 24
)

func exit(err error) {
	fmt.Fprintf(os.Stderr, "[fbsnap] error: %s\n", err.Error())
	os.Exit(1)
}

// snapshot holds the state of the emulated machine after a run.
type snapshot struct {
	fb     *image.RGBA
	ticks  uint64
	uptime uint64
	irqs   int
	col    uint32
	row    uint32
	serial string
}

// run boots the interrupt core on an emulated chipset with a cols x rows
// framebuffer console, lets the timer fire ticks times and types text
// through the keyboard controller.
func run(cols, rows uint32, cmdLine, text string, ticks int) (*snapshot, error) {
	m := emu.NewMachine()
	defer m.CPU.Install()()

	cfg := hal.DefaultConfig()
	if err := hal.ParseCmdLine(cmdLine, &cfg); err != nil {
		return nil, err
	}

	width, height := cols*8, rows*8
	pixels := make([]byte, width*height*bytesPerPixel)
	fb := console.NewFb(pixels, width, height, width, bytesPerPixel, console.PixelRGB)

	core := hal.NewCore(m.Bus, fb, cfg)
	if err := core.Setup(); err != nil {
		return nil, err
	}
	if core.Console == nil {
		return nil, errors.New("framebuffer console failed to initialize")
	}

	// Start would load the IDT into the host CPU; route delivery through the
	// emulated machine instead.
	m.Connect(&core.IDT)
	m.CPU.EnableInterrupts()

	m.Tick(ticks)
	m.Type(text)

	snap := &snapshot{
		fb:     image.NewRGBA(image.Rect(0, 0, int(width), int(height))),
		ticks:  core.Timer.Ticks(),
		uptime: core.Timer.Uptime(),
		irqs:   len(m.Delivered()),
		serial: m.UART.Output(),
	}
	snap.col, snap.row = core.Console.Cursor()

	for i := 0; i < int(width*height); i++ {
		src := pixels[i*bytesPerPixel:]
		snap.fb.Pix[i*4+0] = src[0]
		snap.fb.Pix[i*4+1] = src[1]
		snap.fb.Pix[i*4+2] = src[2]
		snap.fb.Pix[i*4+3] = 0xff
	}

	return snap, nil
}

// scale enlarges img by an integer factor without smoothing so that glyph
// pixels stay sharp.
func scale(img *image.RGBA, factor int) *image.RGBA {
	if factor <= 1 {
		return img
	}

	bounds := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, bounds.Dx()*factor, bounds.Dy()*factor))
	for y := 0; y < out.Bounds().Dy(); y++ {
		for x := 0; x < out.Bounds().Dx(); x++ {
			out.SetRGBA(x, y, img.RGBAAt(x/factor, y/factor))
		}
	}

	return out
}

// render draws the framebuffer and an annotation strip with the machine
// counters.
func render(snap *snapshot, factor int) *gg.Context {
	img := scale(snap.fb, factor)
	width, height := img.Bounds().Dx(), img.Bounds().Dy()

	dc := gg.NewContext(width, height+footerHeight)
	dc.SetColor(color.Black)
	dc.Clear()
	dc.DrawImage(img, 0, 0)

	dc.SetRGB255(0x55, 0x55, 0x55)
	dc.DrawLine(0, float64(height)+0.5, float64(width), float64(height)+0.5)
	dc.Stroke()

	dc.SetColor(console.DefaultForeground)
	dc.DrawStringAnchored(
		fmt.Sprintf("ticks %d  uptime %dms  irqs %d  cursor %d,%d", snap.ticks, snap.uptime, snap.irqs, snap.col, snap.row),
		6, float64(height)+footerHeight/2, 0, 0.35,
	)

	return dc
}

func runTool() error {
	cols := flag.Uint("cols", 80, "console width in characters")
	rows := flag.Uint("rows", 25, "console height in characters")
	cmdLine := flag.String("cmdline", "", "boot command line passed to the interrupt core")
	text := flag.String("text", "Hello, World!\n", "text typed through the emulated keyboard")
	ticks := flag.Int("ticks", 100, "number of timer interrupts to raise before typing")
	factor := flag.Int("scale", 2, "integer zoom factor for the output image")
	verbose := flag.Bool("v", false, "print the serial console output to STDOUT")
	output := flag.String("out", "fb.png", "the PNG file to write")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, "fbsnap: boot the interrupt core on an emulated chipset and save the framebuffer\n\n")
		fmt.Fprint(os.Stderr, "Usage: fbsnap [options]\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *cols == 0 || *rows == 0 || *cols > 512 || *rows > 256 {
		exit(errors.New("console dimensions must be between 1x1 and 512x256 characters"))
	}

	if *factor < 1 || *factor > 8 {
		exit(errors.New("scale must be between 1 and 8"))
	}

	snap, err := run(uint32(*cols), uint32(*rows), *cmdLine, unescape(*text), *ticks)
	if err != nil {
		return err
	}

	if *verbose {
		fmt.Print(strings.ReplaceAll(snap.serial, "\r\n", "\n"))
	}

	return render(snap, *factor).SavePNG(*output)
}

// unescape expands the \n and \t sequences that shells pass through
// literally.
func unescape(s string) string {
	return strings.NewReplacer(`\n`, "\n", `\t`, "\t").Replace(s)
}

func main() {
	if err := runTool(); err != nil {
		exit(err)
	}
}
