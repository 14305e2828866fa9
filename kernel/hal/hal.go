// Package hal brings up the interrupt core: it owns the device drivers, wires
// their interrupt handlers into the IDT and enables interrupts once every
// line has a handler.
package hal

import (
	"bytes"
	"constanos/device"
	"constanos/device/keyboard"
	"constanos/device/pic"
	"constanos/device/pit"
	"constanos/device/port"
	"constanos/device/serial"
	"constanos/device/video/console"
	"constanos/device/video/console/font"
	"constanos/kernel"
	"constanos/kernel/cpu"
	"constanos/kernel/hal/bootinfo"
	"constanos/kernel/irq"
	"constanos/kernel/kfmt"
	"constanos/kernel/sync"
	"io"
)

// Lines 7 and 15 receive spurious interrupts and always get a handler.
const (
	spuriousMasterLine = 7
	spuriousSlaveLine  = 15
)

var (
	// The following functions are mocked by tests and are automatically
	// inlined by the compiler.
	loadIDTFn          = (*irq.Table).Load
	enableInterruptsFn = cpu.EnableInterrupts

	errNoBootInfo = &kernel.Error{Module: "hal", Message: "boot info not available"}

	// strBuf is used to build the per-driver log prefix and driverLog
	// injects it into the output of DriverInit.
	strBuf    bytes.Buffer
	driverLog kfmt.PrefixWriter
)

// Core holds every device driver of the interrupt core together with the IDT
// that routes their interrupts.
type Core struct {
	Config Config

	PIC      *pic.Controller
	Timer    *pit.Timer
	Keyboard *keyboard.Driver
	Serial   *serial.UART

	// Console is nil if no usable framebuffer was found.
	Console *console.Fb

	IDT irq.Table

	// out receives kfmt output once the console or serial port is up.
	out outputMux

	// echo writes key presses to the console. It stays nil without one.
	echo keyboard.Sink

	// activeDrivers tracks all initialized device drivers.
	activeDrivers []device.Driver
}

// NewCore creates the drivers of the interrupt core. All port I/O goes
// through ports. fb may be nil when no framebuffer is available.
func NewCore(ports port.Port, fb *console.Fb, cfg Config) *Core {
	c := &Core{
		Config:  cfg,
		PIC:     pic.New(ports),
		Timer:   pit.New(ports),
		Console: fb,
	}

	if cfg.Serial {
		c.Serial = serial.New(ports, serial.COM1)
	}

	c.Keyboard = keyboard.NewDriver(ports, c.echoKey)
	return c
}

// echoKey forwards key presses to the console.
func (c *Core) echoKey(ev keyboard.KeyEvent) {
	if c.echo != nil {
		c.echo(ev)
	}
}

// Setup brings the hardware into a state where interrupts can be enabled:
//
//  1. initialize the serial port and console and route kfmt output to them
//  2. remap the PIC pair so hardware lines do not overlap CPU exceptions
//  3. register the exception and IRQ handlers in the IDT
//  4. program the PIT
//  5. unmask the timer and keyboard lines
//
// Interrupts stay disabled; Start loads the IDT and enables them.
func (c *Core) Setup() *kernel.Error {
	c.initOutput()

	if err := c.PIC.Remap(c.Config.MasterOffset, c.Config.SlaveOffset); err != nil {
		return err
	}

	if err := c.installHandlers(); err != nil {
		return err
	}

	if err := c.Timer.Configure(c.Config.TimerHz); err != nil {
		return err
	}

	for _, drv := range []device.Driver{c.PIC, c.Timer, c.Keyboard} {
		if err := c.initDriver(drv); err != nil {
			return err
		}
	}

	for _, line := range []uint8{pit.Line, keyboard.Line} {
		if err := c.PIC.Unmask(line); err != nil {
			return err
		}
	}

	return nil
}

// Start activates the IDT and enables interrupts. It must only be called
// after Setup succeeded.
func (c *Core) Start() {
	loadIDTFn(&c.IDT)
	enableInterruptsFn()
}

// initOutput initializes the optional output devices. Failures are logged
// but are not fatal; the kernel can run without a console.
func (c *Core) initOutput() {
	var sinks []io.Writer

	if c.Serial != nil {
		if err := c.initDriver(c.Serial); err == nil {
			sinks = append(sinks, c.Serial)
		} else {
			c.Serial = nil
		}
	}

	if c.Console != nil {
		c.Console.SetColors(c.Config.ConsoleFg, c.Config.ConsoleBg)
		if err := c.initDriver(c.Console); err == nil {
			c.selectFont()
			c.echo = keyboard.ConsoleSink(c.Console)
			sinks = append(sinks, c.Console)
		} else {
			c.Console = nil
		}
	}

	if len(sinks) == 0 {
		return
	}

	c.out.sinks = sinks
	kfmt.SetOutputSink(&c.out)
}

// selectFont applies the font requested on the command line, if any.
func (c *Core) selectFont() {
	if c.Config.ConsoleFont == "" {
		return
	}

	if f := font.FindByName(c.Config.ConsoleFont); f != nil {
		c.Console.SetFont(f)
		c.Console.Clear()
	}
}

// installHandlers fills in the IDT: CPU exceptions, the timer and keyboard
// lines and the two lines that may see spurious interrupts.
func (c *Core) installHandlers() *kernel.Error {
	if err := c.IDT.InstallExceptionHandlers(); err != nil {
		return err
	}

	handlers := []struct {
		line uint8
		fn   func(*irq.Registers)
	}{
		{pit.Line, c.Timer.HandleIRQ},
		{keyboard.Line, c.Keyboard.HandleIRQ},
		{spuriousMasterLine, ignoreIRQ},
		{spuriousSlaveLine, ignoreIRQ},
	}

	for _, h := range handlers {
		if err := c.IDT.Install(c.PIC.Vector(h.line), c.PIC.Handler(h.line, h.fn), irq.GateOptions{}); err != nil {
			return err
		}
	}

	return nil
}

func ignoreIRQ(_ *irq.Registers) {}

// initDriver runs the DriverInit method of drv with a writer that prefixes
// each output line with the driver name and version.
func (c *Core) initDriver(drv device.Driver) *kernel.Error {
	strBuf.Reset()
	major, minor, patch := drv.DriverVersion()
	kfmt.Fprintf(&strBuf, "[hal] %s(%d.%d.%d): ", drv.DriverName(), major, minor, patch)
	driverLog.Reset(kfmt.GetOutputSink(), strBuf.Bytes())

	if err := drv.DriverInit(&driverLog); err != nil {
		kfmt.Fprintf(&driverLog, "init failed: %s\n", err.Message)
		return err
	}

	c.activeDrivers = append(c.activeDrivers, drv)
	return nil
}

// ActiveDrivers returns the drivers that were initialized successfully, in
// initialization order.
func (c *Core) ActiveDrivers() []device.Driver {
	return c.activeDrivers
}

// outputMux copies kfmt output to every attached sink.
type outputMux struct {
	sinks []io.Writer
}

func (m *outputMux) Write(p []byte) (int, error) {
	for _, w := range m.sinks {
		w.Write(p)
	}
	return len(p), nil
}

var (
	activeCore *Core
	initOnce   sync.Once
	initErr    *kernel.Error
)

// Init creates the interrupt core for the machine described by info and runs
// Setup. Only the first call has an effect; later calls return the result of
// the first one.
func Init(info *bootinfo.Info) *kernel.Error {
	initOnce.Do(func() {
		if info == nil {
			initErr = errNoBootInfo
			return
		}

		cfg := DefaultConfig()
		if initErr = ParseCmdLine(info.CmdLine(), &cfg); initErr != nil {
			return
		}

		activeCore = NewCore(port.Hardware{}, framebufferConsole(info), cfg)
		initErr = activeCore.Setup()
	})

	return initErr
}

// ActiveCore returns the core created by Init or nil.
func ActiveCore() *Core {
	return activeCore
}

// framebufferConsole wraps the boot framebuffer in a console or returns nil
// if the boot loader did not provide a framebuffer in a known format.
func framebufferConsole(info *bootinfo.Info) *console.Fb {
	pixels := info.Framebuffer()
	if pixels == nil {
		return nil
	}

	var format console.PixelFormat
	switch info.PixelFormat {
	case bootinfo.PixelRGB:
		format = console.PixelRGB
	case bootinfo.PixelBGR:
		format = console.PixelBGR
	case bootinfo.PixelU8:
		format = console.PixelU8
	default:
		return nil
	}

	return console.NewFb(pixels, info.Width, info.Height, info.Stride, info.BytesPerPixel, format)
}
