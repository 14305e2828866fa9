package hal

import (
	"constanos/device/pic"
	"constanos/device/pit"
	"constanos/device/video/console"
	"constanos/kernel"
	"constanos/kernel/hal/bootinfo"
	"image/color"
)

// Config controls how the interrupt core is brought up.
type Config struct {
	// TimerHz is the tick rate of the PIT.
	TimerHz uint32

	// Vector offsets for the master and slave PIC.
	MasterOffset uint8
	SlaveOffset  uint8

	// Serial enables diagnostic output on COM1.
	Serial bool

	// Console colors and an optional font name. If the font is empty or
	// unknown, the best fitting font for the framebuffer is used.
	ConsoleFg   color.RGBA
	ConsoleBg   color.RGBA
	ConsoleFont string
}

// DefaultConfig returns the configuration used when the command line does
// not override anything.
func DefaultConfig() Config {
	return Config{
		TimerHz:      pit.DefaultFrequency,
		MasterOffset: pic.DefaultMasterOffset,
		SlaveOffset:  pic.DefaultSlaveOffset,
		Serial:       true,
		ConsoleFg:    console.DefaultForeground,
		ConsoleBg:    console.DefaultBackground,
	}
}

var (
	errInvalidTimerHz = &kernel.Error{Module: "hal", Message: "invalid timer_hz value"}
	errInvalidOffset  = &kernel.Error{Module: "hal", Message: "invalid pic_master/pic_slave value"}
	errInvalidSerial  = &kernel.Error{Module: "hal", Message: "serial must be on or off"}
	errInvalidColor   = &kernel.Error{Module: "hal", Message: "invalid console color"}
)

// ParseCmdLine applies the overrides found in cmdLine to cfg. Unknown keys
// are ignored so the command line can be shared with other consumers. The
// recognized keys are:
//
//	timer_hz=<decimal>
//	pic_master=<decimal|0xhex>
//	pic_slave=<decimal|0xhex>
//	serial=on|off
//	console_fg=<color name|#rrggbb>
//	console_bg=<color name|#rrggbb>
//	console_font=<font name>
//
// Range checks for the timer rate and the PIC offsets are left to the
// drivers.
func ParseCmdLine(cmdLine string, cfg *Config) *kernel.Error {
	var err *kernel.Error

	bootinfo.VisitCmdLine(cmdLine, func(key, value string) bool {
		switch key {
		case "timer_hz":
			hz, ok := parseUint(value, 0xffffffff)
			if !ok {
				err = errInvalidTimerHz
				break
			}
			cfg.TimerHz = uint32(hz)
		case "pic_master", "pic_slave":
			offset, ok := parseUint(value, 0xff)
			if !ok {
				err = errInvalidOffset
				break
			}

			if key == "pic_master" {
				cfg.MasterOffset = uint8(offset)
			} else {
				cfg.SlaveOffset = uint8(offset)
			}
		case "serial":
			switch value {
			case "on":
				cfg.Serial = true
			case "off":
				cfg.Serial = false
			default:
				err = errInvalidSerial
			}
		case "console_fg", "console_bg":
			c, ok := parseColor(value)
			if !ok {
				err = errInvalidColor
				break
			}

			if key == "console_fg" {
				cfg.ConsoleFg = c
			} else {
				cfg.ConsoleBg = c
			}
		case "console_font":
			cfg.ConsoleFont = value
		}

		return err == nil
	})

	return err
}

// parseUint parses a decimal or 0x-prefixed hex number that must not exceed
// max.
func parseUint(s string, max uint64) (uint64, bool) {
	base := uint64(10)
	if len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		base, s = 16, s[2:]
	}

	if len(s) == 0 {
		return 0, false
	}

	var val uint64
	for i := 0; i < len(s); i++ {
		digit, ok := hexDigit(s[i])
		if !ok || digit >= base {
			return 0, false
		}

		val = val*base + digit
		if val > max {
			return 0, false
		}
	}

	return val, true
}

// parseColor accepts one of the EGA color names or a #rrggbb triplet.
func parseColor(s string) (color.RGBA, bool) {
	if c, ok := console.ColorByName(s); ok {
		return c, true
	}

	if len(s) != 7 || s[0] != '#' {
		return color.RGBA{}, false
	}

	var rgb [3]uint8
	for i := range rgb {
		hi, okHi := hexDigit(s[1+2*i])
		lo, okLo := hexDigit(s[2+2*i])
		if !okHi || !okLo {
			return color.RGBA{}, false
		}
		rgb[i] = uint8(hi<<4 | lo)
	}

	return color.RGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: 0xff}, true
}

func hexDigit(ch byte) (uint64, bool) {
	switch {
	case ch >= '0' && ch <= '9':
		return uint64(ch - '0'), true
	case ch >= 'a' && ch <= 'f':
		return uint64(ch-'a') + 10, true
	case ch >= 'A' && ch <= 'F':
		return uint64(ch-'A') + 10, true
	}

	return 0, false
}
