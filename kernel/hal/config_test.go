package hal

import (
	"constanos/device/video/console"
	"constanos/kernel"
	"image/color"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.TimerHz != 100 {
		t.Errorf("expected default timer rate 100; got %d", cfg.TimerHz)
	}

	if cfg.MasterOffset != 32 || cfg.SlaveOffset != 40 {
		t.Errorf("expected default offsets 32/40; got %d/%d", cfg.MasterOffset, cfg.SlaveOffset)
	}

	if !cfg.Serial {
		t.Error("expected serial output to be enabled by default")
	}

	if cfg.ConsoleFont != "" {
		t.Errorf("expected no font override; got %q", cfg.ConsoleFont)
	}
}

func TestParseCmdLine(t *testing.T) {
	white := color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	blue := color.RGBA{B: 0xaa, A: 0xff}

	specs := []struct {
		cmdLine string
		expErr  *kernel.Error
		check   func(Config) bool
	}{
		{
			"",
			nil,
			func(cfg Config) bool { return cfg == DefaultConfig() },
		},
		{
			"quiet root=/dev/sda1 timer_hz=1000",
			nil,
			func(cfg Config) bool { return cfg.TimerHz == 1000 },
		},
		{
			"pic_master=0x50 pic_slave=96",
			nil,
			func(cfg Config) bool { return cfg.MasterOffset == 0x50 && cfg.SlaveOffset == 96 },
		},
		{
			"pic_master=0XF8",
			nil,
			func(cfg Config) bool { return cfg.MasterOffset == 0xf8 },
		},
		{
			"serial=off",
			nil,
			func(cfg Config) bool { return !cfg.Serial },
		},
		{
			"serial=off serial=on",
			nil,
			func(cfg Config) bool { return cfg.Serial },
		},
		{
			"console_fg=white console_bg=blue",
			nil,
			func(cfg Config) bool { return cfg.ConsoleFg == white && cfg.ConsoleBg == blue },
		},
		{
			"console_fg=#10Af3c",
			nil,
			func(cfg Config) bool { return cfg.ConsoleFg == color.RGBA{R: 0x10, G: 0xaf, B: 0x3c, A: 0xff} },
		},
		{
			"console_font=font8x8",
			nil,
			func(cfg Config) bool { return cfg.ConsoleFont == "font8x8" },
		},
		{"timer_hz=", errInvalidTimerHz, nil},
		{"timer_hz=12a", errInvalidTimerHz, nil},
		{"timer_hz=4294967296", errInvalidTimerHz, nil},
		{"timer_hz=-5", errInvalidTimerHz, nil},
		{"pic_master=256", errInvalidOffset, nil},
		{"pic_slave=0x", errInvalidOffset, nil},
		{"pic_slave=0x1g", errInvalidOffset, nil},
		{"serial=yes", errInvalidSerial, nil},
		{"console_fg=pink", errInvalidColor, nil},
		{"console_bg=#12345", errInvalidColor, nil},
		{"console_bg=#12345z", errInvalidColor, nil},
	}

	for specIndex, spec := range specs {
		cfg := DefaultConfig()
		err := ParseCmdLine(spec.cmdLine, &cfg)
		if err != spec.expErr {
			t.Errorf("[spec %d] expected error %v; got %v", specIndex, spec.expErr, err)
			continue
		}

		if spec.check != nil && !spec.check(cfg) {
			t.Errorf("[spec %d] unexpected config for %q: %+v", specIndex, spec.cmdLine, cfg)
		}
	}
}

func TestParseCmdLineStopsAtFirstError(t *testing.T) {
	cfg := DefaultConfig()
	if err := ParseCmdLine("timer_hz=50 serial=maybe timer_hz=200", &cfg); err != errInvalidSerial {
		t.Fatalf("expected errInvalidSerial; got %v", err)
	}

	if cfg.TimerHz != 50 {
		t.Fatalf("expected options after the invalid one to be ignored; got timer_hz=%d", cfg.TimerHz)
	}
}

func TestSelectFont(t *testing.T) {
	_, c, restore := setupCore(t, Config{
		TimerHz:      100,
		MasterOffset: 32,
		SlaveOffset:  40,
		ConsoleFg:    color.RGBA{R: 0xff, A: 0xff},
		ConsoleFont:  "no-such-font",
	}, true)
	defer restore()

	if c.Console == nil {
		t.Fatal("expected console to be initialized")
	}

	if fg, _ := c.Console.Colors(); fg != (color.RGBA{R: 0xff, A: 0xff}) {
		t.Errorf("expected configured foreground color; got %+v", fg)
	}

	if cols, rows := c.Console.Dimensions(console.Characters); cols != testCols || rows != testRows {
		t.Errorf("expected the fallback font to give %dx%d characters; got %dx%d", testCols, testRows, cols, rows)
	}
}
