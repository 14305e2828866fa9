package pit

import (
	"bytes"
	"math"
	"constanos/device/emu"
	"constanos/device/pic"
	"constanos/kernel/irq"
	"testing"
)

func TestDivisor(t *testing.T) {
	specs := []struct {
		hz  uint32
		exp uint32
	}{
		{0, 0},
		{18, 66287},
		{19, 62799},
		{100, 11931},
		{1000, 1193},
		{596591, 2},
		{596592, 1},
		{BaseFrequency, 1},
	}

	for specIndex, spec := range specs {
		if got := Divisor(spec.hz); got != spec.exp {
			t.Errorf("[spec %d] expected divisor for %dHz to be %d; got %d", specIndex, spec.hz, spec.exp, got)
		}
	}
}

func TestConfigure(t *testing.T) {
	m := emu.NewMachine()
	timer := New(m.Bus)

	if err := timer.Configure(100); err != nil {
		t.Fatal(err)
	}

	exp := []emu.Access{
		{Port: 0x43, Value: 0x34, Write: true},
		{Port: 0x40, Value: 0x9b, Write: true},
		{Port: 0x40, Value: 0x2e, Write: true},
	}
	got := m.Bus.Writes(0x40, 0x43)
	if len(got) != len(exp) {
		t.Fatalf("expected writes %v; got %v", exp, got)
	}
	for i := range exp {
		if got[i] != exp[i] {
			t.Fatalf("expected writes %v; got %v", exp, got)
		}
	}

	if reload, ok := m.PIT.Reload(); !ok || reload != 11931 {
		t.Fatalf("expected emulated PIT reload 11931; got %d (complete: %t)", reload, ok)
	}

	if got := m.PIT.Mode(); got != 2 {
		t.Fatalf("expected rate generator mode; got %d", got)
	}

	if got := timer.Frequency(); got != 100 {
		t.Fatalf("expected frequency 100; got %d", got)
	}
}

func TestConfigureOutOfRange(t *testing.T) {
	for _, hz := range []uint32{0, 1, 18, 596592, BaseFrequency, 0xffffffff} {
		m := emu.NewMachine()
		timer := New(m.Bus)

		if err := timer.Configure(hz); err != errInvalidFrequency {
			t.Errorf("expected errInvalidFrequency for %dHz; got %v", hz, err)
		}

		if got := len(m.Bus.Trace()); got != 0 {
			t.Errorf("expected no port writes for %dHz; got %d", hz, got)
		}

		if got := timer.Frequency(); got != 0 {
			t.Errorf("expected frequency to remain unset for %dHz; got %d", hz, got)
		}
	}
}

func TestTicks(t *testing.T) {
	m := emu.NewMachine()
	defer m.CPU.Install()()
	m.CPU.EnableInterrupts()

	controller := pic.New(m.Bus)
	if err := controller.Remap(pic.DefaultMasterOffset, pic.DefaultSlaveOffset); err != nil {
		t.Fatal(err)
	}

	timer := New(m.Bus)
	if err := timer.Configure(DefaultFrequency); err != nil {
		t.Fatal(err)
	}

	var (
		table       irq.Table
		keyHandlers int
	)
	if err := table.Install(controller.Vector(Line), controller.Handler(Line, timer.HandleIRQ), irq.GateOptions{}); err != nil {
		t.Fatal(err)
	}
	if err := table.Install(controller.Vector(1), controller.Handler(1, func(*irq.Registers) { keyHandlers++ }), irq.GateOptions{}); err != nil {
		t.Fatal(err)
	}
	m.Connect(&table)

	for _, line := range []uint8{Line, 1} {
		if err := controller.Unmask(line); err != nil {
			t.Fatal(err)
		}
	}

	var prev uint64
	for i := 0; i < 100; i++ {
		m.Tick(1)

		got := timer.Ticks()
		if got <= prev {
			t.Fatalf("expected tick counter to increase; got %d after %d", got, prev)
		}
		prev = got

		// Keyboard interrupts in between must not affect the counter.
		if i%10 == 0 {
			m.Press(0x1e, 0x9e)
			if timer.Ticks() != got {
				t.Fatal("expected keyboard interrupts not to change the tick counter")
			}
		}
	}

	if got := timer.Ticks(); got != 100 {
		t.Fatalf("expected 100 ticks; got %d", got)
	}

	if keyHandlers != 20 {
		t.Fatalf("expected 20 keyboard interrupts; got %d", keyHandlers)
	}

	if got := timer.Uptime(); got != 1000 {
		t.Fatalf("expected uptime of 1000ms; got %d", got)
	}
}

func TestUptime(t *testing.T) {
	specs := []struct {
		hz    uint32
		ticks uint64
		exp   uint64
	}{
		{0, 10, 0},
		{100, 0, 0},
		{100, 1, 10},
		{1000, 2500, 2500},
		{300, 1, 3},
		{300, 299, 996},
	}

	for specIndex, spec := range specs {
		timer := &Timer{hz: spec.hz, ticks: spec.ticks}
		if got := timer.Uptime(); got != spec.exp {
			t.Errorf("[spec %d] expected uptime %d; got %d", specIndex, spec.exp, got)
		}
	}
}

func TestDriverInit(t *testing.T) {
	timer := New(emu.NewBus())
	if err := timer.Configure(1000); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := timer.DriverInit(&buf); err != nil {
		t.Fatal(err)
	}

	if exp, got := "channel 0 at 1000Hz (divisor 1193)\n", buf.String(); got != exp {
		t.Fatalf("expected %q; got %q", exp, got)
	}

	if timer.DriverName() != "pit8254" {
		t.Fatalf("unexpected driver name %q", timer.DriverName())
	}
}

func TestTickCounterWraps(t *testing.T) {
	timer := New(emu.NewBus())
	timer.ticks = math.MaxUint64

	timer.HandleIRQ(nil)
	if got := timer.Ticks(); got != 0 {
		t.Fatalf("expected the tick counter to wrap to 0; got %d", got)
	}

	timer.HandleIRQ(nil)
	if got := timer.Ticks(); got != 1 {
		t.Fatalf("expected 1 tick after the wrap; got %d", got)
	}
}

func TestUptimeLargeTickCount(t *testing.T) {
	timer := New(emu.NewBus())
	if err := timer.Configure(1000); err != nil {
		t.Fatal(err)
	}

	// ticks * 1000 would overflow here.
	timer.ticks = math.MaxUint64 / 10
	if exp, got := uint64(math.MaxUint64/10), timer.Uptime(); got != exp {
		t.Fatalf("expected uptime %d; got %d", exp, got)
	}
}
