package pic

import (
	"bytes"
	"constanos/device/emu"
	"constanos/kernel"
	"constanos/kernel/irq"
	"testing"
)

func setupMachine(t *testing.T) (*emu.Machine, *Controller, func()) {
	m := emu.NewMachine()
	restore := m.CPU.Install()
	m.CPU.EnableInterrupts()

	c := New(m.Bus)
	if err := c.Remap(DefaultMasterOffset, DefaultSlaveOffset); err != nil {
		restore()
		t.Fatal(err)
	}
	m.Bus.ResetTrace()

	return m, c, restore
}

func TestRemap(t *testing.T) {
	m := emu.NewMachine()
	defer m.CPU.Install()()

	m.PIC.SetMasks(0xfa, 0xef)
	c := New(m.Bus)

	if err := c.Remap(32, 40); err != nil {
		t.Fatal(err)
	}

	exp := []emu.Access{
		{Port: 0x20, Value: 0x11, Write: true}, {Port: 0x80, Write: true},
		{Port: 0xa0, Value: 0x11, Write: true}, {Port: 0x80, Write: true},
		{Port: 0x21, Value: 32, Write: true}, {Port: 0x80, Write: true},
		{Port: 0xa1, Value: 40, Write: true}, {Port: 0x80, Write: true},
		{Port: 0x21, Value: 0x04, Write: true}, {Port: 0x80, Write: true},
		{Port: 0xa1, Value: 0x02, Write: true}, {Port: 0x80, Write: true},
		{Port: 0x21, Value: 0x01, Write: true}, {Port: 0x80, Write: true},
		{Port: 0xa1, Value: 0x01, Write: true}, {Port: 0x80, Write: true},
		{Port: 0x21, Value: 0xfa, Write: true},
		{Port: 0xa1, Value: 0xef, Write: true},
	}

	got := m.Bus.Writes(0x20, 0x21, 0xa0, 0xa1, 0x80)
	if len(got) != len(exp) {
		t.Fatalf("expected %d port writes; got %d: %v", len(exp), len(got), got)
	}
	for i := range exp {
		if got[i] != exp[i] {
			t.Errorf("write %d: expected %+v; got %+v", i, exp[i], got[i])
		}
	}

	if !m.PIC.Initialized() {
		t.Fatal("expected emulated controllers to complete initialization")
	}

	if master, slave := m.PIC.Offsets(); master != 32 || slave != 40 {
		t.Fatalf("expected offsets 32/40; got %d/%d", master, slave)
	}

	if master, slave := m.PIC.Masks(); master != 0xfa || slave != 0xef {
		t.Fatalf("expected masks to be preserved; got 0x%x/0x%x", master, slave)
	}

	if master, slave := c.Masks(); master != 0xfa || slave != 0xef {
		t.Fatalf("expected cached masks 0xfa/0xef; got 0x%x/0x%x", master, slave)
	}

	if err := c.Remap(32, 40); err != errAlreadyRemapped {
		t.Fatalf("expected errAlreadyRemapped; got %v", err)
	}
}

func TestRemapInvalidOffsets(t *testing.T) {
	m := emu.NewMachine()
	defer m.CPU.Install()()

	specs := []struct {
		master, slave uint8
	}{
		{0x08, 0x70},
		{32, 32},
		{33, 40},
		{32, 44},
		{48, 0},
	}

	for specIndex, spec := range specs {
		c := New(m.Bus)
		if err := c.Remap(spec.master, spec.slave); err != errInvalidOffset {
			t.Errorf("[spec %d] expected errInvalidOffset; got %v", specIndex, err)
		}
	}

	if got := len(m.Bus.Trace()); got != 0 {
		t.Fatalf("expected no port accesses for invalid offsets; got %d", got)
	}

	c := New(m.Bus)
	if err := c.Remap(0xf0, 0xf8); err != nil {
		t.Fatalf("expected offsets at the top of the vector space to be accepted; got %v", err)
	}
}

func TestMaskUnmask(t *testing.T) {
	m, c, restore := setupMachine(t)
	defer restore()

	m.PIC.SetMasks(0xff, 0xff)
	c.masks = [2]uint8{0xff, 0xff}

	specs := []struct {
		descr     string
		fn        func(uint8) *kernel.Error
		line      uint8
		expMaster uint8
		expSlave  uint8
		expWrites int
	}{
		{"unmask timer", c.Unmask, 0, 0xfe, 0xff, 1},
		{"unmask timer again", c.Unmask, 0, 0xfe, 0xff, 0},
		{"unmask keyboard", c.Unmask, 1, 0xfc, 0xff, 1},
		{"unmask slave line enables cascade", c.Unmask, 12, 0xf8, 0xef, 2},
		{"mask slave line", c.Mask, 12, 0xf8, 0xff, 1},
		{"mask timer", c.Mask, 0, 0xf9, 0xff, 1},
		{"mask timer again", c.Mask, 0, 0xf9, 0xff, 0},
	}

	for _, spec := range specs {
		t.Run(spec.descr, func(t *testing.T) {
			m.Bus.ResetTrace()
			if err := spec.fn(spec.line); err != nil {
				t.Fatal(err)
			}

			if master, slave := m.PIC.Masks(); master != spec.expMaster || slave != spec.expSlave {
				t.Errorf("expected hardware masks 0x%x/0x%x; got 0x%x/0x%x", spec.expMaster, spec.expSlave, master, slave)
			}

			if master, slave := c.Masks(); master != spec.expMaster || slave != spec.expSlave {
				t.Errorf("expected cached masks 0x%x/0x%x; got 0x%x/0x%x", spec.expMaster, spec.expSlave, master, slave)
			}

			if got := len(m.Bus.Writes(MasterDataPort, SlaveDataPort)); got != spec.expWrites {
				t.Errorf("expected %d mask register writes; got %d", spec.expWrites, got)
			}
		})
	}

	if err := c.Mask(16); err != errInvalidLine {
		t.Errorf("expected errInvalidLine from Mask; got %v", err)
	}
	if err := c.Unmask(200); err != errInvalidLine {
		t.Errorf("expected errInvalidLine from Unmask; got %v", err)
	}
}

func TestUnmaskBeforeRemap(t *testing.T) {
	m := emu.NewMachine()
	defer m.CPU.Install()()

	c := New(m.Bus)
	if err := c.Unmask(0); err != errNotRemapped {
		t.Fatalf("expected errNotRemapped; got %v", err)
	}

	if err := c.Mask(0); err != nil {
		t.Fatalf("expected masking to be allowed before remapping; got %v", err)
	}
}

func TestEndOfInterrupt(t *testing.T) {
	specs := []struct {
		line uint8
		exp  []emu.EOI
	}{
		{0, []emu.EOI{{}}},
		{1, []emu.EOI{{}}},
		{7, []emu.EOI{{}}},
		{8, []emu.EOI{{Slave: true}, {}}},
		{14, []emu.EOI{{Slave: true}, {}}},
		{15, []emu.EOI{{Slave: true}, {}}},
	}

	for _, spec := range specs {
		m, c, restore := setupMachine(t)

		var table irq.Table
		if err := table.Install(c.Vector(spec.line), c.Handler(spec.line, func(*irq.Registers) {}), irq.GateOptions{}); err != nil {
			t.Fatal(err)
		}
		m.Connect(&table)
		if err := c.Unmask(spec.line); err != nil {
			t.Fatal(err)
		}

		if got := m.Raise(spec.line); got != 1 {
			t.Errorf("[line %d] expected 1 delivered interrupt; got %d", spec.line, got)
		}

		got := m.PIC.EOIs()
		if len(got) != len(spec.exp) {
			t.Errorf("[line %d] expected EOIs %v; got %v", spec.line, spec.exp, got)
		} else {
			for i := range got {
				if got[i] != spec.exp[i] {
					t.Errorf("[line %d] expected EOIs %v; got %v", spec.line, spec.exp, got)
				}
			}
		}

		if master, slave := m.PIC.InService(); master != 0 || slave != 0 {
			t.Errorf("[line %d] expected no line in service; got 0x%x/0x%x", spec.line, master, slave)
		}

		// A second request must be delivered once the first is acknowledged.
		if got := m.Raise(spec.line); got != 1 {
			t.Errorf("[line %d] expected the line to be delivered again; got %d", spec.line, got)
		}

		restore()
	}
}

func TestHandlerAcknowledgesOnPanic(t *testing.T) {
	m, c, restore := setupMachine(t)
	defer restore()

	var table irq.Table
	if err := table.Install(c.Vector(0), c.Handler(0, func(*irq.Registers) {
		panic("handler failed")
	}), irq.GateOptions{}); err != nil {
		t.Fatal(err)
	}
	m.Connect(&table)
	if err := c.Unmask(0); err != nil {
		t.Fatal(err)
	}

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("expected handler panic to propagate")
			}
		}()
		m.Raise(0)
	}()

	if got := len(m.PIC.EOIs()); got != 1 {
		t.Fatalf("expected EOI to be sent on the panic path; got %d EOIs", got)
	}
}

func TestSpuriousInterrupts(t *testing.T) {
	for _, line := range []uint8{7, 15} {
		m, c, restore := setupMachine(t)

		var (
			table irq.Table
			calls int
		)
		if err := table.Install(c.Vector(line), c.Handler(line, func(*irq.Registers) { calls++ }), irq.GateOptions{}); err != nil {
			t.Fatal(err)
		}
		m.Connect(&table)

		m.RaiseSpurious(line)

		if calls != 0 {
			t.Errorf("[line %d] expected spurious interrupt to be filtered", line)
		}

		var exp []emu.EOI
		if line == 15 {
			exp = []emu.EOI{{}}
		}
		if got := m.PIC.EOIs(); len(got) != len(exp) || (len(exp) == 1 && got[0] != exp[0]) {
			t.Errorf("[line %d] expected EOIs %v; got %v", line, exp, got)
		}

		if master, slave := m.PIC.InService(); master != 0 || slave != 0 {
			t.Errorf("[line %d] expected no line in service; got 0x%x/0x%x", line, master, slave)
		}

		// Genuine interrupts on the same line still reach the handler.
		if err := c.Unmask(line); err != nil {
			t.Fatal(err)
		}
		m.Raise(line)
		if calls != 1 {
			t.Errorf("[line %d] expected genuine interrupt to reach the handler; got %d calls", line, calls)
		}

		restore()
	}

	_, c, restore := setupMachine(t)
	defer restore()
	if c.IsSpurious(3) {
		t.Fatal("expected lines other than 7 and 15 to never be spurious")
	}
}

func TestVectorLine(t *testing.T) {
	c := New(emu.NewBus())
	c.offsets = [2]uint8{32, 40}

	for line := uint8(0); line < NumLines; line++ {
		v := c.Vector(line)
		if exp := irq.Vector(32 + line); v != exp {
			t.Errorf("expected line %d to map to vector %d; got %d", line, exp, v)
		}

		got, ok := c.Line(v)
		if !ok || got != line {
			t.Errorf("expected vector %d to map back to line %d; got %d, %t", v, line, got, ok)
		}
	}

	for _, v := range []irq.Vector{0, 14, 31, 48, 255} {
		if _, ok := c.Line(v); ok {
			t.Errorf("expected vector %d not to map to a line", v)
		}
	}
}

func TestDriverInit(t *testing.T) {
	_, c, restore := setupMachine(t)
	defer restore()

	if c.DriverName() != "pic8259" {
		t.Fatalf("unexpected driver name %q", c.DriverName())
	}
	if major, minor, patch := c.DriverVersion(); major != 0 || minor != 1 || patch != 0 {
		t.Fatalf("unexpected driver version %d.%d.%d", major, minor, patch)
	}

	var buf bytes.Buffer
	if err := c.DriverInit(&buf); err != nil {
		t.Fatal(err)
	}

	exp := "vectors 32-39, 40-47; masks 0xff 0xff\n"
	if got := buf.String(); got != exp {
		t.Fatalf("expected output %q; got %q", exp, got)
	}
}
