package emu

import "constanos/kernel/irq"

const (
	lineTimer    = 0
	lineKeyboard = 1

	// maxDeliveries bounds the number of interrupts delivered for a single
	// request so a handler that keeps re-raising lines cannot hang a test.
	maxDeliveries = 64
)

// Machine wires the emulated devices to a bus and delivers interrupts
// accepted by the PIC pair through an irq.Table, the same way the CPU
// would after an interrupt acknowledge cycle. Like a CPU coming out of the
// boot loader, the machine starts with interrupts disabled; requests raised
// while IF is clear stay latched until Deliver is called with IF set.
type Machine struct {
	CPU      *CPU
	Bus      *Bus
	PIC      *DualPIC
	PIT      *PIT
	Keyboard *Keyboard
	UART     *UART

	idt       *irq.Table
	delivered []uint8
}

// NewMachine returns a machine with every device attached to its bus.
func NewMachine() *Machine {
	m := &Machine{
		CPU:      &CPU{},
		Bus:      NewBus(),
		PIC:      NewDualPIC(),
		PIT:      NewPIT(),
		Keyboard: NewKeyboard(),
		UART:     NewUART(),
	}

	m.Bus.Attach(m.PIC)
	m.Bus.Attach(m.PIT)
	m.Bus.Attach(m.Keyboard)
	m.Bus.Attach(m.UART)
	return m
}

// Connect routes delivered interrupts to t.
func (m *Machine) Connect(t *irq.Table) {
	m.idt = t
}

// Raise latches a request on line and delivers every interrupt the PIC pair
// accepts as a result. It returns the number of interrupts delivered.
func (m *Machine) Raise(line uint8) int {
	m.PIC.Raise(line)
	return m.Deliver()
}

// RaiseSpurious delivers a spurious interrupt on line 7 or 15.
func (m *Machine) RaiseSpurious(line uint8) {
	if !m.CPU.InterruptsEnabled() {
		return
	}
	m.dispatch(m.PIC.Spurious(line))
}

// Tick raises the timer line n times.
func (m *Machine) Tick(n int) {
	for i := 0; i < n; i++ {
		m.Raise(lineTimer)
	}
}

// Press queues each scancode in the keyboard controller and raises the
// keyboard line once per code.
func (m *Machine) Press(codes ...uint8) {
	for _, code := range codes {
		m.Keyboard.Push(code)
		m.Raise(lineKeyboard)
	}
}

// Type presses the scancode sequence for s.
func (m *Machine) Type(s string) {
	m.Press(Scancodes(s)...)
}

// Delivered returns the vectors delivered so far.
func (m *Machine) Delivered() []uint8 {
	return m.delivered
}

// Deliver dispatches latched requests that the PIC pair accepts. Nothing is
// delivered while the emulated CPU has interrupts disabled.
func (m *Machine) Deliver() int {
	if !m.CPU.InterruptsEnabled() {
		return 0
	}

	count := 0
	for ; count < maxDeliveries; count++ {
		vector, ok := m.PIC.Acknowledge()
		if !ok {
			break
		}
		m.dispatch(vector)
	}

	return count
}

func (m *Machine) dispatch(vector uint8) {
	m.delivered = append(m.delivered, vector)
	if m.idt == nil {
		return
	}

	// Interrupt gates clear IF on entry and IRETQ restores it.
	regs := irq.Registers{Vector: uint64(vector), RFlags: m.CPU.SaveFlagsAndDisable()}
	m.idt.Dispatch(&regs)
	m.CPU.Restore(regs.RFlags)
}
