// Package irq manages the interrupt descriptor table and routes incoming
// exceptions and interrupts to Go handlers.
package irq

import (
	"constanos/kernel"
	"constanos/kernel/cpu"
	"unsafe"
)

const (
	// NumVectors is the number of slots in the IDT.
	NumVectors = 256

	// NumGateEntries is the number of vectors that have an assembly entry
	// stub. Every vector has one so the PIC lines can be remapped anywhere
	// above the CPU exceptions.
	NumGateEntries = NumVectors

	// KernelCodeSelector is the GDT selector of the 64-bit kernel code
	// segment installed by the bootloader.
	KernelCodeSelector = 0x08

	gatePresent  = 1 << 7
	gateDPLShift = 5
)

// GateType selects the behavior of the CPU when entering a handler.
type GateType uint8

const (
	// InterruptGate clears RFLAGS.IF on entry so the handler cannot be
	// interrupted by maskable interrupts. IRETQ restores the original
	// flags.
	InterruptGate GateType = 0xe

	// TrapGate leaves RFLAGS.IF untouched.
	TrapGate GateType = 0xf
)

// GateOptions controls the attributes of an installed gate. The zero value
// describes a ring-0 interrupt gate that uses the current stack.
type GateOptions struct {
	// Type defaults to InterruptGate when left unset.
	Type GateType

	// DPL is the highest privilege ring allowed to raise the vector
	// through a software INT instruction.
	DPL uint8

	// IST selects an interrupt stack table entry (1-7); 0 keeps the
	// current stack.
	IST uint8
}

// Handler is a function that services an exception or interrupt. Any
// modifications to the supplied Registers are propagated back to the
// interrupted context when the handler returns.
type Handler func(*Registers)

// gateDescriptor is the 16-byte IDT entry format used in long mode. The
// field order and sizes produce the exact hardware layout without padding.
type gateDescriptor struct {
	offsetLow  uint16
	selector   uint16
	ist        uint8
	typeAttr   uint8
	offsetMid  uint16
	offsetHigh uint32
	reserved   uint32
}

func (d *gateDescriptor) set(addr uintptr, opts GateOptions) {
	gateType := opts.Type
	if gateType == 0 {
		gateType = InterruptGate
	}

	d.offsetLow = uint16(addr)
	d.offsetMid = uint16(addr >> 16)
	d.offsetHigh = uint32(uint64(addr) >> 32)
	d.selector = KernelCodeSelector
	d.ist = opts.IST & 0x7
	d.typeAttr = gatePresent | (opts.DPL&0x3)<<gateDPLShift | uint8(gateType)
	d.reserved = 0
}

func (d *gateDescriptor) present() bool {
	return d.typeAttr&gatePresent != 0
}

func (d *gateDescriptor) addr() uintptr {
	return uintptr(d.offsetLow) | uintptr(d.offsetMid)<<16 | uintptr(d.offsetHigh)<<32
}

var (
	loadIDTFn       = cpu.LoadIDT
	gateEntryAddrFn = gateEntryAddr

	// activeTable receives the interrupts routed through dispatchInterrupt.
	activeTable *Table

	errNilHandler        = &kernel.Error{Module: "irq", Message: "nil handler"}
	errAlreadyRegistered = &kernel.Error{Module: "irq", Message: "vector already registered"}
	errInvalidGateOpts   = &kernel.Error{Module: "irq", Message: "invalid gate options"}
)

// Table is an interrupt descriptor table together with the dispatch table
// that maps each vector to its Go handler. A Table must not be moved or
// copied after Load has been called.
type Table struct {
	gates    [NumVectors]gateDescriptor
	handlers [NumVectors]Handler

	// idtr holds the operand for LIDT: a 16-bit limit followed by the
	// 64-bit linear base address.
	idtr [10]byte

	// unhandled is invoked for vectors without a registered handler.
	unhandled Handler
}

// Install registers handler for vector v and marks its IDT gate as present.
// Each vector can be registered exactly once; Install must be called before
// interrupts are enabled.
func (t *Table) Install(v Vector, handler Handler, opts GateOptions) *kernel.Error {
	switch {
	case handler == nil:
		return errNilHandler
	case t.handlers[v] != nil:
		return errAlreadyRegistered
	case opts.DPL > 3 || opts.IST > 7:
		return errInvalidGateOpts
	case opts.Type != 0 && opts.Type != InterruptGate && opts.Type != TrapGate:
		return errInvalidGateOpts
	}

	t.handlers[v] = handler
	t.gates[v].set(gateEntryAddrFn(v), opts)
	return nil
}

// Registered returns true if a handler is installed for v.
func (t *Table) Registered(v Vector) bool {
	return t.handlers[v] != nil
}

// SetUnhandledHandler overrides the handler invoked for vectors that have no
// registered handler. By default such vectors are reported as fatal.
func (t *Table) SetUnhandledHandler(handler Handler) {
	t.unhandled = handler
}

// Load activates the table on the current CPU. Interrupts delivered after
// Load returns are routed through Dispatch.
func (t *Table) Load() {
	base := uint64(uintptr(unsafe.Pointer(&t.gates[0])))
	limit := uint16(unsafe.Sizeof(t.gates) - 1)

	t.idtr[0] = uint8(limit)
	t.idtr[1] = uint8(limit >> 8)
	for i := 0; i < 8; i++ {
		t.idtr[2+i] = uint8(base >> (8 * uint(i)))
	}

	activeTable = t
	loadIDTFn(uintptr(unsafe.Pointer(&t.idtr[0])))
}

// Dispatch invokes the handler registered for regs.Vector.
func (t *Table) Dispatch(regs *Registers) {
	if handler := t.handlers[Vector(regs.Vector)]; handler != nil {
		handler(regs)
		return
	}

	if t.unhandled != nil {
		t.unhandled(regs)
		return
	}

	handleUnexpectedInterrupt(regs)
}

// dispatchInterrupt is invoked by gateCommon with a pointer to the register
// snapshot on the interrupt stack.
//
//go:nosplit
func dispatchInterrupt(regs *Registers) {
	if activeTable == nil {
		handleUnexpectedInterrupt(regs)
		return
	}

	activeTable.Dispatch(regs)
}

// gateEntryTable returns the address of a table with NumGateEntries entry
// stub addresses.
func gateEntryTable() uintptr

func gateEntryAddr(v Vector) uintptr {
	entries := (*[NumGateEntries]uintptr)(unsafe.Pointer(gateEntryTable()))
	return entries[v]
}
