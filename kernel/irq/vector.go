package irq

// Vector identifies an IDT slot: a CPU exception (0-31) or a remapped
// hardware interrupt line (32 and above).
type Vector uint8

const (
	// DivideByZero occurs when dividing any number by 0 using the DIV or
	// IDIV instruction.
	DivideByZero = Vector(0)

	// Debug is raised by the debug registers and single-step traps.
	Debug = Vector(1)

	// NMI (non-maskable-interrupt) is a hardware interrupt that indicates
	// issues with RAM or unrecoverable hardware problems. It may also be
	// raised by the CPU when a watchdog timer is enabled.
	NMI = Vector(2)

	// Breakpoint is raised by the INT3 instruction.
	Breakpoint = Vector(3)

	// Overflow occurs when the INTO instruction is executed while the
	// overflow flag is set.
	Overflow = Vector(4)

	// BoundRangeExceeded occurs when the BOUND instruction is invoked with
	// an index out of range.
	BoundRangeExceeded = Vector(5)

	// InvalidOpcode occurs when the CPU attempts to execute an invalid or
	// undefined instruction opcode.
	InvalidOpcode = Vector(6)

	// DeviceNotAvailable occurs when the CPU attempts to execute an
	// FPU/MMX/SSE instruction while no FPU is available or while
	// FPU/MMX/SSE support has been disabled by manipulating the CR0
	// register.
	DeviceNotAvailable = Vector(7)

	// DoubleFault occurs when an exception is raised while the CPU is
	// trying to invoke the handler for a prior exception.
	DoubleFault = Vector(8)

	// InvalidTSS occurs when the TSS points to an invalid task segment
	// selector.
	InvalidTSS = Vector(10)

	// SegmentNotPresent occurs when the CPU attempts to load a segment or
	// gate whose present bit is clear.
	SegmentNotPresent = Vector(11)

	// StackSegmentFault occurs when attempting to push/pop from a
	// non-canonical stack address or when the stack base/limit checks
	// fail.
	StackSegmentFault = Vector(12)

	// GeneralProtectionFault occurs on protection violations, including
	// interrupts delivered through non-present IDT gates.
	GeneralProtectionFault = Vector(13)

	// PageFault occurs when a page table entry is not present or when a
	// privilege and/or RW protection check fails.
	PageFault = Vector(14)

	// FloatingPointException occurs while invoking an FP instruction while
	// CR0.NE = 1 or an unmasked FP exception is pending.
	FloatingPointException = Vector(16)

	// AlignmentCheck occurs when alignment checks are enabled and an
	// unaligned memory access is performed.
	AlignmentCheck = Vector(17)

	// MachineCheck occurs when the CPU detects internal errors such as
	// memory-, bus- or cache-related errors.
	MachineCheck = Vector(18)

	// SIMDFloatingPointException occurs when an unmasked SSE exception
	// occurs while CR4.OSXMMEXCPT is set.
	SIMDFloatingPointException = Vector(19)

	// Virtualization is raised by EPT violations.
	Virtualization = Vector(20)

	// ControlProtection is raised by CET shadow stack violations.
	ControlProtection = Vector(21)

	// SecurityException is raised by SVM.
	SecurityException = Vector(30)

	// FirstIRQVector is the first vector outside the range reserved by the
	// CPU for exceptions. Hardware interrupt lines must be remapped at or
	// above this vector.
	FirstIRQVector = Vector(32)
)

// exceptionNames is indexed by exception vector.
var exceptionNames = [FirstIRQVector]string{
	"divide error",
	"debug",
	"non-maskable interrupt",
	"breakpoint",
	"overflow",
	"bound range exceeded",
	"invalid opcode",
	"device not available",
	"double fault",
	"coprocessor segment overrun",
	"invalid TSS",
	"segment not present",
	"stack-segment fault",
	"general protection fault",
	"page fault",
	"reserved",
	"x87 floating-point exception",
	"alignment check",
	"machine check",
	"SIMD floating-point exception",
	"virtualization exception",
	"control protection exception",
	"reserved",
	"reserved",
	"reserved",
	"reserved",
	"reserved",
	"reserved",
	"hypervisor injection exception",
	"VMM communication exception",
	"security exception",
	"reserved",
}

// IsException returns true if v is reserved by the CPU for exceptions.
func (v Vector) IsException() bool {
	return v < FirstIRQVector
}

// ExceptionName returns a human readable name for an exception vector or
// "interrupt" for vectors outside the exception range.
func ExceptionName(v Vector) string {
	if !v.IsException() {
		return "interrupt"
	}

	return exceptionNames[v]
}

// pushesErrorCode returns true if the CPU pushes an error code to the stack
// before invoking the handler for v.
func pushesErrorCode(v Vector) bool {
	switch v {
	case DoubleFault, InvalidTSS, SegmentNotPresent, StackSegmentFault,
		GeneralProtectionFault, PageFault, AlignmentCheck, ControlProtection,
		Vector(29), SecurityException:
		return true
	}

	return false
}
