package irq

import (
	"constanos/kernel"
	"constanos/kernel/cpu"
	"constanos/kernel/kfmt"
)

// Page fault error code bits.
const (
	pfPresent = 1 << 0
	pfWrite   = 1 << 1
	pfUser    = 1 << 2
	pfFetch   = 1 << 4
)

var (
	// panicFn and readCR2Fn are mocked by tests.
	panicFn   = kfmt.Panic
	readCR2Fn = cpu.ReadCR2

	errDoubleFault         = &kernel.Error{Module: "irq", Message: "double fault"}
	errPageFault           = &kernel.Error{Module: "irq", Message: "page fault"}
	errUnhandledException  = &kernel.Error{Module: "irq", Message: "unhandled CPU exception"}
	errUnexpectedInterrupt = &kernel.Error{Module: "irq", Message: "unexpected interrupt"}
)

// InstallExceptionHandlers registers a handler for every CPU exception vector.
// Double faults and page faults get dedicated handlers that report the
// available diagnostic state; every other exception is reported by a generic
// handler. All of them halt the CPU since this kernel has no way to recover
// from a fault.
func (t *Table) InstallExceptionHandlers() *kernel.Error {
	for v := Vector(0); v < FirstIRQVector; v++ {
		var handler Handler
		switch v {
		case DoubleFault:
			handler = handleDoubleFault
		case PageFault:
			handler = handlePageFault
		default:
			handler = handleFatalException
		}

		if err := t.Install(v, handler, GateOptions{}); err != nil {
			return err
		}
	}

	return nil
}

func reportException(regs *Registers) {
	w := kfmt.GetOutputSink()
	kfmt.Fprintf(w, "\nexception %d (%s)", regs.Vector, ExceptionName(Vector(regs.Vector)))
	if pushesErrorCode(Vector(regs.Vector)) {
		kfmt.Fprintf(w, ", error code 0x%x", regs.Info)
	}
	kfmt.Fprintf(w, "\n")
	regs.DumpTo(w)
}

func handleDoubleFault(regs *Registers) {
	reportException(regs)
	panicFn(errDoubleFault)
}

func handlePageFault(regs *Registers) {
	w := kfmt.GetOutputSink()
	kfmt.Fprintf(w, "\npage fault while ")
	switch {
	case regs.Info&pfFetch != 0:
		kfmt.Fprintf(w, "fetching instruction")
	case regs.Info&pfWrite != 0:
		kfmt.Fprintf(w, "writing")
	default:
		kfmt.Fprintf(w, "reading")
	}
	kfmt.Fprintf(w, " address 0x%16x", readCR2Fn())

	if regs.Info&pfPresent == 0 {
		kfmt.Fprintf(w, " (page not present)")
	} else {
		kfmt.Fprintf(w, " (protection violation)")
	}
	if regs.Info&pfUser != 0 {
		kfmt.Fprintf(w, " from user mode")
	}

	reportException(regs)
	panicFn(errPageFault)
}

func handleFatalException(regs *Registers) {
	reportException(regs)
	panicFn(errUnhandledException)
}

func handleUnexpectedInterrupt(regs *Registers) {
	kfmt.Printf("\nunexpected interrupt on vector %d\n", regs.Vector)
	regs.DumpTo(kfmt.GetOutputSink())
	panicFn(errUnexpectedInterrupt)
}
