package kmain

import (
	"constanos/kernel"
	"constanos/kernel/cpu"
	"constanos/kernel/hal"
	"constanos/kernel/hal/bootinfo"
	"constanos/kernel/kfmt"
)

var (
	// The following functions are mocked by tests and are automatically
	// inlined by the compiler.
	halInitFn          = hal.Init
	activeCoreFn       = hal.ActiveCore
	startFn            = (*hal.Core).Start
	idleFn             = idle
	panicFn            = kfmt.Panic
	waitForInterruptFn = cpu.WaitForInterrupt
	cpuVendorFn        = cpu.VendorID

	// cpuVendor receives the CPUID vendor string for the boot banner.
	cpuVendor [12]byte

	errKmainReturned = &kernel.Error{Module: "kmain", Message: "Kmain returned"}
)

// Kmain is the only Go symbol that is visible (exported) from the rt0 initialization
// code. This function is invoked by the rt0 assembly code after setting up the GDT
// and a minimal g0 struct that allows Go code to use the stack allocated by the
// assembly code.
//
// The rt0 code passes the address of the boot descriptor provided by the boot
// loader.
//
// Kmain is not expected to return. If it does, the rt0 code will halt the CPU.
//
//go:noinline
func Kmain(bootInfoPtr uintptr) {
	bootinfo.SetInfoPtr(bootInfoPtr)

	if err := halInitFn(bootinfo.Get()); err != nil {
		panicFn(err)
		return
	}

	maxLeaf := cpuVendorFn(&cpuVendor)

	core := activeCoreFn()
	kfmt.Printf("constanos: %s cpu (max cpuid leaf 0x%x), timer at %dHz, IRQs at vectors %d-%d\n",
		cpuVendor[:], maxLeaf, core.Timer.Frequency(), core.Config.MasterOffset, core.Config.SlaveOffset+7)

	startFn(core)
	idleFn()

	// Use kfmt.Panic instead of panic to prevent the compiler from
	// treating it as dead-code and eliminating it.
	panicFn(errKmainReturned)
}

// idle parks the CPU between interrupts.
func idle() {
	for {
		waitForInterruptFn()
	}
}
