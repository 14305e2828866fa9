package cpu

var (
	cpuidFn = ID
)

// FlagInterruptEnable is the RFLAGS bit that is set when maskable hardware
// interrupts are delivered to the CPU.
const FlagInterruptEnable = uint64(1 << 9)

// EnableInterrupts enables interrupt handling.
func EnableInterrupts()

// DisableInterrupts disables interrupt handling.
func DisableInterrupts()

// Halt disables interrupts and stops instruction execution. Calls to Halt
// never return.
func Halt()

// WaitForInterrupt atomically enables interrupts and idles the CPU until the
// next interrupt arrives. It returns after the interrupt handler completes.
func WaitForInterrupt()

// Flags returns the current contents of the RFLAGS register.
func Flags() uint64

// SaveFlagsAndDisableInterrupts returns the current RFLAGS contents and then
// disables interrupts. The returned value should be passed to
// RestoreInterrupts to re-enable interrupts if they were enabled before.
func SaveFlagsAndDisableInterrupts() uint64

// RestoreInterrupts enables interrupts if the interrupt-enable bit is set in
// the supplied RFLAGS snapshot. It never disables interrupts.
func RestoreInterrupts(flags uint64) {
	if flags&FlagInterruptEnable != 0 {
		EnableInterrupts()
	}
}

// InterruptsEnabled returns true if maskable interrupts are currently enabled.
func InterruptsEnabled() bool {
	return Flags()&FlagInterruptEnable != 0
}

// LoadIDT loads the interrupt descriptor table register with the 10-byte
// descriptor (limit followed by base address) located at descAddr.
func LoadIDT(descAddr uintptr)

// ReadCR2 returns the value stored in the CR2 register. After a page fault
// CR2 holds the faulting linear address.
func ReadCR2() uint64

// ID returns information about the CPU and its features. It
// is implemented as a CPUID instruction with EAX=leaf and
// returns the values in EAX, EBX, ECX and EDX.
func ID(leaf uint32) (uint32, uint32, uint32, uint32)

// VendorID stores the 12-byte CPUID vendor string (for example
// "GenuineIntel" or "AuthenticAMD") in buf and returns the highest supported
// standard CPUID leaf.
func VendorID(buf *[12]byte) uint32 {
	maxLeaf, ebx, ecx, edx := cpuidFn(0)
	for i, reg := range [3]uint32{ebx, edx, ecx} {
		for b := 0; b < 4; b++ {
			buf[i*4+b] = uint8(reg >> (8 * uint(b)))
		}
	}

	return maxLeaf
}

// PortWriteByte writes a uint8 value to the requested port.
func PortWriteByte(port uint16, val uint8)

// PortReadByte reads a uint8 value from the requested port.
func PortReadByte(port uint16) uint8
