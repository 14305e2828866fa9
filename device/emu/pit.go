package emu

const (
	pitChannel0 uint16 = 0x40
	pitCommand  uint16 = 0x43

	// PITBaseFrequency is the input clock of the 8254 in Hz.
	PITBaseFrequency = 1193182
)

// Access modes selected by bits 4-5 of the command byte.
const (
	accessLatch = iota
	accessLowOnly
	accessHighOnly
	accessLowHigh
)

// PIT models channel 0 of an 8254 timer. Only the programming interface is
// emulated; ticks are injected explicitly through Machine.Tick.
type PIT struct {
	command uint8
	mode    uint8
	access  uint8

	reload  uint16
	pending uint8
	hiNext  bool
	loaded  bool
}

// NewPIT returns a timer in its power-on state.
func NewPIT() *PIT {
	return &PIT{}
}

// Ports implements Device.
func (t *PIT) Ports() []uint16 {
	return []uint16{pitChannel0, pitCommand}
}

// In implements Device. Reads of channel 0 return the low byte of the reload
// value; the count itself is not emulated.
func (t *PIT) In(port uint16) uint8 {
	if port == pitChannel0 {
		return uint8(t.reload)
	}
	return 0
}

// Out implements Device.
func (t *PIT) Out(port uint16, val uint8) {
	switch port {
	case pitCommand:
		// Only channel 0 is modelled.
		if val>>6 != 0 {
			return
		}

		t.command = val
		t.access = (val >> 4) & 0x03
		if t.access == accessLatch {
			return
		}
		t.mode = (val >> 1) & 0x07
		t.hiNext = t.access == accessHighOnly
		t.loaded = false
	case pitChannel0:
		switch t.access {
		case accessLowOnly:
			t.setReload(uint16(val))
		case accessHighOnly:
			t.setReload(uint16(val) << 8)
		case accessLowHigh:
			if !t.hiNext {
				t.pending = val
				t.hiNext = true
				return
			}
			t.setReload(uint16(val)<<8 | uint16(t.pending))
			t.hiNext = false
		}
	}
}

func (t *PIT) setReload(v uint16) {
	t.reload = v
	t.loaded = true
}

// Command returns the last command byte written for channel 0.
func (t *PIT) Command() uint8 {
	return t.command
}

// Mode returns the operating mode selected by the last command.
func (t *PIT) Mode() uint8 {
	return t.mode
}

// Reload returns the programmed reload value and whether a complete value
// has been written since the last command.
func (t *PIT) Reload() (uint16, bool) {
	return t.reload, t.loaded
}

// Frequency returns the output frequency for the programmed reload value.
// A reload value of 0 is interpreted as 65536.
func (t *PIT) Frequency() uint32 {
	if !t.loaded {
		return 0
	}

	div := uint32(t.reload)
	if div == 0 {
		div = 1 << 16
	}
	return PITBaseFrequency / div
}
