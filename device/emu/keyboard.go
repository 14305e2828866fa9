package emu

const (
	kbdData   uint16 = 0x60
	kbdStatus uint16 = 0x64

	kbdStatusOutputFull = 1 << 0
)

// Keyboard models the data and status ports of an i8042 controller with a
// keyboard attached.
type Keyboard struct {
	queue []uint8
	last  uint8
}

// NewKeyboard returns a keyboard controller with an empty output buffer.
func NewKeyboard() *Keyboard {
	return &Keyboard{}
}

// Ports implements Device.
func (k *Keyboard) Ports() []uint16 {
	return []uint16{kbdData, kbdStatus}
}

// In implements Device. Reading the data port with an empty buffer returns
// the last byte again, like the real controller does.
func (k *Keyboard) In(port uint16) uint8 {
	if port == kbdStatus {
		if len(k.queue) != 0 {
			return kbdStatusOutputFull
		}
		return 0
	}

	if len(k.queue) != 0 {
		k.last = k.queue[0]
		k.queue = k.queue[1:]
	}
	return k.last
}

// Out implements Device. Controller commands are ignored.
func (k *Keyboard) Out(uint16, uint8) {}

// Push appends a scancode to the output buffer.
func (k *Keyboard) Push(code uint8) {
	k.queue = append(k.queue, code)
}

// Pending returns the number of buffered scancodes.
func (k *Keyboard) Pending() int {
	return len(k.queue)
}
