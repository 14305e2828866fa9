package emu

// Ports of the emulated controllers.
const (
	picMasterCommand uint16 = 0x20
	picMasterData    uint16 = 0x21
	picSlaveCommand  uint16 = 0xa0
	picSlaveData     uint16 = 0xa1

	picCascadeLine = 2
)

// Initialization sequence steps.
const (
	icwReady = iota
	icwExpect2
	icwExpect3
	icwExpect4
)

// chip8259 models a single 8259A in edge-triggered, fully nested mode.
type chip8259 struct {
	imr, irr, isr uint8

	offset   uint8
	icw3     uint8
	icw4     uint8
	icwStep  int
	needICW4 bool

	// readISR selects whether command port reads return ISR or IRR.
	readISR bool

	initialized bool
}

func (c *chip8259) command(val uint8) {
	switch {
	case val&0x10 != 0:
		// ICW1 restarts initialization and clears all state.
		c.imr, c.irr, c.isr = 0, 0, 0
		c.readISR = false
		c.needICW4 = val&0x01 != 0
		c.icwStep = icwExpect2
	case val&0x18 == 0x08:
		// OCW3
		if val&0x02 != 0 {
			c.readISR = val&0x01 != 0
		}
	case val&0xe0 == 0x20:
		// OCW2 non-specific EOI: clear the highest priority in-service bit.
		c.isr &= c.isr - 1
	}
}

func (c *chip8259) data(val uint8) {
	switch c.icwStep {
	case icwExpect2:
		c.offset = val &^ 0x07
		c.icwStep = icwExpect3
	case icwExpect3:
		c.icw3 = val
		if c.needICW4 {
			c.icwStep = icwExpect4
		} else {
			c.icwStep = icwReady
			c.initialized = true
		}
	case icwExpect4:
		c.icw4 = val
		c.icwStep = icwReady
		c.initialized = true
	default:
		c.imr = val
	}
}

func (c *chip8259) readCommand() uint8 {
	if c.readISR {
		return c.isr
	}
	return c.irr
}

// pending returns the highest priority line that may be delivered or -1.
// A line is deliverable when it is requested, unmasked and no line of equal
// or higher priority is in service.
func (c *chip8259) pending(cascadeRequest bool) int {
	req := c.irr &^ c.imr
	if cascadeRequest && c.imr&(1<<picCascadeLine) == 0 {
		req |= 1 << picCascadeLine
	}

	for line := 0; line < 8; line++ {
		if c.isr&(1<<uint(line)) != 0 {
			return -1
		}
		if req&(1<<uint(line)) != 0 {
			return line
		}
	}

	return -1
}

// EOI records an end-of-interrupt command observed by DualPIC.
type EOI struct {
	Slave bool
}

// DualPIC models the master/slave 8259A pair of a PC.
type DualPIC struct {
	chips [2]chip8259
	eois  []EOI
}

// NewDualPIC returns a pair of controllers in their power-on state with every
// line masked, which matches what the firmware hands over.
func NewDualPIC() *DualPIC {
	p := &DualPIC{}
	p.chips[0].imr = 0xff
	p.chips[1].imr = 0xff
	p.chips[0].offset = 0x08
	p.chips[1].offset = 0x70
	return p
}

// Ports implements Device.
func (p *DualPIC) Ports() []uint16 {
	return []uint16{picMasterCommand, picMasterData, picSlaveCommand, picSlaveData}
}

// In implements Device.
func (p *DualPIC) In(port uint16) uint8 {
	switch port {
	case picMasterCommand:
		return p.chips[0].readCommand()
	case picMasterData:
		return p.chips[0].imr
	case picSlaveCommand:
		return p.chips[1].readCommand()
	default:
		return p.chips[1].imr
	}
}

// Out implements Device.
func (p *DualPIC) Out(port uint16, val uint8) {
	switch port {
	case picMasterCommand:
		if val&0xf8 == 0x20 {
			p.eois = append(p.eois, EOI{})
		}
		p.chips[0].command(val)
	case picMasterData:
		p.chips[0].data(val)
	case picSlaveCommand:
		if val&0xf8 == 0x20 {
			p.eois = append(p.eois, EOI{Slave: true})
		}
		p.chips[1].command(val)
	default:
		p.chips[1].data(val)
	}
}

// Initialized reports whether both controllers completed the ICW sequence.
func (p *DualPIC) Initialized() bool {
	return p.chips[0].initialized && p.chips[1].initialized
}

// Offsets returns the vector offsets programmed via ICW2.
func (p *DualPIC) Offsets() (master, slave uint8) {
	return p.chips[0].offset, p.chips[1].offset
}

// Cascade returns the ICW3 values programmed into each controller.
func (p *DualPIC) Cascade() (master, slave uint8) {
	return p.chips[0].icw3, p.chips[1].icw3
}

// Masks returns the interrupt mask registers.
func (p *DualPIC) Masks() (master, slave uint8) {
	return p.chips[0].imr, p.chips[1].imr
}

// SetMasks overwrites the interrupt mask registers.
func (p *DualPIC) SetMasks(master, slave uint8) {
	p.chips[0].imr, p.chips[1].imr = master, slave
}

// InService returns the in-service registers.
func (p *DualPIC) InService() (master, slave uint8) {
	return p.chips[0].isr, p.chips[1].isr
}

// EOIs returns the end-of-interrupt commands received so far.
func (p *DualPIC) EOIs() []EOI {
	return p.eois
}

// ResetEOIs discards the recorded end-of-interrupt commands.
func (p *DualPIC) ResetEOIs() {
	p.eois = p.eois[:0]
}

// Raise latches a request on line (0-15).
func (p *DualPIC) Raise(line uint8) {
	p.chips[line/8].irr |= 1 << (line % 8)
}

// Acknowledge emulates the CPU interrupt acknowledge cycle. If a request can
// be delivered, it is moved from the request register to the in-service
// register of the owning controller (and of the master for slave lines) and
// its vector is returned.
func (p *DualPIC) Acknowledge() (uint8, bool) {
	master, slave := &p.chips[0], &p.chips[1]

	slaveLine := slave.pending(false)
	line := master.pending(slaveLine >= 0)
	switch {
	case line < 0:
		return 0, false
	case line == picCascadeLine && slaveLine >= 0:
		master.isr |= 1 << picCascadeLine
		master.irr &^= 1 << picCascadeLine
		slave.isr |= 1 << uint(slaveLine)
		slave.irr &^= 1 << uint(slaveLine)
		return slave.offset + uint8(slaveLine), true
	default:
		master.isr |= 1 << uint(line)
		master.irr &^= 1 << uint(line)
		return master.offset + uint8(line), true
	}
}

// Spurious returns the vector a spurious interrupt on line 7 or 15 would
// raise. Only the cascade line on the master is placed in service for a
// spurious line 15; nothing is placed in service for line 7.
func (p *DualPIC) Spurious(line uint8) uint8 {
	if line >= 8 {
		p.chips[0].isr |= 1 << picCascadeLine
		return p.chips[1].offset + 7
	}

	return p.chips[0].offset + 7
}
