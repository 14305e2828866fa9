package emu

// COM1 register offsets.
const (
	uartBase uint16 = 0x3f8

	uartData       = 0
	uartIntEnable  = 1
	uartFIFOCtrl   = 2
	uartLineCtrl   = 3
	uartModemCtrl  = 4
	uartLineStatus = 5
	uartModemStat  = 6
	uartScratch    = 7

	uartLineCtrlDLAB = 0x80

	// Transmit holding register and transmitter empty.
	uartLineStatusIdle = 0x60

	uartModemCtrlLoopback = 0x10
)

// UART models the registers of a 16550 serial port at COM1. Transmitted
// bytes are captured; in loopback mode they are also fed back into the
// receive buffer.
type UART struct {
	regs    [8]uint8
	divisor uint16
	out     []byte
	rx      []byte

	// Absent makes the port behave as if nothing was attached.
	Absent bool
}

// NewUART returns a serial port in its power-on state.
func NewUART() *UART {
	return &UART{}
}

// Ports implements Device.
func (u *UART) Ports() []uint16 {
	ports := make([]uint16, 8)
	for i := range ports {
		ports[i] = uartBase + uint16(i)
	}
	return ports
}

// In implements Device.
func (u *UART) In(port uint16) uint8 {
	if u.Absent {
		return floatingBus
	}

	reg := port - uartBase
	dlab := u.regs[uartLineCtrl]&uartLineCtrlDLAB != 0
	switch {
	case reg == uartData && dlab:
		return uint8(u.divisor)
	case reg == uartIntEnable && dlab:
		return uint8(u.divisor >> 8)
	case reg == uartData:
		if len(u.rx) == 0 {
			return 0
		}
		b := u.rx[0]
		u.rx = u.rx[1:]
		return b
	case reg == uartLineStatus:
		status := uint8(uartLineStatusIdle)
		if len(u.rx) != 0 {
			status |= 0x01
		}
		return status
	default:
		return u.regs[reg]
	}
}

// Out implements Device.
func (u *UART) Out(port uint16, val uint8) {
	if u.Absent {
		return
	}

	reg := port - uartBase
	dlab := u.regs[uartLineCtrl]&uartLineCtrlDLAB != 0
	switch {
	case reg == uartData && dlab:
		u.divisor = u.divisor&0xff00 | uint16(val)
	case reg == uartIntEnable && dlab:
		u.divisor = u.divisor&0x00ff | uint16(val)<<8
	case reg == uartData:
		if u.regs[uartModemCtrl]&uartModemCtrlLoopback != 0 {
			u.rx = append(u.rx, val)
			return
		}
		u.out = append(u.out, val)
	case reg == uartLineStatus || reg == uartModemStat:
		// read-only
	default:
		u.regs[reg] = val
	}
}

// Divisor returns the programmed baud rate divisor.
func (u *UART) Divisor() uint16 {
	return u.divisor
}

// LineControl returns the line control register.
func (u *UART) LineControl() uint8 {
	return u.regs[uartLineCtrl]
}

// Output returns everything transmitted outside loopback mode.
func (u *UART) Output() string {
	return string(u.out)
}
