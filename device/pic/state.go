package pic

import "constanos/device/port"

// State is a snapshot of the registers of both controllers. Index 0 holds the
// master and index 1 the slave.
type State struct {
	IMR [2]uint8
	IRR [2]uint8
	ISR [2]uint8
}

// ReadState reads the registers of both controllers directly from p without
// going through a Controller. Only the mask registers can be read without
// writing to the controllers; IRR and ISR are read when withStatus is set and
// leave the controllers in their default IRR read mode.
func ReadState(p port.Port, withStatus bool) State {
	var st State
	cmdPorts := [2]uint16{MasterCommandPort, SlaveCommandPort}
	dataPorts := [2]uint16{MasterDataPort, SlaveDataPort}

	for chip := 0; chip < 2; chip++ {
		st.IMR[chip] = p.Read8(dataPorts[chip])
		if !withStatus {
			continue
		}

		p.Write8(cmdPorts[chip], ocw3ReadISR)
		st.ISR[chip] = p.Read8(cmdPorts[chip])
		p.Write8(cmdPorts[chip], ocw3ReadIRR)
		st.IRR[chip] = p.Read8(cmdPorts[chip])
	}

	return st
}

// Unmasked returns the lines that are enabled in st as a bitmap where bit n
// corresponds to line n.
func (st State) Unmasked() uint16 {
	return ^(uint16(st.IMR[1])<<8 | uint16(st.IMR[0]))
}
