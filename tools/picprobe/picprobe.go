//go:build linux

package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"constanos/device/pic"
	"constanos/device/port"
)

func exit(err error) {
	fmt.Fprintf(os.Stderr, "[picprobe] error: %s\n", err.Error())
	os.Exit(1)
}

// printState writes a table with one row per interrupt line.
func printState(w io.Writer, st pic.State, withStatus bool) {
	fmt.Fprintf(w, "master IMR 0x%02x, slave IMR 0x%02x\n", st.IMR[0], st.IMR[1])
	if withStatus {
		fmt.Fprintf(w, "master IRR 0x%02x ISR 0x%02x, slave IRR 0x%02x ISR 0x%02x\n",
			st.IRR[0], st.ISR[0], st.IRR[1], st.ISR[1])
	}

	unmasked := st.Unmasked()
	for line := uint(0); line < pic.NumLines; line++ {
		chip, bit := line/8, uint8(1)<<(line%8)

		state := "masked"
		if unmasked&(1<<line) != 0 {
			state = "enabled"
		}

		fmt.Fprintf(w, "IRQ%-2d %-8s", line, state)
		if withStatus {
			fmt.Fprintf(w, " requested=%t in-service=%t", st.IRR[chip]&bit != 0, st.ISR[chip]&bit != 0)
		}
		fmt.Fprintln(w)
	}
}

func runTool() error {
	withStatus := flag.Bool("status", false, "also read IRR and ISR; this writes OCW3 to the controllers")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, "picprobe: dump the 8259 PIC registers of the host via "+port.DevPortPath+"\n\n")
		fmt.Fprint(os.Stderr, "Usage: picprobe [options]\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	dev, err := port.OpenDevPort(!*withStatus)
	if err != nil {
		return err
	}
	defer dev.Close()

	st := pic.ReadState(dev, *withStatus)
	if err := dev.Err(); err != nil {
		return err
	}

	printState(os.Stdout, st, *withStatus)
	return nil
}

func main() {
	if err := runTool(); err != nil {
		exit(err)
	}
}
