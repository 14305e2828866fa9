package port

import (
	"golang.org/x/sys/unix"
)

// DevPortPath is the Linux character device that exposes the I/O port space
// as a file where the file offset selects the port.
const DevPortPath = "/dev/port"

// DevPort implements Port on top of the Linux /dev/port device. It allows the
// drivers in this module to be pointed at real hardware from a hosted
// process. Opening /dev/port requires CAP_SYS_RAWIO.
//
// Port does not return errors so DevPort records the first failure; callers
// should check Err once they are done.
type DevPort struct {
	fd  int
	err error
}

// OpenDevPort opens DevPortPath. If readOnly is true, writes are rejected by
// the kernel and reported via Err.
func OpenDevPort(readOnly bool) (*DevPort, error) {
	return openDevPort(DevPortPath, readOnly)
}

func openDevPort(path string, readOnly bool) (*DevPort, error) {
	flags := unix.O_RDWR
	if readOnly {
		flags = unix.O_RDONLY
	}

	fd, err := unix.Open(path, flags|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, err
	}

	return &DevPort{fd: fd}, nil
}

// Read8 implements Port.
func (d *DevPort) Read8(port uint16) uint8 {
	var buf [1]byte
	if _, err := unix.Pread(d.fd, buf[:], int64(port)); err != nil && d.err == nil {
		d.err = err
	}

	return buf[0]
}

// Write8 implements Port.
func (d *DevPort) Write8(port uint16, val uint8) {
	buf := [1]byte{val}
	if _, err := unix.Pwrite(d.fd, buf[:], int64(port)); err != nil && d.err == nil {
		d.err = err
	}
}

// Err returns the first error encountered by Read8 or Write8.
func (d *DevPort) Err() error {
	return d.err
}

// Close releases the underlying file descriptor.
func (d *DevPort) Close() error {
	return unix.Close(d.fd)
}
