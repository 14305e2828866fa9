// Package bootinfo provides access to the descriptor that the boot loader
// hands over to Kmain. The descriptor has a fixed layout and is treated as
// read-only once the kernel starts.
package bootinfo

import "unsafe"

// PixelFormat identifies the byte order of framebuffer pixels.
type PixelFormat uint32

// The pixel formats a boot loader may report.
const (
	PixelRGB PixelFormat = iota
	PixelBGR
	PixelU8
	PixelUnknown
)

// Info is the boot descriptor. The field order and sizes are part of the boot
// protocol and must not change.
type Info struct {
	// Virtual address and length in bytes of the linear framebuffer. A
	// zero address means no framebuffer is available.
	FramebufferAddr uint64
	FramebufferLen  uint64

	// Visible width and height in pixels.
	Width, Height uint32

	// Stride is the number of pixels per scanline.
	Stride uint32

	BytesPerPixel uint32
	PixelFormat   PixelFormat

	reserved uint32

	// PhysMemOffset is the virtual address at which all physical memory
	// is mapped.
	PhysMemOffset uint64

	// Address and length of the kernel command line.
	CmdLineAddr uint64
	CmdLineLen  uint64
}

var infoData uintptr

// SetInfoPtr updates the internal boot info pointer to the given value. This
// function must be invoked before invoking any other function exported by
// this package.
func SetInfoPtr(ptr uintptr) {
	infoData = ptr
}

// Get returns the boot descriptor or nil if SetInfoPtr has not been called
// with a valid pointer.
func Get() *Info {
	if infoData == 0 {
		return nil
	}

	return (*Info)(unsafe.Pointer(infoData))
}

// Framebuffer returns the framebuffer memory as a byte slice or nil if the
// boot loader did not set up a framebuffer.
func (i *Info) Framebuffer() []byte {
	if i.FramebufferAddr == 0 || i.FramebufferLen == 0 {
		return nil
	}

	return unsafe.Slice((*byte)(unsafe.Pointer(uintptr(i.FramebufferAddr))), i.FramebufferLen)
}

// CmdLine returns the kernel command line.
func (i *Info) CmdLine() string {
	if i.CmdLineAddr == 0 || i.CmdLineLen == 0 {
		return ""
	}

	return unsafe.String((*byte)(unsafe.Pointer(uintptr(i.CmdLineAddr))), i.CmdLineLen)
}

// VisitCmdLine invokes visitor for each "key=value" token of the command
// line. Tokens without a '=' are reported with an empty value. Iteration
// stops when visitor returns false.
func VisitCmdLine(cmdLine string, visitor func(key, value string) bool) {
	for len(cmdLine) != 0 {
		// skip separators
		for len(cmdLine) != 0 && isSpace(cmdLine[0]) {
			cmdLine = cmdLine[1:]
		}

		end := 0
		for end < len(cmdLine) && !isSpace(cmdLine[end]) {
			end++
		}

		token := cmdLine[:end]
		cmdLine = cmdLine[end:]
		if len(token) == 0 {
			continue
		}

		key, value := token, ""
		for i := 0; i < len(token); i++ {
			if token[i] == '=' {
				key, value = token[:i], token[i+1:]
				break
			}
		}

		if !visitor(key, value) {
			return
		}
	}
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}
