package emu

const (
	scancodeLeftShift = 0x2a
	scancodeRelease   = 0x80
)

// usKeys maps set 1 make codes to the unshifted and shifted characters of a
// US keyboard.
var usKeys = map[uint8][2]byte{
	0x02: {'1', '!'}, 0x03: {'2', '@'}, 0x04: {'3', '#'}, 0x05: {'4', '$'},
	0x06: {'5', '%'}, 0x07: {'6', '^'}, 0x08: {'7', '&'}, 0x09: {'8', '*'},
	0x0a: {'9', '('}, 0x0b: {'0', ')'}, 0x0c: {'-', '_'}, 0x0d: {'=', '+'},
	0x0e: {'\b', '\b'}, 0x0f: {'\t', '\t'},
	0x10: {'q', 'Q'}, 0x11: {'w', 'W'}, 0x12: {'e', 'E'}, 0x13: {'r', 'R'},
	0x14: {'t', 'T'}, 0x15: {'y', 'Y'}, 0x16: {'u', 'U'}, 0x17: {'i', 'I'},
	0x18: {'o', 'O'}, 0x19: {'p', 'P'}, 0x1a: {'[', '{'}, 0x1b: {']', '}'},
	0x1c: {'\n', '\n'},
	0x1e: {'a', 'A'}, 0x1f: {'s', 'S'}, 0x20: {'d', 'D'}, 0x21: {'f', 'F'},
	0x22: {'g', 'G'}, 0x23: {'h', 'H'}, 0x24: {'j', 'J'}, 0x25: {'k', 'K'},
	0x26: {'l', 'L'}, 0x27: {';', ':'}, 0x28: {'\'', '"'}, 0x29: {'`', '~'},
	0x2b: {'\\', '|'},
	0x2c: {'z', 'Z'}, 0x2d: {'x', 'X'}, 0x2e: {'c', 'C'}, 0x2f: {'v', 'V'},
	0x30: {'b', 'B'}, 0x31: {'n', 'N'}, 0x32: {'m', 'M'}, 0x33: {',', '<'},
	0x34: {'.', '>'}, 0x35: {'/', '?'},
	0x39: {' ', ' '},
}

// charCodes is the reverse of usKeys.
var charCodes map[byte]keyStroke

type keyStroke struct {
	code    uint8
	shifted bool
}

func init() {
	charCodes = make(map[byte]keyStroke, 2*len(usKeys))
	for code, chars := range usKeys {
		if _, exists := charCodes[chars[0]]; !exists {
			charCodes[chars[0]] = keyStroke{code: code}
		}
		if chars[1] != chars[0] {
			charCodes[chars[1]] = keyStroke{code: code, shifted: true}
		}
	}
}

// Scancodes encodes s as the set 1 make/break sequence a US keyboard would
// produce when the string is typed. Shifted characters are wrapped in a left
// shift press and release. Characters without a key are skipped.
func Scancodes(s string) []uint8 {
	var out []uint8
	for i := 0; i < len(s); i++ {
		stroke, ok := charCodes[s[i]]
		if !ok {
			continue
		}

		if stroke.shifted {
			out = append(out, scancodeLeftShift)
		}
		out = append(out, stroke.code, stroke.code|scancodeRelease)
		if stroke.shifted {
			out = append(out, scancodeLeftShift|scancodeRelease)
		}
	}

	return out
}
