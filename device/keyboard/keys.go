package keyboard

// Key identifies a physical key. Keys are numbered after their scancode set
// 1 make code; keys reached through the 0xe0 prefix have bit 8 set.
type Key uint16

const extendedKey Key = 0x100

// Keys that are referenced by name.
const (
	KeyUnknown     Key = 0x00
	KeyEscape      Key = 0x01
	KeyBackspace   Key = 0x0e
	KeyTab         Key = 0x0f
	KeyEnter       Key = 0x1c
	KeyLeftCtrl    Key = 0x1d
	KeyA           Key = 0x1e
	KeyLeftShift   Key = 0x2a
	KeyRightShift  Key = 0x36
	KeyKeypadStar  Key = 0x37
	KeyLeftAlt     Key = 0x38
	KeySpace       Key = 0x39
	KeyCapsLock    Key = 0x3a
	KeyF1          Key = 0x3b
	KeyF10         Key = 0x44
	KeyNumLock     Key = 0x45
	KeyScrollLock  Key = 0x46
	KeyF11         Key = 0x57
	KeyF12         Key = 0x58
	KeyKeypadEnter Key = extendedKey | 0x1c
	KeyRightCtrl   Key = extendedKey | 0x1d
	KeyKeypadSlash Key = extendedKey | 0x35
	KeyRightAlt    Key = extendedKey | 0x38
	KeyHome        Key = extendedKey | 0x47
	KeyUp          Key = extendedKey | 0x48
	KeyPageUp      Key = extendedKey | 0x49
	KeyLeft        Key = extendedKey | 0x4b
	KeyRight       Key = extendedKey | 0x4d
	KeyEnd         Key = extendedKey | 0x4f
	KeyDown        Key = extendedKey | 0x50
	KeyPageDown    Key = extendedKey | 0x51
	KeyInsert      Key = extendedKey | 0x52
	KeyDelete      Key = extendedKey | 0x53

	// The keyboard wraps some extended keys in these codes to undo the
	// effect of a held shift key on legacy software.
	keyFakeLeftShift  Key = extendedKey | 0x2a
	keyFakeRightShift Key = extendedKey | 0x36
)

// Extended reports whether k is reached through the 0xe0 prefix.
func (k Key) Extended() bool {
	return k&extendedKey != 0
}

// layoutSize covers every make code with a US layout mapping.
const layoutSize = 0x54

// usLayout maps set 1 make codes to the characters produced with and without
// shift on a US keyboard. Keys that exist but produce no character map to 0.
var usLayout = [layoutSize][2]byte{
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
	0x37: {'*', '*'},
	0x39: {' ', ' '},

	// Keypad with num lock on
	0x47: {'7', '7'}, 0x48: {'8', '8'}, 0x49: {'9', '9'}, 0x4a: {'-', '-'},
	0x4b: {'4', '4'}, 0x4c: {'5', '5'}, 0x4d: {'6', '6'}, 0x4e: {'+', '+'},
	0x4f: {'1', '1'}, 0x50: {'2', '2'}, 0x51: {'3', '3'}, 0x52: {'0', '0'},
	0x53: {'.', '.'},
}

// lookup returns the characters for a non-extended key and whether the key
// is recognized at all. Escape, the function keys and the lock keys are
// recognized but produce no character.
func lookup(k Key) ([2]byte, bool) {
	switch {
	case k == KeyEscape, k >= KeyF1 && k <= KeyScrollLock, k == KeyF11, k == KeyF12:
		return [2]byte{}, true
	case k >= layoutSize:
		return [2]byte{}, false
	}

	chars := usLayout[k]
	return chars, chars != [2]byte{}
}

// lookupExtended returns the character for an extended key and whether the
// key is recognized.
func lookupExtended(k Key) (byte, bool) {
	switch k {
	case KeyKeypadEnter:
		return '\n', true
	case KeyKeypadSlash:
		return '/', true
	case KeyHome, KeyUp, KeyPageUp, KeyLeft, KeyRight, KeyEnd, KeyDown, KeyPageDown, KeyInsert, KeyDelete:
		return 0, true
	}

	return 0, false
}

func isLetter(ch byte) bool {
	return ch >= 'a' && ch <= 'z'
}
