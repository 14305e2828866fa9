// Package keyboard decodes PS/2 scancode set 1 into key events and provides
// the IRQ1 driver that feeds them to the console.
package keyboard

const (
	prefixExtended = 0xe0
	releaseBit     = 0x80
)

// Modifiers is a bitmask of the modifier keys that are held or toggled.
type Modifiers uint8

// Modifier flags.
const (
	ModShift Modifiers = 1 << iota
	ModCtrl
	ModAlt
	ModCapsLock
)

// KeyEvent describes a single press or release of a non-modifier key.
type KeyEvent struct {
	Key Key

	// Char is the character produced by the key under the active modifiers
	// or 0 if the key does not produce one. Enter, backspace and tab produce
	// '\n', '\b' and '\t'.
	Char byte

	// Pressed is false for key releases.
	Pressed bool

	// Mods contains the modifier state at the time of the event.
	Mods Modifiers
}

// Decoder is a scancode set 1 state machine. The zero value is ready to use
// and has every modifier released.
type Decoder struct {
	leftShift, rightShift bool
	leftCtrl, rightCtrl   bool
	leftAlt, rightAlt     bool

	capsLock     bool
	capsLockHeld bool

	// extended is set after the 0xe0 prefix and cleared by the next byte.
	extended bool
}

// Modifiers returns the current modifier state.
func (d *Decoder) Modifiers() Modifiers {
	var mods Modifiers
	if d.leftShift || d.rightShift {
		mods |= ModShift
	}
	if d.leftCtrl || d.rightCtrl {
		mods |= ModCtrl
	}
	if d.leftAlt || d.rightAlt {
		mods |= ModAlt
	}
	if d.capsLock {
		mods |= ModCapsLock
	}
	return mods
}

// PendingExtended returns true if the last byte was the extended prefix.
func (d *Decoder) PendingExtended() bool {
	return d.extended
}

// Decode feeds a single scancode byte to the decoder. It returns an event
// and true when the byte completes a press or release of a recognized
// non-modifier key. Prefix bytes, modifier keys and unknown codes only update
// the decoder state.
func (d *Decoder) Decode(code uint8) (KeyEvent, bool) {
	if code == prefixExtended {
		d.extended = true
		return KeyEvent{}, false
	}

	key := Key(code &^ releaseBit)
	if d.extended {
		key |= extendedKey
		d.extended = false
	}
	pressed := code&releaseBit == 0

	switch key {
	case KeyLeftShift:
		d.leftShift = pressed
		return KeyEvent{}, false
	case KeyRightShift:
		d.rightShift = pressed
		return KeyEvent{}, false
	case KeyLeftCtrl:
		d.leftCtrl = pressed
		return KeyEvent{}, false
	case KeyRightCtrl:
		d.rightCtrl = pressed
		return KeyEvent{}, false
	case KeyLeftAlt:
		d.leftAlt = pressed
		return KeyEvent{}, false
	case KeyRightAlt:
		d.rightAlt = pressed
		return KeyEvent{}, false
	case KeyCapsLock:
		// Typematic repeats of a held caps lock key must not toggle it
		// again.
		if pressed && !d.capsLockHeld {
			d.capsLock = !d.capsLock
		}
		d.capsLockHeld = pressed
		return KeyEvent{}, false
	case keyFakeLeftShift, keyFakeRightShift:
		return KeyEvent{}, false
	}

	ch, ok := d.translate(key)
	if !ok {
		return KeyEvent{}, false
	}

	return KeyEvent{Key: key, Char: ch, Pressed: pressed, Mods: d.Modifiers()}, true
}

// translate maps key to a character using the US layout and the current
// shift and caps lock state.
func (d *Decoder) translate(key Key) (byte, bool) {
	if key.Extended() {
		return lookupExtended(key)
	}

	chars, ok := lookup(key)
	if !ok {
		return 0, false
	}

	shifted := d.leftShift || d.rightShift
	if d.capsLock && isLetter(chars[0]) {
		shifted = !shifted
	}

	if shifted {
		return chars[1], true
	}
	return chars[0], true
}
