package presenter

import (
	"unicode/utf8"

	"statlearn/internal/trial"
)

const (
	keyCtrlC  = 0x03
	keyEscape = 0x1b
	keyDelete = 0x7f
)

// decodeKeys turns one read from a raw-mode terminal into input events.
// Arrow keys arrive as CSI sequences (ESC [ params X) or ESC O X; a lone ESC
// is the escape key.
func decodeKeys(b []byte) []trial.InputEvent {
	var out []trial.InputEvent
	for len(b) > 0 {
		switch c := b[0]; {
		case c == keyCtrlC:
			out = append(out, trial.InputEvent{Kind: trial.Quit})
			b = b[1:]
		case c == keyEscape:
			if n := csiLen(b); n > 0 {
				// Modified arrows (ESC [ 1 ; 2 C) report the plain arrow.
				if name, ok := arrowKeys[b[n-1]]; ok {
					out = append(out, keyDown(name))
				}
				b = b[n:]
				continue
			}
			if len(b) >= 3 && b[1] == 'O' {
				if name, ok := arrowKeys[b[2]]; ok {
					out = append(out, keyDown(name))
				}
				b = b[3:]
				continue
			}
			out = append(out, keyDown("escape"))
			b = b[1:]
		case c == ' ':
			out = append(out, keyDown("space"))
			b = b[1:]
		case c == '\r' || c == '\n':
			out = append(out, keyDown("enter"))
			b = b[1:]
		case c == '\t':
			out = append(out, keyDown("tab"))
			b = b[1:]
		case c == keyDelete || c == 0x08:
			out = append(out, keyDown("backspace"))
			b = b[1:]
		case c < 0x20:
			// Other control characters have no key binding.
			b = b[1:]
		default:
			r, size := utf8.DecodeRune(b)
			if r != utf8.RuneError {
				out = append(out, keyDown(string(r)))
			}
			b = b[size:]
		}
	}
	return out
}

// csiLen returns the length of the CSI sequence at the start of b, through
// its final byte, or 0 when b does not start with a complete one. Parameter
// and intermediate bytes lie in 0x20-0x3F.
func csiLen(b []byte) int {
	if len(b) < 3 || b[0] != keyEscape || b[1] != '[' {
		return 0
	}
	for i := 2; i < len(b); i++ {
		switch c := b[i]; {
		case c >= 0x40 && c <= 0x7e:
			return i + 1
		case c < 0x20 || c > 0x3f:
			return 0
		}
	}
	return 0
}

var arrowKeys = map[byte]string{
	'A': "up",
	'B': "down",
	'C': "right",
	'D': "left",
}

func keyDown(name string) trial.InputEvent {
	return trial.InputEvent{Kind: trial.KeyDown, Key: name}
}
