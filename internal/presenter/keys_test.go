package presenter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"statlearn/internal/trial"
)

func TestDecodeKeys(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want []trial.InputEvent
	}{
		{"space", []byte(" "), []trial.InputEvent{keyDown("space")}},
		{"enter", []byte("\r"), []trial.InputEvent{keyDown("enter")}},
		{"letters", []byte("fj"), []trial.InputEvent{keyDown("f"), keyDown("j")}},
		{"left arrow", []byte("\x1b[D"), []trial.InputEvent{keyDown("left")}},
		{"right arrow app mode", []byte("\x1bOC"), []trial.InputEvent{keyDown("right")}},
		{"lone escape", []byte{0x1b}, []trial.InputEvent{keyDown("escape")}},
		{"ctrl-c", []byte{0x03}, []trial.InputEvent{{Kind: trial.Quit}}},
		{"arrow then key", []byte("\x1b[Cq"), []trial.InputEvent{keyDown("right"), keyDown("q")}},
		{"unknown sequence", []byte("\x1b[Z"), nil},
		{"shift arrow", []byte("\x1b[1;2C"), []trial.InputEvent{keyDown("right")}},
		{"function key then space", []byte("\x1b[15~ "), []trial.InputEvent{keyDown("space")}},
		{"escape then bracket", []byte("\x1b["), []trial.InputEvent{keyDown("escape"), keyDown("[")}},
		{"escape then bracket and space", []byte("\x1b[ "), []trial.InputEvent{keyDown("escape"), keyDown("["), keyDown("space")}},
		{"control ignored", []byte{0x01}, nil},
		{"utf8", []byte("ü"), []trial.InputEvent{keyDown("ü")}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, decodeKeys(tc.in))
		})
	}
}
