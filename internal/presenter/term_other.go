//go:build !linux && !darwin && !freebsd && !netbsd && !openbsd

package presenter

import "errors"

func isTerminal(fd int) bool { return false }

func makeRaw(fd int) (func() error, error) {
	return nil, errors.New("raw mode not supported on this platform")
}

func terminalWidth(fd int) (int, error) {
	return 0, errors.New("terminal size not supported on this platform")
}
