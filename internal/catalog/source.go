package catalog

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// AssetSource is a directory-like collection of stimulus and instruction files.
type AssetSource interface {
	// Entries lists the names of the regular files in the source.
	Entries() ([]string, error)

	// Open opens the named entry for reading.
	Open(name string) (io.ReadCloser, error)

	// Locate returns the handle a presenter uses to play or display an entry.
	Locate(name string) string
}

// DirSource serves assets from a filesystem directory.
type DirSource struct {
	Root string
}

// Entries returns the file names directly under Root.
func (d DirSource) Entries() ([]string, error) {
	entries, err := os.ReadDir(d.Root)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

// Open opens Root/name.
func (d DirSource) Open(name string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(d.Root, name))
}

// Locate returns the absolute path of Root/name.
func (d DirSource) Locate(name string) string {
	p := filepath.Join(d.Root, name)
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

func exists(src AssetSource, name string) (bool, error) {
	f, err := src.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	f.Close()
	return true, nil
}
