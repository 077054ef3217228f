package vfs

import (
	"io"
	"strings"

	"github.com/pkg/errors"
)

// OpenFileAndGetReader opens f, the caller closes it.
func OpenFileAndGetReader(f File) (*io.SectionReader, error) {
	if err := f.Open(); err != nil {
		return nil, err
	}
	r, err := f.Reader()
	if err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

func DirectoryGetFile(d Directory, name string) (File, error) {
	e, err := d.GetElement(name)
	if err != nil {
		return nil, err
	}
	f, ok := e.(File)
	if !ok {
		return nil, errors.Errorf("%q is a directory", name)
	}
	return f, nil
}

// WalkFile resolves a slash separated path below d. Paths leaving d are rejected.
func WalkFile(d Directory, p string) (File, error) {
	var parts []string
	for _, part := range strings.Split(p, "/") {
		switch part {
		case "", ".":
		case "..":
			return nil, errors.Errorf("Path %q leaves the root", p)
		default:
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		return nil, errors.Errorf("Empty path %q", p)
	}

	for _, part := range parts[:len(parts)-1] {
		e, err := d.GetElement(part)
		if err != nil {
			return nil, err
		}
		sub, ok := e.(Directory)
		if !ok {
			return nil, errors.Errorf("%q of %q is not a directory", part, p)
		}
		d = sub
	}
	return DirectoryGetFile(d, parts[len(parts)-1])
}

// ReadFile reads the whole file at p below d.
func ReadFile(d Directory, p string) ([]byte, error) {
	f, err := WalkFile(d, p)
	if err != nil {
		return nil, err
	}
	r, err := OpenFileAndGetReader(f)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(r)
	return data, errors.Wrapf(err, "Cannot read %q", p)
}
