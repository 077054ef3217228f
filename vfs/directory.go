package vfs

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// LocalDir is a directory of the os file system.
type LocalDir struct {
	path string
}

func NewLocalDir(path string) *LocalDir {
	return &LocalDir{path: filepath.Clean(path)}
}

func (d *LocalDir) Name() string      { return filepath.Base(d.path) }
func (d *LocalDir) IsDirectory() bool { return true }
func (d *LocalDir) Path() string      { return d.path }

// List returns the sorted entry names, hidden entries are left out.
func (d *LocalDir) List() ([]string, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return nil, errors.Wrapf(err, "Cannot list %q", d.path)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), ".") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func (d *LocalDir) GetElement(name string) (Element, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return nil, errors.Errorf("Invalid entry name %q", name)
	}
	p := filepath.Join(d.path, name)
	st, err := os.Stat(p)
	if err != nil {
		return nil, errors.Wrapf(err, "Cannot stat %q", p)
	}
	if st.IsDir() {
		return NewLocalDir(p), nil
	}
	return &LocalFile{path: p, size: st.Size()}, nil
}

// LocalFile must be opened before reading. Size is taken when the entry is resolved.
type LocalFile struct {
	path string
	size int64
	f    *os.File
}

func (lf *LocalFile) Name() string      { return filepath.Base(lf.path) }
func (lf *LocalFile) IsDirectory() bool { return false }
func (lf *LocalFile) Size() int64       { return lf.size }

func (lf *LocalFile) Open() error {
	if lf.f != nil {
		return errors.Errorf("%q is already open", lf.path)
	}
	f, err := os.Open(lf.path)
	if err != nil {
		return errors.Wrapf(err, "Cannot open %q", lf.path)
	}
	lf.f = f
	return nil
}

func (lf *LocalFile) Close() error {
	if lf.f == nil {
		return nil
	}
	err := lf.f.Close()
	lf.f = nil
	return errors.Wrapf(err, "Cannot close %q", lf.path)
}

func (lf *LocalFile) Reader() (*io.SectionReader, error) {
	if lf.f == nil {
		return nil, errors.Errorf("%q is not open", lf.path)
	}
	return io.NewSectionReader(lf.f, 0, lf.size), nil
}

func (lf *LocalFile) ReadAt(b []byte, off int64) (int, error) {
	if lf.f == nil {
		return 0, errors.Errorf("%q is not open", lf.path)
	}
	return lf.f.ReadAt(b, off)
}
