package vfs

import (
	"io"
)

// Element is an entry of a local scene source tree. Only the name is known
// until List, GetElement or Open is called.
type Element interface {
	Name() string
	IsDirectory() bool
}

// File is a read only scene document or media file.
type File interface {
	Element
	Size() int64
	Open() error
	Close() error
	Reader() (*io.SectionReader, error)
	ReadAt(b []byte, off int64) (n int, err error)
}

// Directory resolves one level of the tree. Names never contain separators.
type Directory interface {
	Element
	List() ([]string, error)
	GetElement(name string) (Element, error)
}
