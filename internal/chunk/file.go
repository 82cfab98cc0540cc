package chunk

import (
	"fmt"
	"os"

	"golang.org/x/exp/mmap"
)

// File is a read-only memory-mapped view of a file on disk. It is the
// production Source: the coordinator reads every chunk out of it, and no
// worker ever opens the file itself.
type File struct {
	r    *mmap.ReaderAt
	name string
}

// OpenFile maps the named regular file read-only.
func OpenFile(name string) (*File, error) {
	fi, err := os.Stat(name)
	if err != nil {
		return nil, err
	}
	if !fi.Mode().IsRegular() {
		return nil, fmt.Errorf("open %s: not a regular file", name)
	}
	r, err := mmap.Open(name)
	if err != nil {
		return nil, err
	}
	return &File{r: r, name: name}, nil
}

// Name returns the path the file was opened with.
func (f *File) Name() string { return f.name }

// Size returns the length of the mapping, which is the file size at open.
func (f *File) Size() int64 { return int64(f.r.Len()) }

// ReadAt implements io.ReaderAt.
func (f *File) ReadAt(p []byte, off int64) (int, error) { return f.r.ReadAt(p, off) }

// Close releases the mapping.
func (f *File) Close() error { return f.r.Close() }
