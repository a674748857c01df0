package loader

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
)

// Source is the file system unit sources are read from.
type Source interface {
	// Stat returns file information for name.
	Stat(name string) (fs.FileInfo, error)

	// ReadFile returns the contents of name.
	ReadFile(name string) ([]byte, error)

	// Join builds a name from path elements using the source's separator.
	Join(elem ...string) string
}

// DirSource reads unit sources from the host file system. Search paths
// are ordinary directory paths.
type DirSource struct{}

// NewDirSource returns a Source backed by the operating system.
func NewDirSource() *DirSource {
	return &DirSource{}
}

// Stat implements Source.
func (DirSource) Stat(name string) (fs.FileInfo, error) {
	return os.Stat(name)
}

// ReadFile implements Source.
func (DirSource) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(name)
}

// Join implements Source.
func (DirSource) Join(elem ...string) string {
	return filepath.Join(elem...)
}

// FSSource reads unit sources from an fs.FS, such as an embedded tree or
// a testing/fstest.MapFS. Search paths are slash-separated and relative
// to the root of the file system; "." names the root.
type FSSource struct {
	fsys fs.FS
}

// NewFSSource returns a Source backed by fsys.
func NewFSSource(fsys fs.FS) *FSSource {
	return &FSSource{fsys: fsys}
}

// Stat implements Source.
func (s *FSSource) Stat(name string) (fs.FileInfo, error) {
	return fs.Stat(s.fsys, name)
}

// ReadFile implements Source.
func (s *FSSource) ReadFile(name string) ([]byte, error) {
	return fs.ReadFile(s.fsys, name)
}

// Join implements Source.
func (s *FSSource) Join(elem ...string) string {
	return path.Join(elem...)
}
