/*
Copyright The Ferry Authors.
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package tarfs provides a read-only file system (an fs.FS) based on a tar
// archive, without extracting it to disk.
package tarfs

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/ferry-project/ferry-go/errdef"
)

// blockSize is the size of each block in a tar archive.
const blockSize int64 = 512

// TarFS represents a file system (an fs.FS) based on a tar archive.
type TarFS struct {
	path    string
	entries map[string]*entry
}

// entry records the header of an entry in the tar archive and the offset of
// its header block.
type entry struct {
	header *tar.Header
	pos    int64
}

// New returns a file system (an fs.FS) for a tar archive located at path.
func New(path string) (*TarFS, error) {
	pathAbs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for %s: %w", path, err)
	}
	tarfs := &TarFS{
		path:    pathAbs,
		entries: make(map[string]*entry),
	}
	if err := tarfs.indexEntries(); err != nil {
		return nil, err
	}
	return tarfs, nil
}

// Open opens the named file.
// When Open returns an error, it should be of type *PathError
// with the Op field set to "open", the Path field set to name,
// and the Err field describing the problem.
//
// Open should reject attempts to open names that do not satisfy
// fs.ValidPath(name), returning a *PathError with Err set to
// fs.ErrInvalid or fs.ErrNotExist.
func (tfs *TarFS) Open(name string) (file fs.File, openErr error) {
	entry, err := tfs.getEntry("open", name)
	if err != nil {
		return nil, err
	}
	tarFile, err := os.Open(tfs.path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if openErr != nil {
			tarFile.Close()
		}
	}()

	if _, err := tarFile.Seek(entry.pos, io.SeekStart); err != nil {
		return nil, err
	}
	tr := tar.NewReader(tarFile)
	if _, err := tr.Next(); err != nil {
		return nil, err
	}
	return &tarEntry{
		header: entry.header,
		reader: tr,
		closer: tarFile,
	}, nil
}

// Stat returns a FileInfo describing the file.
// If there is an error, it should be of type *PathError.
func (tfs *TarFS) Stat(name string) (fs.FileInfo, error) {
	entry, err := tfs.getEntry("stat", name)
	if err != nil {
		return nil, err
	}
	return entry.header.FileInfo(), nil
}

// getEntry returns the named entry. Only regular files are supported.
func (tfs *TarFS) getEntry(op string, name string) (*entry, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: op, Path: name, Err: fs.ErrInvalid}
	}
	entry, ok := tfs.entries[getEntryKey(name)]
	if !ok {
		return nil, &fs.PathError{Op: op, Path: name, Err: fs.ErrNotExist}
	}
	if entry.header.Typeflag != tar.TypeReg {
		return nil, fmt.Errorf("%s %s: %w", op, name, errdef.ErrUnsupported)
	}
	return entry, nil
}

// indexEntries scans the tar archive once and records the header block
// offset of every entry, so that entries can be opened individually later.
func (tfs *TarFS) indexEntries() error {
	tarFile, err := os.Open(tfs.path)
	if err != nil {
		return err
	}
	defer tarFile.Close()

	tr := tar.NewReader(tarFile)
	for {
		header, err := tr.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}
		pos, err := tarFile.Seek(0, io.SeekCurrent)
		if err != nil {
			return err
		}
		tfs.entries[getEntryKey(header.Name)] = &entry{
			header: header,
			// the data of an entry starts right after its header block
			pos: pos - blockSize,
		}
	}

	return nil
}

// getEntryKey normalizes an entry name to its lookup key. Names in archives
// created on Windows may use backslashes as separators.
func getEntryKey(name string) string {
	return path.Clean(strings.ReplaceAll(name, `\`, "/"))
}

// tarEntry represents an opened entry in a tar archive.
type tarEntry struct {
	header *tar.Header
	reader *tar.Reader
	closer io.Closer
}

// Stat returns a fs.FileInfo describing e.
func (e *tarEntry) Stat() (fs.FileInfo, error) {
	return e.header.FileInfo(), nil
}

// Read reads the content of e.
func (e *tarEntry) Read(b []byte) (int, error) {
	return e.reader.Read(b)
}

// Close closes e.
func (e *tarEntry) Close() error {
	return e.closer.Close()
}
