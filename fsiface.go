package storage

import (
	"io"
	"time"
)

// Dir is the filesystem collaborator's directory handle (spec §6).
// Implementations are consumed strictly through this interface; the
// only one shipped here is osfs (osfs.go), an os.* binding.
type Dir interface {
	// Exists reports whether the directory itself exists.
	Exists() (bool, error)
	// Mkdir creates the directory (and parents) if it does not exist.
	Mkdir() error
	// Entries lists regular files and subdirectories directly inside.
	Entries() ([]DirEntry, error)
	// File returns a handle for a file named name inside this directory.
	// The file need not exist yet.
	File(name string) File
	// Sub returns a handle for a subdirectory named name.
	Sub(name string) Dir
	// Path returns a diagnostic path string for logging.
	Path() string
}

// DirEntry describes one entry returned by Dir.Entries.
type DirEntry struct {
	Name  string
	IsDir bool
}

// File is the filesystem collaborator's file handle (spec §6).
type File interface {
	// Exists reports whether the file exists.
	Exists() (bool, error)
	// ModTime returns the file's modification time.
	ModTime() (time.Time, error)
	// OpenRead opens the file for streaming reads.
	OpenRead() (io.ReadCloser, error)
	// ReadAll reads the entire file into memory.
	ReadAll() ([]byte, error)
	// WriteAll replaces the file's entire contents.
	WriteAll(data []byte) error
	// Rename moves this file to newName within the same directory.
	Rename(newName string) error
	// Delete removes the file. Deleting a missing file is not an error.
	Delete() error
	// OpenAppend opens (creating if needed) the file for append writes.
	OpenAppend() (AppendFile, error)
	// Path returns a diagnostic path string for logging.
	Path() string
}

// AppendFile is an open append handle (spec §6).
type AppendFile interface {
	// WriteHandle appends data to the file.
	WriteHandle(data []byte) error
	// Fsync flushes the file to stable storage.
	Fsync() error
	// Close releases the handle. Safe to call more than once.
	Close() error
}
