package storage

import (
	"fmt"
	"log/slog"
	"strings"
)

// Trash quarantines files that failed to open or parse at all, so an
// operator can inspect what was dropped instead of it silently
// vanishing, grounded on andreyvit-journal's trash.go.
type Trash struct {
	wal    Dir
	trash  Dir
	logger *slog.Logger
}

// NewTrash creates a Trash that quarantines files from wal into a
// "trash" subdirectory of wal.
func NewTrash(wal Dir, logger *slog.Logger) *Trash {
	if logger == nil {
		logger = slog.Default()
	}
	return &Trash{wal: wal, trash: wal.Sub("trash"), logger: logger}
}

// Quarantine moves name out of the WAL directory into trash/, giving it
// a disambiguated name if something is already there under that name.
// The Dir interface has no cross-directory rename, so this copies the
// bytes and deletes the original rather than renaming in place.
func (t *Trash) Quarantine(name string, cause error) error {
	if err := t.trash.Mkdir(); err != nil {
		return fmt.Errorf("storage: preparing trash dir: %w", err)
	}

	src := t.wal.File(name)
	data, err := src.ReadAll()
	if err != nil {
		t.logger.Warn("storage: corrupted segment already missing", "name", name, "err", err)
		return nil
	}

	dstName, err := t.uniqueName(name)
	if err != nil {
		return err
	}
	if err := t.trash.File(dstName).WriteAll(data); err != nil {
		return fmt.Errorf("storage: writing quarantined file %s: %w", dstName, err)
	}
	if err := src.Delete(); err != nil {
		return fmt.Errorf("storage: removing quarantined original %s: %w", name, err)
	}

	if cause != nil {
		t.logger.Warn("storage: moved corrupted segment to trash", "name", name, "trash_name", dstName, "err", cause)
	} else {
		t.logger.Warn("storage: moved corrupted segment to trash", "name", name, "trash_name", dstName)
	}
	return nil
}

func (t *Trash) uniqueName(name string) (string, error) {
	base, ext := splitExt(name)
	candidate := name
	for i := 2; ; i++ {
		exists, err := t.trash.File(candidate).Exists()
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d%s", base, i, ext)
	}
}

func splitExt(name string) (base, ext string) {
	if i := strings.Index(name, "."); i >= 0 {
		return name[:i], name[i:]
	}
	return name, ""
}
