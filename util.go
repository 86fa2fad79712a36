package storage

import "time"

// clockNow returns now, defaulting to time.Now when fn is nil. Mirrors
// the Options.Now injection pattern in andreyvit-journal's journal.go.
func clockNow(fn func() time.Time) func() time.Time {
	if fn == nil {
		return time.Now
	}
	return fn
}

// atomicWrite writes data to name via a temp-file-then-rename, the
// same discipline andreyvit-journal uses when publishing a finalized
// segment (segmentwriter.go's close) or a sealed one (seal.go's Seal):
// never make partial output visible under the final name.
func atomicWrite(dir Dir, name string, data []byte) error {
	tmpName := name + ".tmp"
	tmp := dir.File(tmpName)
	var ok bool
	defer func() {
		if !ok {
			_ = tmp.Delete()
		}
	}()

	if err := tmp.WriteAll(data); err != nil {
		return err
	}
	if err := tmp.Rename(name); err != nil {
		return err
	}
	ok = true
	return nil
}
