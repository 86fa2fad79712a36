package storage

import (
	"bytes"
	"log/slog"
	"sync"
	"time"
)

// DefaultMaxSegmentSize is the default rotation threshold in bytes
// (spec §4.3).
const DefaultMaxSegmentSize int64 = 16 * 1024 * 1024

// maxLinesPerSegment bounds Offset to < 2^16 (spec invariant 5).
const maxLinesPerSegment = (1 << 16) - 1

// WriterOptions configures a Writer. Zero-value fields take the
// defaults documented per field, the same shape as
// andreyvit-journal's journal.Options.
type WriterOptions struct {
	MaxSegmentSize int64 // default DefaultMaxSegmentSize
	NoFsync        bool  // fsync after each write is on by default
	OnRotate       func(closedSegment uint32)
	Now            func() time.Time
	Logger         *slog.Logger
}

// Writer appends commits durably to a segmented WAL directory and
// manages rotation, grounded on andreyvit-journal's
// journalwriter.go/segmentwriter.go pair.
type Writer struct {
	dir    Dir
	maxSeg int64
	fsync  bool
	onRot  func(uint32)
	now    func() time.Time
	logger *slog.Logger

	mu            sync.Mutex
	prepared      bool
	prepErr       error
	seg           uint32
	file          AppendFile
	currentOffset uint16
	currentSize   int64
}

// NewWriter creates a writer over dir. Preparation (resuming the
// highest on-disk segment) happens lazily on the first Commit, mirroring
// journal.go's ensurePreparedToWrite_locked.
func NewWriter(dir Dir, opt WriterOptions) *Writer {
	maxSeg := opt.MaxSegmentSize
	if maxSeg == 0 {
		maxSeg = DefaultMaxSegmentSize
	}
	logger := opt.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		dir:    dir,
		maxSeg: maxSeg,
		fsync:  !opt.NoFsync,
		onRot:  opt.OnRotate,
		now:    clockNow(opt.Now),
		logger: logger,
	}
}

// CurrentSegment returns the segment number currently open (0 if none
// has been written yet).
func (w *Writer) CurrentSegment() uint32 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.seg
}

// Commit appends one commit line and returns its assigned id and
// timestamp, per the write procedure in spec §4.3.
func (w *Writer) Commit(ops []Op) (CommitID, int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.ensurePrepared_locked(); err != nil {
		return CommitID{}, 0, err
	}

	if w.file != nil && w.currentSize > 0 && w.shouldRotate_locked(0) {
		if err := w.rotate_locked(); err != nil {
			return CommitID{}, 0, err
		}
	}

	if w.file == nil {
		if err := w.openSegment_locked(w.nextSegmentNumber_locked()); err != nil {
			return CommitID{}, 0, err
		}
	}

	ts := w.now().UnixMilli()
	commit := Commit{Ts: ts, Ops: ops}
	line, err := EncodeCommitLine(commit)
	if err != nil {
		return CommitID{}, 0, err
	}
	line = append(line, '\n')

	if err := w.file.WriteHandle(line); err != nil {
		return CommitID{}, 0, err
	}
	if w.fsync {
		if err := w.file.Fsync(); err != nil {
			// The handle is unusable: drop it and rescan the directory
			// on the next Commit so offsets match the lines on disk.
			_ = w.closeFile_locked()
			w.prepared = false
			return CommitID{}, 0, err
		}
	}

	id := CommitID{Segment: w.seg, Offset: w.currentOffset}
	w.currentOffset++
	w.currentSize += int64(len(line))
	return id, ts, nil
}

func (w *Writer) shouldRotate_locked(extra int) bool {
	return w.currentSize+int64(extra) >= w.maxSeg || w.currentOffset >= maxLinesPerSegment
}

func (w *Writer) nextSegmentNumber_locked() uint32 {
	if w.seg == 0 {
		return 1
	}
	return w.seg + 1
}

func (w *Writer) rotate_locked() error {
	closed := w.seg
	if err := w.closeFile_locked(); err != nil {
		return err
	}
	w.logger.Debug("storage: rotating segment", "segment", closed, "size", w.currentSize, "lines", w.currentOffset)
	if w.onRot != nil {
		w.onRot(closed)
	}
	return nil
}

func (w *Writer) closeFile_locked() error {
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

func (w *Writer) openSegment_locked(n uint32) error {
	f := w.dir.File(segmentFilename(n))
	h, err := f.OpenAppend()
	if err != nil {
		return err
	}
	w.file = h
	w.seg = n
	w.currentOffset = 0
	w.currentSize = 0
	return nil
}

// Close flushes and closes any open segment handle.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeFile_locked()
}

// ensurePrepared_locked scans the directory once to locate the
// highest-numbered segment and resume it, per spec §4.3.
func (w *Writer) ensurePrepared_locked() error {
	if w.prepared {
		return w.prepErr
	}
	w.prepared = true
	w.prepErr = w.prepare_locked()
	return w.prepErr
}

func (w *Writer) prepare_locked() error {
	if err := w.dir.Mkdir(); err != nil {
		return err
	}
	entries, err := w.dir.Entries()
	if err != nil {
		return err
	}

	var highest uint32
	var highestCompressed bool
	var found bool
	for _, e := range entries {
		if e.IsDir {
			continue
		}
		n, compressed, ok := parseSegmentFilename(e.Name)
		if !ok {
			continue
		}
		if !found || n > highest {
			highest = n
			highestCompressed = compressed
			found = true
		} else if n == highest && compressed {
			highestCompressed = true
		}
	}

	if !found {
		return nil
	}
	if highestCompressed {
		// The newest segment was already compressed (closed); start a
		// fresh one after it rather than resuming into a .gz file.
		w.seg = highest
		return nil
	}

	f := w.dir.File(segmentFilename(highest))
	data, err := f.ReadAll()
	if err != nil {
		return err
	}

	lines := bytes.Split(data, []byte("\n"))
	var nonEmpty uint16
	for _, l := range lines {
		if len(bytes.TrimSpace(l)) == 0 {
			continue
		}
		nonEmpty++
	}

	h, err := f.OpenAppend()
	if err != nil {
		return err
	}
	w.file = h
	w.seg = highest
	w.currentOffset = nonEmpty
	w.currentSize = int64(len(data))
	return nil
}
