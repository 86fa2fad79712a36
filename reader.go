package storage

import (
	"bytes"
	"fmt"
	"log/slog"
	"sort"
)

// ReaderOptions configures a Reader.
type ReaderOptions struct {
	Compressor Compressor // default DefaultCompressor
	Logger     *slog.Logger

	// OnUnreadableSegment is called when a segment file cannot be
	// opened or decompressed at all (as opposed to a single corrupt
	// line within an otherwise-readable segment). Driver wires this to
	// the trash quarantine helper.
	OnUnreadableSegment func(name string, err error)
}

// Reader replays commits from a WAL directory in ascending commit-id
// order, grounded on andreyvit-journal's reader.go/segmentreader.go.
type Reader struct {
	dir        Dir
	compressor Compressor
	logger     *slog.Logger
	onBad      func(name string, err error)
}

// NewReader creates a reader over dir.
func NewReader(dir Dir, opt ReaderOptions) *Reader {
	c := opt.Compressor
	if c == nil {
		c = DefaultCompressor
	}
	logger := opt.Logger
	if logger == nil {
		logger = slog.Default()
	}
	onBad := opt.OnUnreadableSegment
	if onBad == nil {
		onBad = func(string, error) {}
	}
	return &Reader{dir: dir, compressor: c, logger: logger, onBad: onBad}
}

// segmentSource describes one on-disk segment file chosen for reading,
// preferring the compressed form when both exist (spec §4.2).
type segmentSource struct {
	num        uint32
	name       string
	compressed bool
}

// Segments lists segment numbers present in the directory, ascending,
// deduplicating compressed/uncompressed pairs.
func (r *Reader) Segments() ([]uint32, error) {
	srcs, err := r.sources()
	if err != nil {
		return nil, err
	}
	nums := make([]uint32, 0, len(srcs))
	for _, s := range srcs {
		nums = append(nums, s.num)
	}
	return nums, nil
}

func (r *Reader) sources() ([]segmentSource, error) {
	exists, err := r.dir.Exists()
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}
	entries, err := r.dir.Entries()
	if err != nil {
		return nil, err
	}

	chosen := make(map[uint32]segmentSource)
	for _, e := range entries {
		if e.IsDir {
			continue
		}
		n, compressed, ok := parseSegmentFilename(e.Name)
		if !ok {
			continue
		}
		cur, have := chosen[n]
		if !have || (compressed && !cur.compressed) {
			chosen[n] = segmentSource{num: n, name: e.Name, compressed: compressed}
		}
	}

	out := make([]segmentSource, 0, len(chosen))
	for _, s := range chosen {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].num < out[j].num })
	return out, nil
}

// CommitFunc receives one replayed commit in ascending order. Returning
// an error aborts ReadFrom and propagates the error.
type CommitFunc func(id CommitID, c Commit) error

// ReadFrom replays every commit strictly after cursor, across segments
// in ascending order, per the procedure in spec §4.2. A zero-value
// cursor replays the entire log.
func (r *Reader) ReadFrom(cursor CommitID, fn CommitFunc) error {
	srcs, err := r.sources()
	if err != nil {
		return err
	}
	for _, s := range srcs {
		if s.num < cursor.Segment {
			continue
		}
		if err := r.readSegment(s, cursor, fn); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reader) readSegment(s segmentSource, cursor CommitID, fn CommitFunc) error {
	data, err := r.readSegmentBytes(s)
	if err != nil {
		r.logger.Warn("storage: unreadable segment, quarantining", "segment", s.name, "err", err)
		r.onBad(s.name, err)
		return nil
	}

	lines := bytes.Split(data, []byte("\n"))
	var offset uint16
	for _, line := range lines {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		id := CommitID{Segment: s.num, Offset: offset}
		offset++

		if !id.After(cursor) {
			continue
		}

		commit, err := DecodeCommitLine(line)
		if err != nil {
			r.logger.Warn("storage: corrupt WAL line skipped", "segment", s.name, "offset", id.Offset, "err", err)
			continue
		}
		if err := fn(id, commit); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reader) readSegmentBytes(s segmentSource) ([]byte, error) {
	f := r.dir.File(s.name)
	raw, err := f.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading segment %s: %w", s.name, err)
	}
	if !s.compressed {
		return raw, nil
	}
	zr, err := r.compressor.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decompressing segment %s: %w", s.name, err)
	}
	defer zr.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(zr); err != nil {
		return nil, fmt.Errorf("decompressing segment %s: %w", s.name, err)
	}
	return buf.Bytes(), nil
}
