package storage

import (
	"bytes"
	"fmt"
	"log/slog"

	"github.com/cespare/xxhash/v2"
	json "github.com/goccy/go-json"
)

const (
	snapshotBasenamePrimary = "snapshot"
	snapshotBasenameHead    = "head"

	jsonSuffix   = ".json"
	jsonGzSuffix = ".json.gz"
)

// Snapshot is the immutable materialized-view value object of spec §4.4.
type Snapshot struct {
	CommitID CommitID
	Ts       int64
	Data     Store
}

// Get, Keys, Values and Contexts expose the snapshot's synchronous
// query surface, delegating to Store.
func (s Snapshot) Get(ctx ContextPath, key string) (Value, bool)  { return s.Data.Get(ctx, key) }
func (s Snapshot) Keys(ctx ContextPath) []string                 { return s.Data.Keys(ctx) }
func (s Snapshot) Values(ctx ContextPath) map[string]Value       { return s.Data.Values(ctx) }
func (s Snapshot) Contexts(ctx ContextPath) []string             { return s.Data.Contexts(ctx) }

type wireSnapshot struct {
	CommitID CommitID `json:"commitId"`
	Ts       int64    `json:"ts"`
	Data     Store    `json:"data"`
	Checksum uint64   `json:"checksum,omitempty"`
}

// SnapshotIOOptions configures a SnapshotIO.
type SnapshotIOOptions struct {
	Compressor Compressor // default DefaultCompressor
	Logger     *slog.Logger
}

// SnapshotIO saves and loads snapshot files, grounded on
// andreyvit-journal's atomic-publish discipline in segmentwriter.go's
// close path and seal.go's Seal.
type SnapshotIO struct {
	dir        Dir
	compressor Compressor
	logger     *slog.Logger
}

// NewSnapshotIO creates a SnapshotIO rooted at dir (the storage
// directory containing snapshot.json[.gz] / head.json[.gz]).
func NewSnapshotIO(dir Dir, opt SnapshotIOOptions) *SnapshotIO {
	c := opt.Compressor
	if c == nil {
		c = DefaultCompressor
	}
	logger := opt.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SnapshotIO{dir: dir, compressor: c, logger: logger}
}

// Save writes snap under basename ("snapshot" or "head"), pretty-printed
// and, when compress is true, gzip-compressed, per spec §4.4. The write
// is atomic (temp file then rename); the sibling-extension file is
// removed afterward so auto-detect on load never has to choose between
// two stale copies of the same snapshot.
func (sio *SnapshotIO) Save(basename string, snap Snapshot, compress bool) error {
	dataJSON, err := json.Marshal(snap.Data)
	if err != nil {
		return fmt.Errorf("encoding snapshot data: %w", err)
	}
	wire := wireSnapshot{
		CommitID: snap.CommitID,
		Ts:       snap.Ts,
		Data:     snap.Data,
		Checksum: xxhash.Sum64(dataJSON),
	}
	payload, err := json.MarshalIndent(wire, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	finalName := basename + jsonSuffix
	otherName := basename + jsonGzSuffix
	if compress {
		finalName, otherName = otherName, finalName
		var buf bytes.Buffer
		zw, err := sio.compressor.NewWriter(&buf)
		if err != nil {
			return fmt.Errorf("compressing snapshot: %w", err)
		}
		if _, err := zw.Write(payload); err != nil {
			zw.Close()
			return fmt.Errorf("compressing snapshot: %w", err)
		}
		if err := zw.Close(); err != nil {
			return fmt.Errorf("compressing snapshot: %w", err)
		}
		payload = buf.Bytes()
	}

	if err := atomicWrite(sio.dir, finalName, payload); err != nil {
		return fmt.Errorf("writing snapshot %s: %w", finalName, err)
	}
	if err := sio.dir.File(otherName).Delete(); err != nil {
		sio.logger.Warn("storage: failed to remove stale snapshot file", "name", otherName, "err", err)
	}
	return nil
}

// Load auto-detects and loads the snapshot stored under basename,
// preferring whichever of the compressed/uncompressed forms has the
// newer modification time when both exist. Returns ok=false if neither
// file exists.
func (sio *SnapshotIO) Load(basename string) (Snapshot, bool, error) {
	plainFile := sio.dir.File(basename + jsonSuffix)
	gzFile := sio.dir.File(basename + jsonGzSuffix)

	plainExists, err := plainFile.Exists()
	if err != nil {
		return Snapshot{}, false, err
	}
	gzExists, err := gzFile.Exists()
	if err != nil {
		return Snapshot{}, false, err
	}

	var chosen File
	var compressed bool
	switch {
	case plainExists && gzExists:
		pt, err := plainFile.ModTime()
		if err != nil {
			return Snapshot{}, false, err
		}
		gt, err := gzFile.ModTime()
		if err != nil {
			return Snapshot{}, false, err
		}
		if gt.After(pt) {
			chosen, compressed = gzFile, true
		} else {
			chosen, compressed = plainFile, false
		}
	case gzExists:
		chosen, compressed = gzFile, true
	case plainExists:
		chosen, compressed = plainFile, false
	default:
		return Snapshot{}, false, nil
	}

	raw, err := chosen.ReadAll()
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("reading snapshot %s: %w", chosen.Path(), err)
	}
	if compressed {
		zr, err := sio.compressor.NewReader(bytes.NewReader(raw))
		if err != nil {
			return Snapshot{}, false, fmt.Errorf("decompressing snapshot %s: %w", chosen.Path(), err)
		}
		defer zr.Close()
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(zr); err != nil {
			return Snapshot{}, false, fmt.Errorf("decompressing snapshot %s: %w", chosen.Path(), err)
		}
		raw = buf.Bytes()
	}

	var wire wireSnapshot
	if err := json.Unmarshal(raw, &wire); err != nil {
		return Snapshot{}, false, fmt.Errorf("decoding snapshot %s: %w", chosen.Path(), err)
	}
	if wire.Data == nil {
		wire.Data = Store{}
	}

	if wire.Checksum != 0 {
		dataJSON, err := json.Marshal(wire.Data)
		if err == nil {
			if got := xxhash.Sum64(dataJSON); got != wire.Checksum {
				sio.logger.Warn("storage: snapshot checksum mismatch, loading anyway", "name", chosen.Path())
			}
		}
	}

	return Snapshot{CommitID: wire.CommitID, Ts: wire.Ts, Data: wire.Data}, true, nil
}
