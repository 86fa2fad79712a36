package storage

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

var errStopReplay = errors.New("storage: stop replay")

// CompactorOptions configures a Compactor.
type CompactorOptions struct {
	Compressor Compressor // default DefaultCompressor
	Logger     *slog.Logger
}

// Compactor prunes segments fully captured by the primary snapshot,
// building a head snapshot to absorb their commits first, grounded on
// andreyvit-journal's seal.go Seal/Trim pair.
type Compactor struct {
	root Dir
	wal  Dir
	sio  *SnapshotIO
	rd   *Reader
	log  *slog.Logger

	mu sync.Mutex
}

// NewCompactor creates a Compactor over the storage root directory
// (which contains snapshot.json[.gz]/head.json[.gz]) and its wal/
// subdirectory.
func NewCompactor(root, wal Dir, opt CompactorOptions) *Compactor {
	logger := opt.Logger
	if logger == nil {
		logger = slog.Default()
	}
	compressor := opt.Compressor
	if compressor == nil {
		compressor = DefaultCompressor
	}
	return &Compactor{
		root: root,
		wal:  wal,
		sio:  NewSnapshotIO(root, SnapshotIOOptions{Compressor: compressor, Logger: logger}),
		rd:   NewReader(wal, ReaderOptions{Compressor: compressor, Logger: logger}),
		log:  logger,
	}
}

// Run performs one compaction pass against the given primary snapshot
// commit id, per spec §4.5. Idempotent: a second run with the same
// snapshotCommitID finds nothing left to delete and is a no-op.
func (c *Compactor) Run(snapshotCommitID CommitID) error {
	if !c.mu.TryLock() {
		return nil
	}
	defer c.mu.Unlock()

	srcs, err := c.rd.sources()
	if err != nil {
		return fmt.Errorf("enumerating segments: %w", err)
	}

	var toDelete []segmentSource
	for _, s := range srcs {
		if s.num < snapshotCommitID.Segment {
			toDelete = append(toDelete, s)
		}
	}
	if len(toDelete) == 0 {
		return nil
	}

	if err := c.buildHeadSnapshot(snapshotCommitID); err != nil {
		return fmt.Errorf("building head snapshot: %w", err)
	}

	for _, s := range toDelete {
		if err := c.wal.File(s.name).Delete(); err != nil {
			return fmt.Errorf("deleting segment %s: %w", s.name, err)
		}
		c.log.Debug("storage: compactor removed segment", "segment", s.name)
	}
	return nil
}

func (c *Compactor) buildHeadSnapshot(boundary CommitID) error {
	base, _, err := c.sio.Load(snapshotBasenameHead)
	if err != nil {
		return fmt.Errorf("loading previous head snapshot: %w", err)
	}
	if base.Data == nil {
		base.Data = Store{}
	}

	store := base.Data.Clone()
	last := base.CommitID
	lastTs := base.Ts

	err = c.rd.ReadFrom(base.CommitID, func(id CommitID, commit Commit) error {
		if id.Segment >= boundary.Segment {
			return errStopReplay
		}
		if err := ApplyCommit(store, commit); err != nil {
			return err
		}
		last = id
		lastTs = commit.Ts
		return nil
	})
	if err != nil && !errors.Is(err, errStopReplay) {
		return err
	}

	head := Snapshot{CommitID: last, Ts: lastTs, Data: store}
	return c.sio.Save(snapshotBasenameHead, head, true)
}
