package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultSnapshotInterval is how often the driver takes a primary
// snapshot when Options.SnapshotInterval is left at its zero value and
// Options.DisableSnapshotSchedule is false.
const DefaultSnapshotInterval = 5 * time.Minute

// Options configures a Driver, following the same zero-value-defaulted
// shape as andreyvit-journal's journal.Options / journal.New.
type Options struct {
	MaxSegmentSize          int64
	NoFsync                 bool
	Compressor              Compressor
	Logger                  *slog.Logger
	Now                     func() time.Time
	Context                 context.Context
	SnapshotInterval        time.Duration
	DisableSnapshotSchedule bool
	DisableSnapshotCompress bool
	CompressClosedSegments  bool
	DisableSnapshotOnClose  bool
}

func (o Options) withDefaults() Options {
	if o.Compressor == nil {
		o.Compressor = DefaultCompressor
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Context == nil {
		o.Context = context.Background()
	}
	if o.SnapshotInterval == 0 {
		o.SnapshotInterval = DefaultSnapshotInterval
	}
	return o
}

// Summary reports the driver's current durability position, used by
// walctl status and by tests.
type Summary struct {
	LastApplied       CommitID
	Segments          []uint32
	PrimarySnapshotID CommitID
	HeadSnapshotID    CommitID
}

// Driver owns the lifecycle of one WAL storage directory: snapshot and
// replay on open, the in-memory cache, the writer, and the compactor
// (spec §4.8).
type Driver struct {
	root Dir
	wal  Dir
	blob Dir

	opt   Options
	now   func() time.Time
	sio   *SnapshotIO
	rd    *Reader
	wr    *Writer
	comp  *Compactor
	trash *Trash

	cacheMu sync.RWMutex
	cache   Store

	stateMu           sync.Mutex
	lastApplied       CommitID
	primarySnapshotID CommitID

	snapSched *Scheduler
}

// Open initializes a Driver over root: loads the newer of the primary
// and head snapshots, hydrates the cache, replays commits strictly
// after it, and opens a writer positioned to continue the log.
func Open(root Dir, opt Options) (*Driver, error) {
	opt = opt.withDefaults()

	if err := root.Mkdir(); err != nil {
		return nil, fmt.Errorf("storage: creating root dir: %w", err)
	}
	wal := root.Sub("wal")
	if err := wal.Mkdir(); err != nil {
		return nil, fmt.Errorf("storage: creating wal dir: %w", err)
	}

	sio := NewSnapshotIO(root, SnapshotIOOptions{Compressor: opt.Compressor, Logger: opt.Logger})

	head, headOK, err := sio.Load(snapshotBasenameHead)
	if err != nil {
		return nil, fmt.Errorf("storage: loading head snapshot: %w", err)
	}
	primary, primaryOK, err := sio.Load(snapshotBasenamePrimary)
	if err != nil {
		return nil, fmt.Errorf("storage: loading primary snapshot: %w", err)
	}

	base := Snapshot{Data: Store{}}
	switch {
	case headOK && primaryOK:
		if head.CommitID.After(primary.CommitID) {
			base = head
		} else {
			base = primary
		}
	case headOK:
		base = head
	case primaryOK:
		base = primary
	}
	if base.Data == nil {
		base.Data = Store{}
	}

	d := &Driver{
		root:              root,
		wal:               wal,
		blob:              root.Sub("blobs"),
		opt:               opt,
		now:               clockNow(opt.Now),
		sio:               sio,
		cache:             base.Data.Clone(),
		lastApplied:       base.CommitID,
		primarySnapshotID: primary.CommitID,
	}
	d.trash = NewTrash(wal, opt.Logger)
	d.rd = NewReader(wal, ReaderOptions{
		Compressor:          opt.Compressor,
		Logger:              opt.Logger,
		OnUnreadableSegment: func(name string, cause error) { _ = d.trash.Quarantine(name, cause) },
	})
	d.comp = NewCompactor(root, wal, CompactorOptions{Compressor: opt.Compressor, Logger: opt.Logger})

	if err := d.rd.ReadFrom(base.CommitID, func(id CommitID, c Commit) error {
		if err := ApplyCommit(d.cache, c); err != nil {
			return err
		}
		d.lastApplied = id
		return nil
	}); err != nil {
		return nil, fmt.Errorf("storage: replaying log: %w", err)
	}

	d.wr = NewWriter(wal, WriterOptions{
		MaxSegmentSize: opt.MaxSegmentSize,
		NoFsync:        opt.NoFsync,
		Logger:         opt.Logger,
		Now:            opt.Now,
		OnRotate:       d.handleRotate,
	})

	if !opt.DisableSnapshotSchedule {
		d.snapSched = StartScheduler(opt.Context, opt.SnapshotInterval, func(context.Context) {
			if err := d.Snapshot(); err != nil {
				opt.Logger.Warn("storage: scheduled snapshot failed", "err", err)
			}
		})
	}
	return d, nil
}

// handleRotate is the writer's rotation callback (spec §4.3, §9): it
// runs inline with the commit that triggered rotation, but the actual
// cleanup work is handed off to a goroutine so the commit path is not
// blocked (spec §5).
func (d *Driver) handleRotate(closedSegment uint32) {
	go func() {
		d.stateMu.Lock()
		snapID := d.primarySnapshotID
		d.stateMu.Unlock()

		if snapID.Segment > closedSegment {
			if err := d.comp.Run(snapID); err != nil {
				d.opt.Logger.Warn("storage: compaction failed", "err", err)
			}
		}
		if d.opt.CompressClosedSegments {
			if err := d.compressSegment(closedSegment); err != nil {
				d.opt.Logger.Warn("storage: segment compression failed", "segment", closedSegment, "err", err)
			}
		}
	}()
}

func (d *Driver) compressSegment(n uint32) error {
	name := segmentFilename(n)
	f := d.wal.File(name)
	exists, err := f.Exists()
	if err != nil || !exists {
		return err
	}
	data, err := f.ReadAll()
	if err != nil {
		return err
	}

	var buf sizedBuffer
	zw, err := d.opt.Compressor.NewWriter(&buf)
	if err != nil {
		return err
	}
	if _, err := zw.Write(data); err != nil {
		zw.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}

	if err := d.wal.File(compressedSegmentFilename(n)).WriteAll(buf.Bytes()); err != nil {
		return err
	}
	return f.Delete()
}

// --- txHost implementation ---

func (d *Driver) cacheGet(ctx ContextPath, key string) (Value, bool) {
	d.cacheMu.RLock()
	defer d.cacheMu.RUnlock()
	return d.cache.Get(ctx, key)
}

func (d *Driver) cacheClone() Store {
	d.cacheMu.RLock()
	defer d.cacheMu.RUnlock()
	return d.cache.Clone()
}

func (d *Driver) commitOps(ops []Op) (CommitID, error) {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()

	id, ts, err := d.wr.Commit(ops)
	if err != nil {
		return CommitID{}, fmt.Errorf("storage: appending commit: %w", err)
	}

	d.cacheMu.Lock()
	applyErr := ApplyCommit(d.cache, Commit{Ts: ts, Ops: ops})
	d.cacheMu.Unlock()
	if applyErr != nil {
		d.opt.Logger.Error("storage: committed ops failed to apply to cache", "err", applyErr)
		return CommitID{}, applyErr
	}

	d.lastApplied = id
	return id, nil
}

// --- public K/V API ---

// Begin starts a new transaction.
func (d *Driver) Begin() *Transaction {
	return newTransaction(d)
}

// Get reads key in ctx directly from the cache.
func (d *Driver) Get(ctx ContextPath, key string) (Value, bool) {
	return d.cacheGet(ctx, key)
}

// Keys lists the keys present directly in ctx.
func (d *Driver) Keys(ctx ContextPath) []string {
	d.cacheMu.RLock()
	defer d.cacheMu.RUnlock()
	return d.cache.Keys(ctx)
}

// Values returns a shallow copy of the key/value bag at ctx.
func (d *Driver) Values(ctx ContextPath) map[string]Value {
	d.cacheMu.RLock()
	defer d.cacheMu.RUnlock()
	return d.cache.Values(ctx)
}

// Contexts lists the immediate child contexts of ctx.
func (d *Driver) Contexts(ctx ContextPath) []string {
	d.cacheMu.RLock()
	defer d.cacheMu.RUnlock()
	return d.cache.Contexts(ctx)
}

// Set merges values into ctx via an implicit single-op transaction.
func (d *Driver) Set(ctx ContextPath, values map[string]Value) error {
	tx := d.Begin()
	defer tx.Dispose()
	if err := tx.Set(ctx, values); err != nil {
		return err
	}
	_, err := tx.Commit()
	return err
}

// SetOne merges one key/value pair into ctx.
func (d *Driver) SetOne(ctx ContextPath, key string, v Value) error {
	return d.Set(ctx, map[string]Value{key: v})
}

// Delete removes one key from ctx via an implicit single-op transaction.
func (d *Driver) Delete(ctx ContextPath, key string) error {
	tx := d.Begin()
	defer tx.Dispose()
	if err := tx.Delete(ctx, key); err != nil {
		return err
	}
	_, err := tx.Commit()
	return err
}

// ClearAll deletes ctx and every descendant context.
func (d *Driver) ClearAll(ctx ContextPath) error {
	tx := d.Begin()
	defer tx.Dispose()
	if err := tx.ClearAll(ctx); err != nil {
		return err
	}
	_, err := tx.Commit()
	return err
}

// --- blob I/O (out of the WAL; pass-through to the filesystem
// collaborator with a key-derived path, per spec §4.8) ---

func (d *Driver) blobFile(key string) File {
	return d.blob.File(escapeSegment(key))
}

// GetBlob reads a blob's full contents.
func (d *Driver) GetBlob(key string) ([]byte, error) {
	f := d.blobFile(key)
	exists, err := f.Exists()
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotFound
	}
	return f.ReadAll()
}

// PutBlob replaces a blob's contents.
func (d *Driver) PutBlob(key string, data []byte) error {
	if err := d.blob.Mkdir(); err != nil {
		return err
	}
	return d.blobFile(key).WriteAll(data)
}

// DeleteBlob removes a blob. Deleting a missing blob is not an error.
func (d *Driver) DeleteBlob(key string) error {
	return d.blobFile(key).Delete()
}

// --- snapshot schedule, compaction, summary, close ---

// Snapshot captures the current cache under a brief lock, pairs it with
// the latest applied commit id, and writes it atomically as the
// primary snapshot. After success it considers compaction, per spec
// §4.8's snapshot schedule.
func (d *Driver) Snapshot() error {
	d.stateMu.Lock()
	d.cacheMu.RLock()
	data := d.cache.Clone()
	d.cacheMu.RUnlock()
	id := d.lastApplied
	d.stateMu.Unlock()

	snap := Snapshot{CommitID: id, Ts: d.now().UnixMilli(), Data: data}
	if err := d.sio.Save(snapshotBasenamePrimary, snap, !d.opt.DisableSnapshotCompress); err != nil {
		return fmt.Errorf("storage: saving primary snapshot: %w", err)
	}

	d.stateMu.Lock()
	d.primarySnapshotID = id
	d.stateMu.Unlock()

	return d.comp.Run(id)
}

// Compact forces a compaction pass against the current primary
// snapshot id.
func (d *Driver) Compact() error {
	d.stateMu.Lock()
	id := d.primarySnapshotID
	d.stateMu.Unlock()
	return d.comp.Run(id)
}

// Summary reports the driver's durability position.
func (d *Driver) Summary() (Summary, error) {
	segs, err := d.rd.Segments()
	if err != nil {
		return Summary{}, err
	}
	head, headOK, err := d.sio.Load(snapshotBasenameHead)
	if err != nil {
		return Summary{}, err
	}
	var headID CommitID
	if headOK {
		headID = head.CommitID
	}

	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	return Summary{
		LastApplied:       d.lastApplied,
		Segments:          segs,
		PrimarySnapshotID: d.primarySnapshotID,
		HeadSnapshotID:    headID,
	}, nil
}

// Close flushes and closes the writer, optionally takes a final
// snapshot, and drops the cache, per spec §4.8.
func (d *Driver) Close() error {
	if d.snapSched != nil {
		d.snapSched.Stop()
	}

	var firstErr error
	if err := d.wr.Close(); err != nil {
		firstErr = err
	}

	if !d.opt.DisableSnapshotOnClose {
		if err := d.Snapshot(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	d.cacheMu.Lock()
	d.cache = nil
	d.cacheMu.Unlock()
	return firstErr
}

// sizedBuffer is a minimal growable byte buffer satisfying io.Writer,
// used so compressSegment doesn't need to pull in bytes.Buffer's wider
// API for a single write/Bytes round trip.
type sizedBuffer struct {
	b []byte
}

func (s *sizedBuffer) Write(p []byte) (int, error) {
	s.b = append(s.b, p...)
	return len(p), nil
}

func (s *sizedBuffer) Bytes() []byte { return s.b }
