// Package storage implements a transactional, crash-safe, hierarchical
// key-value store backed by a segmented write-ahead log.
//
// On disk, a store directory holds:
//
//   - snapshot.json[.gz]  — the primary materialized snapshot
//   - head.json[.gz]      — an optional compaction-staging snapshot
//   - wal/NNNNNNNN.jsonl[.gz] — bounded append-only segments of commits
//
// Values live in a tree of contexts (ordered, dot-free path segments);
// each context holds a flat bag of keys. Callers buffer reads and
// writes through a Transaction and commit it atomically; the Driver
// mirrors committed state in an in-memory cache so reads never touch
// disk.
//
// Intended use cases:
//
//   - Local persistence for a smart-home hub: device state, schedules,
//     per-room configuration, addressed by a context path.
//   - Any embedded store that needs crash-safe commits without
//     running a full database server.
//
// Features:
//
//   - Ordered, replayable commit log, segmented so no single file grows
//     without bound.
//   - Periodic snapshots bound replay time after a restart.
//   - A compactor prunes segments once a snapshot has absorbed them,
//     folding anything not yet captured into a head snapshot first.
//   - Closed segments may be rewritten compressed as a size
//     optimization; compressed and uncompressed forms are read
//     transparently.
//
// # Wire format
//
// Each WAL line is one JSON object terminated by '\n':
//
//	{"ts":<unix ms>,"ops":[<op>,...]}
//
// where each op is
//
//	{"op":"upd","key":"<ctx>","values":{...}}
//	{"op":"del","key":"<ctx>"}                  // subtree clear
//	{"op":"del","key":"<ctx>","values":["k",...]} // per-key delete
//
// A bare array of ops is accepted on read as a legacy form equivalent
// to ts=0.
package storage
