package storage

import (
	"testing"
	"time"
)

func TestCompactorPreservesState(t *testing.T) {
	root := NewOSDir(t.TempDir())
	wal := root.Sub("wal")
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	w := NewWriter(wal, WriterOptions{Now: fixedClock(now), MaxSegmentSize: 1})
	var ids []CommitID
	for i := 0; i < 3; i++ {
		id, _, err := w.Commit([]Op{UpdateOp("ctx", map[string]Value{"n": Number(float64(i))})})
		if err != nil {
			t.Fatalf("commit %d: %v", i, err)
		}
		ids = append(ids, id)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	snapshotID := ids[2] // {segment: 3, offset: 0}
	if snapshotID.Segment != 3 {
		t.Fatalf("test setup assumption broken: ids = %v", ids)
	}

	c := NewCompactor(root, wal, CompactorOptions{})
	if err := c.Run(snapshotID); err != nil {
		t.Fatalf("compact: %v", err)
	}

	sio := NewSnapshotIO(root, SnapshotIOOptions{})
	head, ok, err := sio.Load("head")
	if err != nil {
		t.Fatalf("load head: %v", err)
	}
	if !ok {
		t.Fatalf("expected a head snapshot to be written")
	}
	if head.CommitID != ids[1] {
		t.Fatalf("head.CommitID = %+v, want %+v (last commit in segment 2)", head.CommitID, ids[1])
	}

	for _, seg := range []uint32{1, 2} {
		exists, err := wal.File(segmentFilename(seg)).Exists()
		if err != nil {
			t.Fatalf("exists(%d): %v", seg, err)
		}
		if exists {
			t.Fatalf("segment %d should have been deleted", seg)
		}
	}
	exists, err := wal.File(segmentFilename(3)).Exists()
	if err != nil || !exists {
		t.Fatalf("segment 3 should be retained: %v %v", exists, err)
	}

	// Idempotent: a second run with the same snapshot id is a no-op.
	if err := c.Run(snapshotID); err != nil {
		t.Fatalf("second compact: %v", err)
	}
}
