package storage

import (
	"testing"
)

func TestReaderCorruptTrailingLine(t *testing.T) {
	dir := NewOSDir(t.TempDir()).Sub("wal")
	if err := dir.Mkdir(); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	line, err := EncodeCommitLine(Commit{Ts: 1, Ops: []Op{UpdateOp("ctx", map[string]Value{"a": Number(1)})}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	content := append(append([]byte{}, line...), '\n')
	content = append(content, []byte("NOT VALID JSON{{{\n")...)
	if err := dir.File(segmentFilename(1)).WriteAll(content); err != nil {
		t.Fatalf("write segment: %v", err)
	}

	rd := NewReader(dir, ReaderOptions{})
	var got []CommitID
	err = rd.ReadFrom(CommitID{}, func(id CommitID, c Commit) error {
		got = append(got, id)
		return nil
	})
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	if len(got) != 1 || got[0] != (CommitID{Segment: 1, Offset: 0}) {
		t.Fatalf("got %v, want exactly [{1 0}]", got)
	}
}

func TestReaderSkipsBlankLinesWithoutAdvancingOffset(t *testing.T) {
	dir := NewOSDir(t.TempDir()).Sub("wal")
	dir.Mkdir()

	line1, _ := EncodeCommitLine(Commit{Ts: 1, Ops: []Op{UpdateOp("ctx", map[string]Value{"a": Number(1)})}})
	line2, _ := EncodeCommitLine(Commit{Ts: 2, Ops: []Op{UpdateOp("ctx", map[string]Value{"b": Number(2)})}})
	content := string(line1) + "\n\n" + string(line2) + "\n"
	if err := dir.File(segmentFilename(1)).WriteAll([]byte(content)); err != nil {
		t.Fatalf("write: %v", err)
	}

	rd := NewReader(dir, ReaderOptions{})
	var ids []CommitID
	err := rd.ReadFrom(CommitID{}, func(id CommitID, c Commit) error {
		ids = append(ids, id)
		return nil
	})
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	want := []CommitID{{Segment: 1, Offset: 0}, {Segment: 1, Offset: 1}}
	if len(ids) != 2 || ids[0] != want[0] || ids[1] != want[1] {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
}

func TestReaderCursorSkipsSegmentsBelow(t *testing.T) {
	dir := NewOSDir(t.TempDir()).Sub("wal")
	dir.Mkdir()

	for seg := uint32(1); seg <= 2; seg++ {
		line, _ := EncodeCommitLine(Commit{Ts: int64(seg), Ops: []Op{UpdateOp("ctx", map[string]Value{"a": Number(float64(seg))})}})
		if err := dir.File(segmentFilename(seg)).WriteAll(append(line, '\n')); err != nil {
			t.Fatalf("write segment %d: %v", seg, err)
		}
	}

	rd := NewReader(dir, ReaderOptions{})
	segs, err := rd.Segments()
	if err != nil {
		t.Fatalf("Segments: %v", err)
	}
	if len(segs) != 2 || segs[0] != 1 || segs[1] != 2 {
		t.Fatalf("segs = %v", segs)
	}

	var ids []CommitID
	err = rd.ReadFrom(CommitID{Segment: 2, Offset: 0}, func(id CommitID, c Commit) error {
		ids = append(ids, id)
		return nil
	})
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("ids = %v, want none past the only commit in segment 2", ids)
	}
}

func TestReaderUnreadableSegmentIsQuarantinedNotFatal(t *testing.T) {
	dir := NewOSDir(t.TempDir()).Sub("wal")
	dir.Mkdir()
	// A .jsonl.gz file that isn't actually gzip-compressed fails to
	// decompress; the reader should report it via OnUnreadableSegment
	// and continue rather than aborting replay.
	if err := dir.File(compressedSegmentFilename(1)).WriteAll([]byte("not gzip data")); err != nil {
		t.Fatalf("write: %v", err)
	}

	var bad []string
	rd := NewReader(dir, ReaderOptions{OnUnreadableSegment: func(name string, err error) {
		bad = append(bad, name)
	}})
	err := rd.ReadFrom(CommitID{}, func(id CommitID, c Commit) error { return nil })
	if err != nil {
		t.Fatalf("ReadFrom should not fail on an unreadable segment: %v", err)
	}
	if len(bad) != 1 {
		t.Fatalf("bad = %v, want exactly one quarantined segment", bad)
	}
}
