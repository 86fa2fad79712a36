package storage

import "testing"

func TestSegmentFilenameRoundTrip(t *testing.T) {
	cases := []uint32{0, 1, 2, 255, 65535, 1 << 20, 1<<32 - 1}
	for _, n := range cases {
		name := segmentFilename(n)
		got, compressed, ok := parseSegmentFilename(name)
		if !ok {
			t.Fatalf("parseSegmentFilename(%q) not ok", name)
		}
		if compressed {
			t.Fatalf("parseSegmentFilename(%q) reported compressed for a .jsonl name", name)
		}
		if got != n {
			t.Fatalf("round trip %d -> %q -> %d", n, name, got)
		}

		gzName := compressedSegmentFilename(n)
		got, compressed, ok = parseSegmentFilename(gzName)
		if !ok || !compressed || got != n {
			t.Fatalf("compressed round trip %d -> %q -> (%d, %v, %v)", n, gzName, got, compressed, ok)
		}
	}
}

func TestParseSegmentFilenameRejectsOther(t *testing.T) {
	for _, name := range []string{"snapshot.json", "head.json.gz", "0000001.jsonl", "0000000g.jsonl", "trash"} {
		if _, _, ok := parseSegmentFilename(name); ok {
			t.Fatalf("parseSegmentFilename(%q) unexpectedly ok", name)
		}
	}
}

func TestCommitIDCompareAndOrder(t *testing.T) {
	a := CommitID{Segment: 1, Offset: 5}
	b := CommitID{Segment: 1, Offset: 6}
	c := CommitID{Segment: 2, Offset: 0}

	if Compare(a, b) >= 0 {
		t.Fatalf("expected a < b")
	}
	if Compare(b, c) >= 0 {
		t.Fatalf("expected b < c")
	}
	if !b.After(a) {
		t.Fatalf("expected b.After(a)")
	}
	if a.After(b) {
		t.Fatalf("expected !a.After(b)")
	}
	var zero CommitID
	if !zero.IsZero() {
		t.Fatalf("expected zero value to report IsZero")
	}
}

func TestCommitIDToNumber(t *testing.T) {
	id := CommitID{Segment: 2, Offset: 3}
	if got, want := id.ToNumber(), uint64(2)<<16|3; got != want {
		t.Fatalf("ToNumber() = %d, want %d", got, want)
	}
}
