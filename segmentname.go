package storage

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	segmentExt     = ".jsonl"
	segmentGzExt   = ".jsonl.gz"
	segmentNameLen = 8 // hex digits
)

// segmentFilename returns the plain (uncompressed) filename for
// segment n: 8 lowercase hex digits plus ".jsonl" (spec §3).
func segmentFilename(n uint32) string {
	return fmt.Sprintf("%08x%s", n, segmentExt)
}

// compressedSegmentFilename returns the ".jsonl.gz" filename for
// segment n.
func compressedSegmentFilename(n uint32) string {
	return fmt.Sprintf("%08x%s", n, segmentGzExt)
}

// parseSegmentFilename parses either form, returning the segment
// number and whether it was the compressed form. Any other name is
// reported as not-a-segment via ok=false.
func parseSegmentFilename(name string) (n uint32, compressed bool, ok bool) {
	var hex string
	switch {
	case strings.HasSuffix(name, segmentGzExt):
		hex = strings.TrimSuffix(name, segmentGzExt)
		compressed = true
	case strings.HasSuffix(name, segmentExt):
		hex = strings.TrimSuffix(name, segmentExt)
	default:
		return 0, false, false
	}
	if len(hex) != segmentNameLen {
		return 0, false, false
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, false, false
	}
	return uint32(v), compressed, true
}
