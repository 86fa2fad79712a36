package storage

import (
	"io"

	"github.com/klauspost/compress/gzip"
)

// Compressor is the streaming compression collaborator (spec §6),
// gzip-compatible.
type Compressor interface {
	// NewWriter wraps w so that bytes written to the result arrive
	// compressed on w. The caller must Close the result to flush.
	NewWriter(w io.Writer) (io.WriteCloser, error)
	// NewReader wraps r so that bytes read from the result are the
	// decompressed form of r's contents.
	NewReader(r io.Reader) (io.ReadCloser, error)
}

// gzipCompressor implements Compressor over klauspost/compress/gzip,
// an API-compatible drop-in for stdlib compress/gzip. Grounded on
// andreyvit-journal's indirect klauspost/compress dependency (pulled
// in transitively via sealer there), promoted here to a direct,
// exercised dependency for closed-segment and snapshot compression.
type gzipCompressor struct{}

// DefaultCompressor is the gzip-backed Compressor used unless an
// Options override supplies a different one.
var DefaultCompressor Compressor = gzipCompressor{}

func (gzipCompressor) NewWriter(w io.Writer) (io.WriteCloser, error) {
	return gzip.NewWriter(w), nil
}

func (gzipCompressor) NewReader(r io.Reader) (io.ReadCloser, error) {
	return gzip.NewReader(r)
}
