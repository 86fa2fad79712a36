package storage

import (
	"fmt"
	"strings"
)

// ContextPath is an ordered sequence of non-empty, dot-free segments
// naming a node in the context tree (spec §3).
type ContextPath []string

// DottedKey returns the cache-form encoding: segments joined with ".".
// The root context encodes as "".
func (p ContextPath) DottedKey() string {
	return strings.Join(p, ".")
}

// Equal reports whether p and o name the same context.
func (p ContextPath) Equal(o ContextPath) bool {
	if len(p) != len(o) {
		return false
	}
	for i, seg := range p {
		if seg != o[i] {
			return false
		}
	}
	return true
}

// WireKey returns the WAL-line encoding: segments joined with "/",
// with "%" and "/" percent-escaped within each segment.
func (p ContextPath) WireKey() string {
	if len(p) == 0 {
		return ""
	}
	parts := make([]string, len(p))
	for i, seg := range p {
		parts[i] = escapeSegment(seg)
	}
	return strings.Join(parts, "/")
}

func escapeSegment(seg string) string {
	if !strings.ContainsAny(seg, "%/") {
		return seg
	}
	var b strings.Builder
	b.Grow(len(seg))
	for _, r := range seg {
		switch r {
		case '%':
			b.WriteString("%25")
		case '/':
			b.WriteString("%2F")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func unescapeSegment(seg string) (string, error) {
	if !strings.ContainsRune(seg, '%') {
		return seg, nil
	}
	var b strings.Builder
	b.Grow(len(seg))
	for i := 0; i < len(seg); i++ {
		if seg[i] != '%' {
			b.WriteByte(seg[i])
			continue
		}
		if i+2 >= len(seg) {
			return "", fmt.Errorf("storage: truncated escape in context segment %q", seg)
		}
		switch seg[i : i+3] {
		case "%25":
			b.WriteByte('%')
		case "%2F":
			b.WriteByte('/')
		default:
			return "", fmt.Errorf("storage: invalid escape %q in context segment", seg[i:i+3])
		}
		i += 2
	}
	return b.String(), nil
}

// ParseWireKey reverses WireKey.
func ParseWireKey(s string) (ContextPath, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, "/")
	out := make(ContextPath, len(parts))
	for i, p := range parts {
		u, err := unescapeSegment(p)
		if err != nil {
			return nil, err
		}
		out[i] = u
	}
	return out, nil
}

// ParseDottedKey reverses DottedKey.
func ParseDottedKey(s string) ContextPath {
	if s == "" {
		return nil
	}
	return ContextPath(strings.Split(s, "."))
}

// ValidateKey checks that k is non-empty and dot-free, per spec §3.
func ValidateKey(k string) error {
	if k == "" {
		return fmt.Errorf("storage: key must not be empty")
	}
	if strings.Contains(k, ".") {
		return fmt.Errorf("storage: key %q must not contain '.'", k)
	}
	return nil
}

// ValidateContextPath checks that every segment is non-empty and
// dot-free, per spec §3.
func ValidateContextPath(p ContextPath) error {
	for _, seg := range p {
		if seg == "" {
			return fmt.Errorf("storage: context segment must not be empty")
		}
		if strings.Contains(seg, ".") {
			return fmt.Errorf("storage: context segment %q must not contain '.'", seg)
		}
	}
	return nil
}
