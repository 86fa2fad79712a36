package storage

import (
	"bytes"
	"fmt"

	json "github.com/goccy/go-json"
)

// OpKind discriminates the two op shapes a commit can carry (spec §3).
type OpKind string

const (
	OpUpdate OpKind = "upd"
	OpDelete OpKind = "del"
)

// Op is one mutation within a commit. Key is the WAL-line (slash-
// joined, percent-escaped) encoding of the context the op addresses.
//
//   - OpUpdate: Values holds the entries to merge-set.
//   - OpDelete with HasValues=true: DeleteKeys lists the sub-keys to
//     remove from that context.
//   - OpDelete with HasValues=false: the context itself and every
//     descendant context are deleted (Key=="" clears the whole store).
type Op struct {
	Kind       OpKind
	Key        string
	Values     map[string]Value
	DeleteKeys []string
	HasValues  bool
}

func UpdateOp(key string, values map[string]Value) Op {
	return Op{Kind: OpUpdate, Key: key, Values: values}
}

func DeleteContextOp(key string) Op {
	return Op{Kind: OpDelete, Key: key}
}

func DeleteKeysOp(key string, keys []string) Op {
	return Op{Kind: OpDelete, Key: key, DeleteKeys: keys, HasValues: true}
}

type wireOp struct {
	Op     string          `json:"op"`
	Key    string          `json:"key"`
	Values json.RawMessage `json:"values,omitempty"`
}

func (op Op) MarshalJSON() ([]byte, error) {
	w := wireOp{Op: string(op.Kind), Key: op.Key}
	switch {
	case op.Kind == OpUpdate:
		b, err := json.Marshal(op.Values)
		if err != nil {
			return nil, err
		}
		w.Values = b
	case op.Kind == OpDelete && op.HasValues:
		b, err := json.Marshal(op.DeleteKeys)
		if err != nil {
			return nil, err
		}
		w.Values = b
	}
	return json.Marshal(w)
}

func (op *Op) UnmarshalJSON(data []byte) error {
	var w wireOp
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("storage: decode op: %w", err)
	}
	switch OpKind(w.Op) {
	case OpUpdate:
		values := make(map[string]Value)
		if len(w.Values) > 0 {
			if err := json.Unmarshal(w.Values, &values); err != nil {
				return fmt.Errorf("storage: decode op values: %w", err)
			}
		}
		*op = Op{Kind: OpUpdate, Key: w.Key, Values: values}
	case OpDelete:
		if len(w.Values) > 0 {
			var keys []string
			if err := json.Unmarshal(w.Values, &keys); err != nil {
				return fmt.Errorf("storage: decode op delete keys: %w", err)
			}
			*op = Op{Kind: OpDelete, Key: w.Key, DeleteKeys: keys, HasValues: true}
		} else {
			*op = Op{Kind: OpDelete, Key: w.Key}
		}
	default:
		return fmt.Errorf("storage: unknown op kind %q", w.Op)
	}
	return nil
}

// Commit is a durable, atomic bundle of ops (spec §3).
type Commit struct {
	Ts  int64
	Ops []Op
}

type wireCommit struct {
	Ts  int64 `json:"ts"`
	Ops []Op  `json:"ops"`
}

// EncodeCommitLine serializes a commit as one line of the extended
// JSON wire format (without the trailing '\n'; the writer appends it).
func EncodeCommitLine(c Commit) ([]byte, error) {
	return json.Marshal(wireCommit{Ts: c.Ts, Ops: c.Ops})
}

// DecodeCommitLine parses one WAL line. It accepts the forward
// {"ts":...,"ops":[...]} form and, for backward compatibility, a bare
// array of ops treated as ts=0 (spec §4.1).
func DecodeCommitLine(line []byte) (Commit, error) {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 {
		return Commit{}, fmt.Errorf("storage: empty commit line")
	}
	if trimmed[0] == '[' {
		var ops []Op
		if err := json.Unmarshal(trimmed, &ops); err != nil {
			return Commit{}, fmt.Errorf("%w: %v", errCorruptLine, err)
		}
		return Commit{Ts: 0, Ops: ops}, nil
	}
	var w wireCommit
	if err := json.Unmarshal(trimmed, &w); err != nil {
		return Commit{}, fmt.Errorf("%w: %v", errCorruptLine, err)
	}
	return Commit{Ts: w.Ts, Ops: w.Ops}, nil
}
