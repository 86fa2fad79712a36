package storage

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"math"
	"math/big"

	json "github.com/goccy/go-json"
)

// Kind discriminates the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindBytes
	KindBigInt
	KindArray
	KindObject
)

// Value is the value serializer's in-memory representation: null,
// boolean, number, string, byte buffer, big integer, or a recursively
// composed array/object of values. It round-trips losslessly through
// JSON, including byte buffers and big integers, per spec §6.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
	buf  []byte
	big  *big.Int
	arr  []Value
	obj  map[string]Value
}

const (
	bytesTag  = "$bytes"
	bigintTag = "$bigint"
)

func Null() Value                  { return Value{kind: KindNull} }
func Bool(b bool) Value            { return Value{kind: KindBool, b: b} }
func Number(n float64) Value       { return Value{kind: KindNumber, n: n} }
func String(s string) Value        { return Value{kind: KindString, s: s} }
func Bytes(b []byte) Value         { return Value{kind: KindBytes, buf: append([]byte(nil), b...)} }
func BigInt(i *big.Int) Value      { return Value{kind: KindBigInt, big: new(big.Int).Set(i)} }
func Array(vs []Value) Value       { return Value{kind: KindArray, arr: vs} }
func Object(m map[string]Value) Value {
	return Value{kind: KindObject, obj: m}
}

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) AsBool() (bool, bool)    { return v.b, v.kind == KindBool }
func (v Value) AsNumber() (float64, bool) { return v.n, v.kind == KindNumber }
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }
func (v Value) AsBytes() ([]byte, bool) { return v.buf, v.kind == KindBytes }
func (v Value) AsBigInt() (*big.Int, bool) {
	if v.kind != KindBigInt {
		return nil, false
	}
	return v.big, true
}
func (v Value) AsArray() ([]Value, bool)          { return v.arr, v.kind == KindArray }
func (v Value) AsObject() (map[string]Value, bool) { return v.obj, v.kind == KindObject }

// Equal reports deep equality, treating byte slices and big integers
// by value rather than identity.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindNumber:
		return v.n == o.n
	case KindString:
		return v.s == o.s
	case KindBytes:
		return string(v.buf) == string(o.buf)
	case KindBigInt:
		return v.big.Cmp(o.big) == 0
	case KindArray:
		if len(v.arr) != len(o.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(o.arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(v.obj) != len(o.obj) {
			return false
		}
		for k, vv := range v.obj {
			ov, ok := o.obj[k]
			if !ok || !vv.Equal(ov) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		if v.b {
			return []byte("true"), nil
		}
		return []byte("false"), nil
	case KindNumber:
		if math.IsNaN(v.n) || math.IsInf(v.n, 0) {
			return nil, fmt.Errorf("storage: cannot encode non-finite number")
		}
		return json.Marshal(v.n)
	case KindString:
		return json.Marshal(v.s)
	case KindBytes:
		return json.Marshal(map[string]string{bytesTag: base64.StdEncoding.EncodeToString(v.buf)})
	case KindBigInt:
		return json.Marshal(map[string]string{bigintTag: v.big.String()})
	case KindArray:
		out := make([]json.RawMessage, len(v.arr))
		for i, e := range v.arr {
			b, err := e.MarshalJSON()
			if err != nil {
				return nil, err
			}
			out[i] = b
		}
		return json.Marshal(out)
	case KindObject:
		out := make(map[string]json.RawMessage, len(v.obj))
		for k, e := range v.obj {
			b, err := e.MarshalJSON()
			if err != nil {
				return nil, err
			}
			out[k] = b
		}
		return json.Marshal(out)
	default:
		return nil, fmt.Errorf("storage: unsupported value kind %d", v.kind)
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("storage: decode value: %w", err)
	}
	val, err := fromAny(raw)
	if err != nil {
		return err
	}
	*v = val
	return nil
}

func fromAny(raw any) (Value, error) {
	switch x := raw.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(x), nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("storage: decode number %q: %w", x, err)
		}
		return Number(f), nil
	case string:
		return String(x), nil
	case []any:
		arr := make([]Value, len(x))
		for i, e := range x {
			v, err := fromAny(e)
			if err != nil {
				return Value{}, err
			}
			arr[i] = v
		}
		return Array(arr), nil
	case map[string]any:
		if len(x) == 1 {
			if raw, ok := x[bytesTag]; ok {
				s, ok := raw.(string)
				if !ok {
					return Value{}, fmt.Errorf("storage: %s tag must be a string", bytesTag)
				}
				b, err := base64.StdEncoding.DecodeString(s)
				if err != nil {
					return Value{}, fmt.Errorf("storage: decode %s: %w", bytesTag, err)
				}
				return Bytes(b), nil
			}
			if raw, ok := x[bigintTag]; ok {
				s, ok := raw.(string)
				if !ok {
					return Value{}, fmt.Errorf("storage: %s tag must be a string", bigintTag)
				}
				i, ok := new(big.Int).SetString(s, 10)
				if !ok {
					return Value{}, fmt.Errorf("storage: decode %s: invalid integer %q", bigintTag, s)
				}
				return BigInt(i), nil
			}
		}
		obj := make(map[string]Value, len(x))
		for k, e := range x {
			v, err := fromAny(e)
			if err != nil {
				return Value{}, err
			}
			obj[k] = v
		}
		return Object(obj), nil
	default:
		return Value{}, fmt.Errorf("storage: unsupported decoded type %T", raw)
	}
}
