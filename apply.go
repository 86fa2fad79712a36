package storage

import "strings"

// Store is the materialized `encodedContextPath -> (key -> value)`
// mapping described in spec §3, keyed by the dot-joined cache form.
type Store map[string]map[string]Value

// Clone returns a deep copy, used when taking a snapshot of the cache.
func (s Store) Clone() Store {
	out := make(Store, len(s))
	for ctx, kv := range s {
		cp := make(map[string]Value, len(kv))
		for k, v := range kv {
			cp[k] = v
		}
		out[ctx] = cp
	}
	return out
}

// ApplyCommit applies every op of a commit to store, in order,
// per spec §4.6.
func ApplyCommit(store Store, c Commit) error {
	for _, op := range c.Ops {
		if err := applyOp(store, op); err != nil {
			return err
		}
	}
	return nil
}

func applyOp(store Store, op Op) error {
	ctxPath, err := ParseWireKey(op.Key)
	if err != nil {
		return err
	}
	ctx := ctxPath.DottedKey()

	switch op.Kind {
	case OpUpdate:
		bag, ok := store[ctx]
		if !ok {
			bag = make(map[string]Value, len(op.Values))
			store[ctx] = bag
		}
		for k, v := range op.Values {
			bag[k] = v
		}
		return nil

	case OpDelete:
		if op.HasValues {
			bag, ok := store[ctx]
			if !ok {
				return nil
			}
			for _, k := range op.DeleteKeys {
				delete(bag, k)
			}
			return nil
		}
		deleteContextAndDescendants(store, ctx)
		return nil

	default:
		return nil
	}
}

func deleteContextAndDescendants(store Store, ctx string) {
	delete(store, ctx)
	if ctx == "" {
		for k := range store {
			delete(store, k)
		}
		return
	}
	prefix := ctx + "."
	for k := range store {
		if strings.HasPrefix(k, prefix) {
			delete(store, k)
		}
	}
}

// Get returns the value of key in context ctx, and whether it exists.
func (s Store) Get(ctx ContextPath, key string) (Value, bool) {
	bag, ok := s[ctx.DottedKey()]
	if !ok {
		return Value{}, false
	}
	v, ok := bag[key]
	return v, ok
}

// Keys returns the keys present directly in context ctx.
func (s Store) Keys(ctx ContextPath) []string {
	bag, ok := s[ctx.DottedKey()]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(bag))
	for k := range bag {
		out = append(out, k)
	}
	return out
}

// Values returns a shallow copy of the key->value bag at context ctx.
func (s Store) Values(ctx ContextPath) map[string]Value {
	bag, ok := s[ctx.DottedKey()]
	if !ok {
		return nil
	}
	out := make(map[string]Value, len(bag))
	for k, v := range bag {
		out[k] = v
	}
	return out
}

// Contexts returns the set of immediate children of ctx, by scanning
// for keys that start with ctx's dotted prefix (spec §4.4).
func (s Store) Contexts(ctx ContextPath) []string {
	prefix := ctx.DottedKey()
	if prefix != "" {
		prefix += "."
	}
	seen := make(map[string]struct{})
	for k := range s {
		if prefix == "" {
			if k == "" {
				continue
			}
		} else if !strings.HasPrefix(k, prefix) {
			continue
		}
		rest := strings.TrimPrefix(k, prefix)
		if rest == "" {
			continue
		}
		child, _, _ := strings.Cut(rest, ".")
		seen[child] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	return out
}
