package storage_test

import (
	"testing"

	storage "github.com/hausbus/walstore"
)

func TestDriverSingleCommitReopen(t *testing.T) {
	dir := t.TempDir()

	d := openDriverAt(t, dir, storage.Options{})
	if err := d.Set(ctxPath("ctx"), map[string]storage.Value{"a": storage.Number(1)}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	d2 := openDriverAt(t, dir, storage.Options{})
	v, ok := d2.Get(ctxPath("ctx"), "a")
	if !ok || !v.Equal(storage.Number(1)) {
		t.Fatalf("after reopen: get(ctx,a) = %v, %v", v, ok)
	}
}

func TestDriverSubtreeDelete(t *testing.T) {
	d := openDriver(t, storage.Options{})

	for _, name := range [][]string{{"a"}, {"a", "b"}, {"a", "b", "c"}, {"d"}} {
		if err := d.Set(storage.ContextPath(name), map[string]storage.Value{"k": storage.Number(1)}); err != nil {
			t.Fatalf("seed %v: %v", name, err)
		}
	}

	if err := d.ClearAll(ctxPath("a")); err != nil {
		t.Fatalf("clearAll: %v", err)
	}

	for _, name := range [][]string{{"a"}, {"a", "b"}, {"a", "b", "c"}} {
		if _, ok := d.Get(storage.ContextPath(name), "k"); ok {
			t.Fatalf("expected %v to be gone after subtree delete", name)
		}
	}
	if _, ok := d.Get(ctxPath("d"), "k"); !ok {
		t.Fatalf("expected d to survive subtree delete of a")
	}

	children := d.Contexts(storage.ContextPath(nil))
	if len(children) != 1 || children[0] != "d" {
		t.Fatalf("contexts(root) = %v, want [d]", children)
	}
}

func TestDriverReplayAfterSnapshot(t *testing.T) {
	dir := t.TempDir()
	// No snapshot on close, so reopening must replay the last commit.
	d := openDriverAt(t, dir, storage.Options{DisableSnapshotOnClose: true})

	for i := 0; i < 5; i++ {
		if err := d.SetOne(ctxPath("ctx"), "n", storage.Number(float64(i))); err != nil {
			t.Fatalf("commit %d: %v", i, err)
		}
	}
	if err := d.Snapshot(); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if err := d.SetOne(ctxPath("ctx"), "n", storage.Number(6)); err != nil {
		t.Fatalf("commit 6: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	d2 := openDriverAt(t, dir, storage.Options{})
	v, ok := d2.Get(ctxPath("ctx"), "n")
	if !ok || !v.Equal(storage.Number(6)) {
		t.Fatalf("after reopen: n = %v, %v, want 6", v, ok)
	}
}

func TestDriverKeysValuesContexts(t *testing.T) {
	d := openDriver(t, storage.Options{})
	if err := d.Set(ctxPath("room"), map[string]storage.Value{"temp": storage.Number(20), "humidity": storage.Number(40)}); err != nil {
		t.Fatalf("set: %v", err)
	}

	keys := d.Keys(ctxPath("room"))
	if len(keys) != 2 {
		t.Fatalf("keys = %v, want 2 entries", keys)
	}
	values := d.Values(ctxPath("room"))
	if len(values) != 2 || !values["temp"].Equal(storage.Number(20)) {
		t.Fatalf("values = %v", values)
	}
	children := d.Contexts(storage.ContextPath(nil))
	if len(children) != 1 || children[0] != "room" {
		t.Fatalf("contexts(root) = %v, want [room]", children)
	}
}

func TestDriverBlobRoundTrip(t *testing.T) {
	d := openDriver(t, storage.Options{})

	if _, err := d.GetBlob("missing"); err != storage.ErrNotFound {
		t.Fatalf("GetBlob(missing) err = %v, want ErrNotFound", err)
	}

	if err := d.PutBlob("photo", []byte("binary data")); err != nil {
		t.Fatalf("put blob: %v", err)
	}
	got, err := d.GetBlob("photo")
	if err != nil {
		t.Fatalf("get blob: %v", err)
	}
	if string(got) != "binary data" {
		t.Fatalf("got blob %q", got)
	}

	if err := d.DeleteBlob("photo"); err != nil {
		t.Fatalf("delete blob: %v", err)
	}
	if _, err := d.GetBlob("photo"); err != storage.ErrNotFound {
		t.Fatalf("after delete, err = %v, want ErrNotFound", err)
	}
}
