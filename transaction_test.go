package storage_test

import (
	"testing"

	storage "github.com/hausbus/walstore"
)

func TestTransactionReadYourWrites(t *testing.T) {
	d := openDriver(t, storage.Options{})
	ctx := ctxPath("room")

	tx := d.Begin()
	defer tx.Dispose()

	if err := tx.SetOne(ctx, "temp", storage.Number(21)); err != nil {
		t.Fatalf("set: %v", err)
	}
	v, ok := tx.Get(ctx, "temp")
	if !ok || !v.Equal(storage.Number(21)) {
		t.Fatalf("get after set: %v, %v", v, ok)
	}

	if err := tx.Delete(ctx, "temp"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := tx.Get(ctx, "temp"); ok {
		t.Fatalf("expected absent after delete")
	}

	if err := tx.SetOne(ctx, "other", storage.String("x")); err != nil {
		t.Fatalf("set other: %v", err)
	}
	if err := tx.ClearAll(ctx); err != nil {
		t.Fatalf("clearAll: %v", err)
	}
	if _, ok := tx.Get(ctx, "other"); ok {
		t.Fatalf("expected absent after clearAll")
	}
}

func TestTransactionRollbackIsolation(t *testing.T) {
	d := openDriver(t, storage.Options{})
	ctx := ctxPath("room")

	tx := d.Begin()
	if err := tx.SetOne(ctx, "temp", storage.Number(1)); err != nil {
		t.Fatalf("set: %v", err)
	}
	tx.Dispose()

	if _, ok := d.Get(ctx, "temp"); ok {
		t.Fatalf("expected no cache change after rollback")
	}

	sum, err := d.Summary()
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	var zero storage.CommitID
	if sum.LastApplied != zero {
		t.Fatalf("expected no on-disk change after rollback, lastApplied = %+v", sum.LastApplied)
	}
}

func TestTransactionCommitTwiceFails(t *testing.T) {
	d := openDriver(t, storage.Options{})
	tx := d.Begin()
	defer tx.Dispose()

	if err := tx.SetOne(ctxPath("a"), "k", storage.Number(1)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if _, err := tx.Commit(); err != storage.ErrTransactionCommitted {
		t.Fatalf("second commit err = %v, want ErrTransactionCommitted", err)
	}
}

func TestTransactionMutateAfterDisposeFails(t *testing.T) {
	d := openDriver(t, storage.Options{})
	tx := d.Begin()
	tx.Dispose()

	if err := tx.SetOne(ctxPath("a"), "k", storage.Number(1)); err != storage.ErrTransactionDisposed {
		t.Fatalf("set after dispose err = %v, want ErrTransactionDisposed", err)
	}
}
