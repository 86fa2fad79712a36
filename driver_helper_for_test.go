package storage_test

import (
	"testing"

	storage "github.com/hausbus/walstore"
)

type testDriver struct {
	*storage.Driver

	T     testing.TB
	Dir   string
	Clock *fakeClock
}

// openDriver opens a driver over a fresh temp directory with a fake
// clock and a test-routed logger, closing it automatically at test
// cleanup, the same shape as andreyvit-journal's setupWritable/open.
func openDriver(t testing.TB, opt storage.Options) *testDriver {
	return openDriverAt(t, t.TempDir(), opt)
}

func openDriverAt(t testing.TB, dir string, opt storage.Options) *testDriver {
	clock := newClock()
	opt.Now = clock.Now
	opt.Logger = testLogger(t)
	opt.DisableSnapshotSchedule = true

	d, err := storage.Open(storage.NewOSDir(dir), opt)
	success(t, err)

	td := &testDriver{Driver: d, T: t, Dir: dir, Clock: clock}
	t.Cleanup(func() {
		if err := td.Driver.Close(); err != nil {
			t.Errorf("closing driver: %v", err)
		}
	})
	return td
}

func ctxPath(segs ...string) storage.ContextPath {
	return storage.ContextPath(segs)
}
