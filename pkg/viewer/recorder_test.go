package viewer

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/depthkit/go-depthview/pkg/pointcloud"
)

func testCloud() *pointcloud.Cloud {
	c := pointcloud.New(2, 2)
	c.Device = "TEST"
	c.Stamp = 42
	return c
}

func TestRecorder_SessionDirectoriesIncrease(t *testing.T) {
	root := t.TempDir()
	r := NewRecorder(root, nil)

	for i := 0; i < 3; i++ {
		if err := r.BeginSession(); err != nil {
			t.Fatalf("BeginSession: %v", err)
		}
		r.EndSession()
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	want := []string{"0001", "0002", "0003"}
	if len(names) != len(want) {
		t.Fatalf("directories = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("directory %d = %q, want %q (lexical order must match session order)", i, names[i], want[i])
		}
	}
}

func TestRecorder_FrameNumbering(t *testing.T) {
	root := t.TempDir()
	r := NewRecorder(root, nil)

	if err := r.BeginSession(); err != nil {
		t.Fatalf("BeginSession: %v", err)
	}
	if got := r.FrameIndex(); got != 1 {
		t.Errorf("frame index at session start = %d, want 1", got)
	}

	for i := 0; i < 3; i++ {
		r.WriteCloud(testCloud())
	}

	for _, name := range []string{"0001.pcz", "0002.pcz", "0003.pcz"} {
		if _, err := os.Stat(filepath.Join(root, "0001", name)); err != nil {
			t.Errorf("frame file %s missing: %v", name, err)
		}
	}
	if got := r.FrameIndex(); got != 4 {
		t.Errorf("frame index after 3 writes = %d, want 4", got)
	}
}

func TestRecorder_FailedWriteLeavesNoGap(t *testing.T) {
	root := t.TempDir()

	calls := 0
	failSecond := func(path string, c *pointcloud.Cloud) error {
		calls++
		if calls == 2 {
			return errors.New("codec failure")
		}
		return pointcloud.WriteCompressedFile(path, c)
	}

	r := NewRecorder(root, nil, WithWriter(failSecond))
	if err := r.BeginSession(); err != nil {
		t.Fatalf("BeginSession: %v", err)
	}

	r.WriteCloud(testCloud()) // 0001 ok
	r.WriteCloud(testCloud()) // fails, index not consumed
	r.WriteCloud(testCloud()) // 0002 ok

	entries, err := os.ReadDir(filepath.Join(root, "0001"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d frame files, want 2", len(entries))
	}
	if entries[0].Name() != "0001.pcz" || entries[1].Name() != "0002.pcz" {
		t.Errorf("frame files = %s, %s; want consecutive 0001.pcz, 0002.pcz",
			entries[0].Name(), entries[1].Name())
	}
}

func TestRecorder_EmptySessionIsValid(t *testing.T) {
	root := t.TempDir()
	r := NewRecorder(root, nil)

	if err := r.BeginSession(); err != nil {
		t.Fatalf("BeginSession: %v", err)
	}
	r.EndSession()

	entries, err := os.ReadDir(filepath.Join(root, "0001"))
	if err != nil {
		t.Fatalf("empty session directory should exist: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("empty session has %d files, want 0", len(entries))
	}
}

func TestRecorder_WriteIgnoredWhenInactive(t *testing.T) {
	root := t.TempDir()
	r := NewRecorder(root, nil)

	r.WriteCloud(testCloud())

	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("inactive recorder wrote %d entries, want 0", len(entries))
	}
}

func TestRecorder_SessionDirFailureIsFatalError(t *testing.T) {
	// Use a file as the root so Mkdir must fail.
	root := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(root, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := NewRecorder(root, nil)
	err := r.BeginSession()
	if err == nil {
		t.Fatal("expected an error when the session directory cannot be created")
	}
	if !errors.Is(err, ErrSessionDir) {
		t.Errorf("error = %v, want ErrSessionDir", err)
	}
}
