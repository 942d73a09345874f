package fsutil

import (
	"errors"
	"io"
	"io/fs"
	"path/filepath"
	"testing"
)

func TestOSFileSystem_Exists(t *testing.T) {
	fs := OSFileSystem{}

	if !fs.Exists("filesystem.go") {
		t.Error("expected filesystem.go to exist")
	}

	if fs.Exists("nonexistent_file_xyz.go") {
		t.Error("expected nonexistent file to not exist")
	}
}

func TestOSFileSystem_RoundTrip(t *testing.T) {
	osfs := OSFileSystem{}
	dir := filepath.Join(t.TempDir(), "charts", "run")

	if err := osfs.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}

	path := filepath.Join(dir, "range.png")
	w, err := osfs.Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := w.Write([]byte("png")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	f, err := osfs.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil || string(data) != "png" {
		t.Errorf("read back %q, %v", data, err)
	}
}

func TestMemoryFileSystem_WriteAndRead(t *testing.T) {
	mfs := NewMemoryFileSystem()

	testData := []byte("hello, world")
	if err := mfs.WriteFile("/test.txt", testData, 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	// Mutating the caller's slice must not change the stored file.
	testData[0] = 'j'

	data, err := mfs.ReadFile("/test.txt")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "hello, world" {
		t.Errorf("expected %q, got %q", "hello, world", data)
	}
}

func TestMemoryFileSystem_CreateAndOpen(t *testing.T) {
	mfs := NewMemoryFileSystem()

	w, err := mfs.Create("/out/created.csv")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := w.Write([]byte("a,b\n")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if _, err := w.Write([]byte("1,2\n")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	f, err := mfs.Open("/out/created.csv")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	data, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if string(data) != "a,b\n1,2\n" {
		t.Errorf("got %q", data)
	}

	info, err := f.Stat()
	if err != nil || info.Name() != "created.csv" || info.Size() != 8 {
		t.Errorf("Stat = %+v, %v", info, err)
	}
}

func TestMemoryFileSystem_Missing(t *testing.T) {
	mfs := NewMemoryFileSystem()

	if _, err := mfs.Open("/nope"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Open err = %v, want ErrNotExist", err)
	}
	if _, err := mfs.ReadFile("/nope"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("ReadFile err = %v, want ErrNotExist", err)
	}
	if mfs.Exists("/nope") {
		t.Error("expected /nope to not exist")
	}
}

func TestMemoryFileSystem_MkdirAllAndFiles(t *testing.T) {
	mfs := NewMemoryFileSystem()

	if err := mfs.MkdirAll("/a/b/c", 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	for _, d := range []string{"/a", "/a/b", "/a/b/c"} {
		if !mfs.Exists(d) {
			t.Errorf("expected %s to exist", d)
		}
	}

	_ = mfs.WriteFile("/a/z.txt", nil, 0644)
	_ = mfs.WriteFile("/a/b/y.txt", nil, 0644)

	got := mfs.Files()
	want := []string{"/a/b/y.txt", "/a/z.txt"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Files() = %v, want %v", got, want)
	}
}
