package catalog

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestCacheWriteLoadLatest(t *testing.T) {
	dir := t.TempDir()
	c := NewCache(dir, 3)

	old := []byte("old-load,G1,0.3,2700,1.5,100\n")
	latest := bytes.Repeat([]byte("308-win-168-match,G1,0.465,2650,1.6,200,0,168\n"), 100)

	t0 := time.Unix(1700000000, 0)
	if err := c.Write(old, t0); err != nil {
		t.Fatal(err)
	}
	if err := c.Write(latest, t0.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}

	data, ts, err := c.LoadLatest()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, latest) {
		t.Errorf("LoadLatest returned %d bytes, want %d", len(data), len(latest))
	}
	if !ts.Equal(t0.Add(time.Hour)) {
		t.Errorf("timestamp = %v, want %v", ts, t0.Add(time.Hour))
	}

	// Stored compressed.
	info, err := os.Stat(filepath.Join(dir, "catalog_1700003600.csv.zst"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() >= int64(len(latest)) {
		t.Errorf("cache file is %d bytes, want smaller than %d", info.Size(), len(latest))
	}
}

func TestCachePrune(t *testing.T) {
	dir := t.TempDir()
	c := NewCache(dir, 2)

	t0 := time.Unix(1700000000, 0)
	for i := 0; i < 5; i++ {
		if err := c.Write([]byte("x"), t0.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatal(err)
		}
	}

	files, err := c.listFiles()
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 {
		t.Fatalf("files after prune = %d, want 2", len(files))
	}
	if !files[1].ts.Equal(t0.Add(4 * time.Minute)) {
		t.Errorf("newest file ts = %v, want %v", files[1].ts, t0.Add(4*time.Minute))
	}
}

func TestCacheIgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"notes.txt", "catalog_abc.csv.zst", "catalog_123.csv"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	c := NewCache(dir, 5)
	_, _, err := c.LoadLatest()
	if err == nil || !strings.Contains(err.Error(), "no cache files") {
		t.Errorf("LoadLatest error = %v, want no cache files", err)
	}
}

func TestCacheMissingDir(t *testing.T) {
	c := NewCache(filepath.Join(t.TempDir(), "does-not-exist"), 5)
	if _, _, err := c.LoadLatest(); err == nil {
		t.Error("expected error for missing cache dir")
	}
}
