package storage

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestDiskUsageBytes(t *testing.T) {
	dir := t.TempDir()

	f1 := filepath.Join(dir, "f1.db")
	if err := os.WriteFile(f1, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "a"), []byte("ab"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "b"), []byte("c"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		paths []string
		want  int64
	}{
		{"single file", []string{f1}, 5},
		{"directory", []string{sub}, 3},
		{"file and directory", []string{f1, sub}, 8},
		{"missing path skipped", []string{f1, filepath.Join(dir, "nope"), sub}, 8},
		{"empty path skipped", []string{"", f1}, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DiskUsageBytes(tt.paths...)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %d bytes, want %d", got, tt.want)
			}
		})
	}
}

func TestDatabaseFiles(t *testing.T) {
	if got := DatabaseFiles(BackendSQLite, "/d/v.db"); !reflect.DeepEqual(got, []string{"/d/v.db", "/d/v.db-wal", "/d/v.db-shm"}) {
		t.Errorf("sqlite files = %v", got)
	}
	if got := DatabaseFiles(BackendBolt, "/d/v.bolt"); !reflect.DeepEqual(got, []string{"/d/v.bolt"}) {
		t.Errorf("bolt files = %v", got)
	}
	if got := DatabaseFiles(BackendSQLite, ":memory:"); got != nil {
		t.Errorf("memory files = %v", got)
	}
}

func TestDiskUsage_SQLiteSidecars(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "v.db")
	if err := os.WriteFile(path, []byte("1234"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path+"-wal", []byte("56"), 0644); err != nil {
		t.Fatal(err)
	}
	got, err := DiskUsage(BackendSQLite, path)
	if err != nil {
		t.Fatal(err)
	}
	if got != 6 {
		t.Errorf("got %d bytes, want 6", got)
	}
}
