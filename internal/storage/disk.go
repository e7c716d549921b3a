package storage

import (
	"os"
	"path/filepath"
	"strings"
)

// DatabaseFiles returns the files a backend keeps on disk for path. SQLite in
// WAL mode writes -wal and -shm sidecars next to the main file.
func DatabaseFiles(backend, path string) []string {
	if path == "" || path == ":memory:" {
		return nil
	}
	if strings.EqualFold(backend, BackendBolt) {
		return []string{path}
	}
	return []string{path, path + "-wal", path + "-shm"}
}

// DiskUsage returns the bytes used by the backend's files for path.
func DiskUsage(backend, path string) (int64, error) {
	return DiskUsageBytes(DatabaseFiles(backend, path)...)
}

// DiskUsageBytes returns the total size in bytes of the given paths.
// Each path may be a file or a directory (recursively summed).
// Missing paths are skipped; other stat or walk errors are returned.
func DiskUsageBytes(paths ...string) (int64, error) {
	var total int64
	for _, p := range paths {
		if p == "" {
			continue
		}
		info, err := os.Stat(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return 0, err
		}
		if !info.IsDir() {
			total += info.Size()
			continue
		}
		err = filepath.WalkDir(p, func(_ string, d os.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return err
			}
			fi, err := d.Info()
			if err != nil {
				return err
			}
			total += fi.Size()
			return nil
		})
		if err != nil {
			return 0, err
		}
	}
	return total, nil
}
