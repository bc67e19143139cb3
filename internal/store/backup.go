package store

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"dailyCheckAPI/internal/metrics"
)

const backupPrefix = "backup_"

// BackupManager writes timestamped snapshot copies into its directory
// and prunes the oldest ones past the retention limit. File names sort
// lexicographically by creation time, which keeps listing cheap.
type BackupManager struct {
	dir      string
	max      int
	compress bool
}

func NewBackupManager(dir string, max int, compress bool) (*BackupManager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating backup dir: %w", err)
	}
	if max < 1 {
		max = 1
	}
	return &BackupManager{dir: dir, max: max, compress: compress}, nil
}

// Create writes data as a new backup and prunes old ones. The backup
// file name embeds the creation time, e.g. backup_20260831_140500.json.
func (b *BackupManager) Create(data []byte, now time.Time) (string, error) {
	name := backupPrefix + now.Format("20060102_150405") + ".json"
	if b.compress {
		name += ".gz"
	}
	path := filepath.Join(b.dir, name)

	if b.compress {
		f, err := os.Create(path)
		if err != nil {
			return "", fmt.Errorf("creating backup: %w", err)
		}
		zw := gzip.NewWriter(f)
		if _, err := zw.Write(data); err != nil {
			f.Close()
			return "", fmt.Errorf("writing backup: %w", err)
		}
		if err := zw.Close(); err != nil {
			f.Close()
			return "", fmt.Errorf("closing backup: %w", err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("closing backup: %w", err)
		}
	} else {
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return "", fmt.Errorf("writing backup: %w", err)
		}
	}

	metrics.BackupsCreated.Inc()
	if err := b.prune(); err != nil {
		return name, err
	}
	return name, nil
}

// List returns backup file names newest first.
func (b *BackupManager) List() ([]string, error) {
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return nil, fmt.Errorf("listing backups: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), backupPrefix) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

// Read returns the decompressed contents of a backup.
func (b *BackupManager) Read(name string) ([]byte, error) {
	path := filepath.Join(b.dir, filepath.Base(name))
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening backup: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(name, ".gz") {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("opening backup %s: %w", name, err)
		}
		defer zr.Close()
		r = zr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading backup %s: %w", name, err)
	}
	return data, nil
}

func (b *BackupManager) prune() error {
	names, err := b.List()
	if err != nil {
		return err
	}
	for _, name := range names[minInt(b.max, len(names)):] {
		if err := os.Remove(filepath.Join(b.dir, name)); err != nil {
			return fmt.Errorf("pruning backup %s: %w", name, err)
		}
	}
	return nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
