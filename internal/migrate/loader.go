package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/leapstack-labs/strata/pkg/core"
)

// LoadDir builds migration descriptors from a directory of SQL file pairs:
// <name>.up.sql and <name>.down.sql. Units come back sorted by name, so
// timestamp-prefixed names run chronologically. A unit may omit its down
// file; running it down then fails, which beats silently doing nothing.
//
// This is the filesystem collaborator: the runner itself never reads disk.
func LoadDir(dir string) ([]core.Migration, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory: %w", err)
	}

	ups := make(map[string]string)
	downs := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch {
		case strings.HasSuffix(entry.Name(), ".up.sql"):
			name := strings.TrimSuffix(entry.Name(), ".up.sql")
			ups[name] = filepath.Join(dir, entry.Name())
		case strings.HasSuffix(entry.Name(), ".down.sql"):
			name := strings.TrimSuffix(entry.Name(), ".down.sql")
			downs[name] = filepath.Join(dir, entry.Name())
		}
	}

	for name := range downs {
		if _, ok := ups[name]; !ok {
			return nil, fmt.Errorf("migration %q has a down file but no up file", name)
		}
	}

	names := make([]string, 0, len(ups))
	for name := range ups {
		names = append(names, name)
	}
	sort.Strings(names)

	migrations := make([]core.Migration, 0, len(names))
	for _, name := range names {
		m := core.Migration{Name: name, Up: sqlFileProc(ups[name])}
		if path, ok := downs[name]; ok {
			m.Down = sqlFileProc(path)
		}
		migrations = append(migrations, m)
	}
	return migrations, nil
}

// sqlFileProc defers reading the file until the unit actually runs, so
// loading a directory never fails on an unreadable file that is already
// applied and will be skipped.
func sqlFileProc(path string) core.MigrationFunc {
	return func(db core.Executor) error {
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", filepath.Base(path), err)
		}
		sqlText := strings.TrimSpace(string(content))
		if sqlText == "" {
			return nil
		}
		return db.Exec(sqlText)
	}
}
