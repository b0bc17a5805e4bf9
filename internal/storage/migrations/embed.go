// Package migrations applies the embedded schema for the snapshot store
// (PostgreSQL) and the score history (ClickHouse).
package migrations

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

//go:embed postgres/*.sql clickhouse/*.sql
var scripts embed.FS

// script is one migration file.
type script struct {
	name string
	sql  string
}

// loadScripts returns the non-empty .sql files in dir, ordered by name.
func loadScripts(fsys fs.FS, dir string) ([]script, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read %s migrations: %w", dir, err)
	}

	var out []script
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".sql" {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		if strings.TrimSpace(string(data)) == "" {
			continue
		}
		out = append(out, script{name: entry.Name(), sql: string(data)})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out, nil
}
