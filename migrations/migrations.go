// Package migrations embeds the schema for both stores. Files are applied in
// name order; only *.up.sql files are run forward.
package migrations

import (
	"embed"
	"io/fs"
	"sort"
	"strings"
)

//go:embed postgres/*.sql clickhouse/*.sql
var files embed.FS

// Postgres returns the forward Postgres migrations in order
func Postgres() ([]string, error) {
	return up("postgres")
}

// ClickHouse returns the forward ClickHouse migrations in order
func ClickHouse() ([]string, error) {
	return up("clickhouse")
}

func up(dir string) ([]string, error) {
	entries, err := fs.ReadDir(files, dir)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".up.sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	stmts := make([]string, 0, len(names))
	for _, name := range names {
		data, err := fs.ReadFile(files, dir+"/"+name)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, string(data))
	}
	return stmts, nil
}
