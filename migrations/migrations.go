// Package migrations embeds the SQL schema files applied by cmd/migrate.
package migrations

import (
	"embed"
	"io/fs"
	"sort"
	"strings"
)

//go:embed *.sql
var files embed.FS

// Up returns the forward migration file names in apply order.
func Up() []string { return list(".up.sql", false) }

// Down returns the rollback migration file names in apply order.
func Down() []string { return list(".down.sql", true) }

// Read returns the contents of a migration file.
func Read(name string) (string, error) {
	data, err := files.ReadFile(name)
	return string(data), err
}

func list(suffix string, reverse bool) []string {
	entries, _ := fs.ReadDir(files, ".")
	var names []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), suffix) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	if reverse {
		sort.Sort(sort.Reverse(sort.StringSlice(names)))
	}
	return names
}
