package database

import (
	"cmp"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"slices"
	"strconv"
	"strings"

	"warbler/internal/middleware"
)

const (
	upSuffix   = ".up.sql"
	downSuffix = ".down.sql"
)

// Migration is a numbered schema change with its revert script.
type Migration struct {
	Version    int
	Name       string
	UpScript   string
	DownScript string
}

// ID is the zero-padded file stem, e.g. 000002_create_messages.
func (m Migration) ID() string {
	return fmt.Sprintf("%06d_%s", m.Version, m.Name)
}

// Catalog is an ordered list of migrations.
type Catalog []Migration

// Find returns the migration with the given version.
func (c Catalog) Find(version int) (Migration, bool) {
	i, ok := slices.BinarySearchFunc(c, version, func(m Migration, v int) int {
		return cmp.Compare(m.Version, v)
	})
	if !ok {
		return Migration{}, false
	}
	return c[i], true
}

// Pending lists the migrations whose version is not in applied, oldest first.
func (c Catalog) Pending(applied []int) Catalog {
	var out Catalog
	for _, m := range c {
		if !slices.Contains(applied, m.Version) {
			out = append(out, m)
		}
	}
	return out
}

// unknown returns applied versions that have no file in the catalog.
func (c Catalog) unknown(applied []int) []int {
	var out []int
	for _, v := range applied {
		if _, ok := c.Find(v); !ok {
			out = append(out, v)
		}
	}
	return out
}

//go:embed migrations/*.sql
var embeddedSQL embed.FS

var builtin = mustLoadBuiltin()

func mustLoadBuiltin() Catalog {
	catalog, err := LoadMigrations(embeddedSQL, "migrations")
	if err != nil {
		panic(fmt.Sprintf("embedded migrations: %v", err))
	}
	return catalog
}

// Migrations returns the SQL migrations compiled into the binary.
func Migrations() Catalog {
	return builtin
}

// LoadMigrations collects every NNNNNN_name.up.sql in dir together with its
// matching .down.sql. Files that do not follow the naming scheme are skipped.
func LoadMigrations(fsys fs.FS, dir string) (Catalog, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir %s: %w", dir, err)
	}

	var catalog Catalog
	for _, entry := range entries {
		stem, isUp := strings.CutSuffix(entry.Name(), upSuffix)
		if entry.IsDir() || !isUp {
			continue
		}

		num, name, found := strings.Cut(stem, "_")
		version, convErr := strconv.Atoi(num)
		if !found || convErr != nil || version <= 0 {
			middleware.Logger.Warn("ignoring migration file", slog.String("file", entry.Name()))
			continue
		}

		up, err := fs.ReadFile(fsys, path.Join(dir, stem+upSuffix))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", stem+upSuffix, err)
		}
		down, err := fs.ReadFile(fsys, path.Join(dir, stem+downSuffix))
		if err != nil {
			return nil, fmt.Errorf("migration %s has no down script: %w", stem, err)
		}

		catalog = append(catalog, Migration{
			Version:    version,
			Name:       name,
			UpScript:   string(up),
			DownScript: string(down),
		})
	}

	slices.SortFunc(catalog, func(a, b Migration) int {
		return cmp.Compare(a.Version, b.Version)
	})
	return catalog, nil
}
