package migration

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"text/template"
	"time"
)

// versionWidth matches the zero padded prefix of the files under migrations/
const versionWidth = 6

var skeleton = template.Must(template.New("migration").Parse(`-- {{.File.Name}} ({{.Direction}})
{{- if .File.Description}}
-- {{.File.Description}}
{{- end}}
-- Created {{.File.Created.Format "2006-01-02 15:04:05 MST"}}

-- Write the {{.Direction}} statements here. Ledger tables key on uuid, keep
-- timestamps in TIMESTAMPTZ and quantities in NUMERIC(20,4).

`))

// MigrationFile is a freshly written up/down pair
type MigrationFile struct {
	Version     string
	Name        string
	Description string
	Created     time.Time
	UpPath      string
	DownPath    string
}

// CreateMigration writes the next numbered up/down pair into dir, creating dir if needed
func CreateMigration(dir, name, description string) (*MigrationFile, error) {
	slug := sanitizeName(name)
	if slug == "" {
		return nil, fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create migrations directory: %w", err)
	}

	existing, err := ListMigrations(dir)
	if err != nil {
		return nil, err
	}
	next, err := nextVersion(existing)
	if err != nil {
		return nil, err
	}

	version := fmt.Sprintf("%0*d", versionWidth, next)
	base := filepath.Join(dir, version+"_"+slug)
	mf := &MigrationFile{
		Version:     version,
		Name:        name,
		Description: description,
		Created:     time.Now(),
		UpPath:      base + ".up.sql",
		DownPath:    base + ".down.sql",
	}

	if err := writeSkeleton(mf.UpPath, mf, "up"); err != nil {
		return nil, err
	}
	if err := writeSkeleton(mf.DownPath, mf, "down"); err != nil {
		_ = os.Remove(mf.UpPath)
		return nil, err
	}
	return mf, nil
}

// nextVersion returns one past the highest numeric prefix among names
func nextVersion(names []string) (int, error) {
	highest := 0
	for _, name := range names {
		prefix, _, _ := strings.Cut(name, "_")
		n, err := strconv.Atoi(prefix)
		if err != nil {
			return 0, fmt.Errorf("migration %q has no numeric version", name)
		}
		highest = max(highest, n)
	}
	return highest + 1, nil
}

// writeSkeleton refuses to overwrite an existing file
func writeSkeleton(path string, mf *MigrationFile, direction string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	err = skeleton.Execute(f, struct {
		File      *MigrationFile
		Direction string
	}{mf, direction})
	return errors.Join(err, f.Close())
}

var (
	nameInvalid    = regexp.MustCompile(`[^a-z0-9\s_-]+`)
	nameSeparators = regexp.MustCompile(`[\s_-]+`)
)

// sanitizeName lowercases name into snake_case, dropping anything but letters and digits
func sanitizeName(name string) string {
	s := nameInvalid.ReplaceAllString(strings.ToLower(name), "")
	s = nameSeparators.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

// ListMigrations returns the sorted names of the up migrations in dir, without
// the .up.sql suffix. A missing directory has no migrations.
func ListMigrations(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read migrations directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if base, ok := strings.CutSuffix(entry.Name(), ".up.sql"); ok && entry.Type().IsRegular() {
			names = append(names, base)
		}
	}
	slices.Sort(names)
	return names, nil
}
