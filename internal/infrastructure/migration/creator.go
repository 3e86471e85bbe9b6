package migration

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"text/template"
	"time"

	"github.com/spf13/afero"
)

const migrationUpTemplate = `-- Migration: {{.Name}}
-- Created: {{.Timestamp}}
-- Description: {{.Description}}
-- Driver: {{.Driver}}

`

const migrationDownTemplate = `-- Migration: {{.Name}} (Rollback)
-- Created: {{.Timestamp}}
-- Driver: {{.Driver}}

`

// MigrationFile is one generated up/down pair
type MigrationFile struct {
	Driver   string
	UpPath   string
	DownPath string
}

// MigrationSet is a new migration version, one pair per driver
type MigrationSet struct {
	Version     string
	Name        string
	Description string
	Timestamp   string
	Files       []MigrationFile
}

// Creator writes new migration files
type Creator struct {
	fs  afero.Fs
	now func() time.Time
}

// NewCreator creates a Creator on the given filesystem
func NewCreator(fs afero.Fs) *Creator {
	return &Creator{fs: fs, now: time.Now}
}

// CreateMigration creates an empty up/down pair for every driver so that the
// dialects stay on the same version numbers.
func (c *Creator) CreateMigration(migrationsRoot, name, description string) (*MigrationSet, error) {
	safeName := sanitizeName(name)
	if safeName == "" {
		return nil, fmt.Errorf("invalid migration name %q", name)
	}

	now := c.now()
	set := &MigrationSet{
		Version:     now.Format("20060102150405"),
		Name:        name,
		Description: description,
		Timestamp:   now.Format(time.RFC3339),
	}
	baseName := set.Version + "_" + safeName

	for _, driver := range Drivers {
		dir := SourceDir(migrationsRoot, driver)
		if err := c.fs.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create migrations directory: %w", err)
		}
		file := MigrationFile{
			Driver:   driver,
			UpPath:   filepath.Join(dir, baseName+".up.sql"),
			DownPath: filepath.Join(dir, baseName+".down.sql"),
		}
		data := map[string]string{
			"Name":        set.Name,
			"Description": set.Description,
			"Timestamp":   set.Timestamp,
			"Driver":      driver,
		}

		if err := c.writeTemplate(file.UpPath, migrationUpTemplate, data); err != nil {
			return nil, fmt.Errorf("failed to create up migration: %w", err)
		}
		if err := c.writeTemplate(file.DownPath, migrationDownTemplate, data); err != nil {
			_ = c.fs.Remove(file.UpPath)
			return nil, fmt.Errorf("failed to create down migration: %w", err)
		}
		set.Files = append(set.Files, file)
	}
	return set, nil
}

func (c *Creator) writeTemplate(path, tmplContent string, data any) error {
	tmpl, err := template.New("migration").Parse(tmplContent)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	f, err := c.fs.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", path, err)
	}
	defer f.Close()

	return tmpl.Execute(f, data)
}

// ListMigrations returns the migration base names available for driver, in order
func (c *Creator) ListMigrations(migrationsRoot, driver string) ([]string, error) {
	dir := SourceDir(migrationsRoot, driver)
	exists, err := afero.DirExists(c.fs, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}
	if !exists {
		return []string{}, nil
	}

	entries, err := afero.ReadDir(c.fs, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	migrations := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if base, ok := strings.CutSuffix(entry.Name(), ".up.sql"); ok {
			migrations = append(migrations, base)
		}
	}
	slices.Sort(migrations)
	return migrations, nil
}

// sanitizeName converts a migration name to a safe file name
func sanitizeName(name string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			pendingSep = true
		}
	}
	return b.String()
}
