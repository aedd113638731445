package migrate

import (
	"bytes"
	"fmt"
	"io/fs"
	"path"
	"regexp"
)

var migrationName = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

var requiredAnnotations = [][]byte{[]byte("-- +goose Up"), []byte("-- +goose Down")}

// ValidateDir checks every .sql file under dir: names follow
// YYYYMMDDHHMMSS_name.sql, versions are unique and both goose
// annotations are present. An empty dir checks the embedded set.
func ValidateDir(dir string) error {
	fsys, err := Source(dir)
	if err != nil {
		return err
	}
	return validate(fsys)
}

func validate(fsys fs.FS) error {
	files, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}

	versions := make(map[string]string, len(files))
	for _, name := range files {
		match := migrationName.FindStringSubmatch(path.Base(name))
		if match == nil {
			return fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name)
		}
		if other, dup := versions[match[1]]; dup {
			return fmt.Errorf("migrations %q and %q share version %s", other, name, match[1])
		}
		versions[match[1]] = name

		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("read %q: %w", name, err)
		}
		for _, want := range requiredAnnotations {
			if !bytes.Contains(body, want) {
				return fmt.Errorf("migration %q missing %q", name, want)
			}
		}
	}
	return nil
}
