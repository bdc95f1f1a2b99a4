package migrate

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/multierr"
)

var sqlFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

const (
	annotationUp    = "-- +goose Up"
	annotationDown  = "-- +goose Down"
	annotationBegin = "-- +goose StatementBegin"
	annotationEnd   = "-- +goose StatementEnd"
)

// ValidateDir checks every .sql file in dir for a well formed name, a unique
// version and balanced goose annotations. All problems are reported together.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read dir %q: %w", dir, err)
	}

	var (
		errs  error
		found int
		seen  = map[string]string{}
	)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		found++

		m := sqlFileRe.FindStringSubmatch(name)
		if m == nil {
			errs = multierr.Append(errs, fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name))
			continue
		}
		if prev, ok := seen[m[1]]; ok {
			errs = multierr.Append(errs, fmt.Errorf("duplicate migration version %s in %q and %q", m[1], prev, name))
		}
		seen[m[1]] = name

		errs = multierr.Append(errs, validateFile(filepath.Join(dir, name)))
	}

	if found == 0 {
		return fmt.Errorf("no migrations found in %q", dir)
	}
	return errs
}

func validateFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %q: %w", path, err)
	}
	defer f.Close()

	name := filepath.Base(path)
	var (
		errs           error
		section        string
		sawUp, sawDown bool
		open           bool
		lineNo         int
	)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, annotationUp):
			if sawDown {
				errs = multierr.Append(errs, fmt.Errorf("%s:%d: Up section after Down", name, lineNo))
			}
			sawUp, section = true, "up"
		case strings.HasPrefix(line, annotationDown):
			if open {
				errs = multierr.Append(errs, fmt.Errorf("%s:%d: Down section inside an open statement block", name, lineNo))
			}
			sawDown, section = true, "down"
		case strings.HasPrefix(line, annotationBegin):
			if section == "" {
				errs = multierr.Append(errs, fmt.Errorf("%s:%d: StatementBegin outside Up/Down", name, lineNo))
			}
			if open {
				errs = multierr.Append(errs, fmt.Errorf("%s:%d: nested StatementBegin", name, lineNo))
			}
			open = true
		case strings.HasPrefix(line, annotationEnd):
			if !open {
				errs = multierr.Append(errs, fmt.Errorf("%s:%d: StatementEnd without StatementBegin", name, lineNo))
			}
			open = false
		}
	}
	if err := scanner.Err(); err != nil {
		return multierr.Append(errs, fmt.Errorf("read %q: %w", path, err))
	}

	if !sawUp {
		errs = multierr.Append(errs, fmt.Errorf("migration %q missing %q", name, annotationUp))
	}
	if !sawDown {
		errs = multierr.Append(errs, fmt.Errorf("migration %q missing %q", name, annotationDown))
	}
	if open {
		errs = multierr.Append(errs, fmt.Errorf("migration %q has an unterminated StatementBegin", name))
	}
	return errs
}
