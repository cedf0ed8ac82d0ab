// This file implements the storage backend abstraction. A Database is
// addressed by a URL of the form scheme://path; each supported scheme maps
// onto a Dialect that knows the driver name and placeholder format. Only the
// embedded sqlite engine is supported today, but the seam is the place to
// add others.
package quill

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// Dialect abstracts the database-specific bits the engine needs: the
// database/sql driver to open and the placeholder format squirrel should
// emit.
type Dialect interface {
	// Name returns the driver name registered with database/sql.
	Name() string

	// PlaceholderFormat returns the parameter placeholder style.
	PlaceholderFormat() sq.PlaceholderFormat
}

// SQLiteDialect is the dialect for the embedded file-based engine.
type SQLiteDialect struct{}

// Name returns the sqlite driver name.
func (d SQLiteDialect) Name() string { return "sqlite3" }

// PlaceholderFormat returns sqlite's ? placeholder format.
func (d SQLiteDialect) PlaceholderFormat() sq.PlaceholderFormat {
	return sq.Question
}

// SQLite is the shared sqlite dialect value.
var SQLite = SQLiteDialect{}

// parseURL splits a backend address into its dialect and driver DSN.
// Supported schemes: sqlite://<path> (":memory:" is a valid path).
func parseURL(url string) (Dialect, string, error) {
	scheme, path, ok := strings.Cut(url, "://")
	if !ok {
		return nil, "", fmt.Errorf("%w: malformed database URL %q", ErrImproperlyConfigured, url)
	}

	switch scheme {
	case "sqlite", "sqlite3":
		if path == "" {
			return nil, "", fmt.Errorf("%w: sqlite URL has no path: %q", ErrImproperlyConfigured, url)
		}
		return SQLite, path, nil
	default:
		return nil, "", fmt.Errorf("%w: unsupported database scheme %q", ErrImproperlyConfigured, scheme)
	}
}
