// Package migrate tracks and applies schema migrations as ordered JSON
// files, recording each applied migration in a tracking table so a rerun
// is a no-op.
package migrate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Operation types understood by the runner.
const (
	OpSQL         = "sql"
	OpCreateTable = "create_table"
	OpAddColumn   = "add_column"
)

// ColumnDef describes one column in a create_table or add_column
// operation.
type ColumnDef struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	NotNull bool   `json:"not_null,omitempty"`
	Unique  bool   `json:"unique,omitempty"`
	Default any    `json:"default,omitempty"`
}

func (c ColumnDef) render() string {
	parts := []string{c.Name, c.Type}
	if c.NotNull {
		parts = append(parts, "NOT NULL")
	}
	if c.Unique {
		parts = append(parts, "UNIQUE")
	}
	if c.Default != nil {
		parts = append(parts, "DEFAULT", renderLiteral(c.Default))
	}
	return strings.Join(parts, " ")
}

func renderLiteral(v any) string {
	switch x := v.(type) {
	case string:
		return "'" + strings.ReplaceAll(x, "'", "''") + "'"
	case bool:
		if x {
			return "1"
		}
		return "0"
	default:
		return fmt.Sprintf("%v", x)
	}
}

// Operation is one schema change inside a migration. Type selects which of
// the remaining fields apply.
type Operation struct {
	Type    string      `json:"type"`
	SQL     string      `json:"sql,omitempty"`
	Table   string      `json:"table,omitempty"`
	Columns []ColumnDef `json:"columns,omitempty"`
	Column  *ColumnDef  `json:"column,omitempty"`
}

// Statement renders the operation as one executable SQL statement.
func (op Operation) Statement() (string, error) {
	switch op.Type {
	case OpSQL:
		if op.SQL == "" {
			return "", fmt.Errorf("migrate: sql operation has no statement")
		}
		return op.SQL, nil
	case OpCreateTable:
		if op.Table == "" || len(op.Columns) == 0 {
			return "", fmt.Errorf("migrate: create_table needs a table and at least one column")
		}
		cols := make([]string, len(op.Columns))
		for i, c := range op.Columns {
			cols[i] = c.render()
		}
		return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", op.Table, strings.Join(cols, ", ")), nil
	case OpAddColumn:
		if op.Table == "" || op.Column == nil {
			return "", fmt.Errorf("migrate: add_column needs a table and a column")
		}
		return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", op.Table, op.Column.render()), nil
	default:
		return "", fmt.Errorf("migrate: unknown operation type %q", op.Type)
	}
}

// Migration is one named, ordered batch of operations. The name carries the
// NNNN_ prefix that fixes apply order.
type Migration struct {
	Name       string      `json:"name"`
	Operations []Operation `json:"operations"`
}

// WriteFile persists the migration as <dir>/<name>.json.
func (m Migration) WriteFile(dir string) (string, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", fmt.Errorf("migrate: failed to encode %s: %w", m.Name, err)
	}
	path := filepath.Join(dir, m.Name+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("migrate: failed to write %s: %w", path, err)
	}
	return path, nil
}

// Load reads every *.json migration in dir, sorted by filename so the
// NNNN_ prefixes decide the order.
func Load(dir string) ([]Migration, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("migrate: failed to read %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	out := make([]Migration, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("migrate: failed to read %s: %w", path, err)
		}
		var m Migration
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("migrate: failed to decode %s: %w", path, err)
		}
		if m.Name == "" {
			m.Name = strings.TrimSuffix(name, ".json")
		}
		out = append(out, m)
	}
	return out, nil
}

// NextName builds the next sequential migration name for dir, starting at
// 0001.
func NextName(dir, label string) (string, error) {
	existing, err := Load(dir)
	if err != nil {
		return "", err
	}
	max := 0
	for _, m := range existing {
		prefix, _, ok := strings.Cut(m.Name, "_")
		if !ok {
			continue
		}
		var n int
		if _, err := fmt.Sscanf(prefix, "%d", &n); err == nil && n > max {
			max = n
		}
	}
	return fmt.Sprintf("%04d_%s", max+1, label), nil
}
