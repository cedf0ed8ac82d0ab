package migrate

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/quillorm/quill"
)

// trackingTable records applied migrations by name.
const trackingTable = "quill_migrations"

// Runner applies the migrations in one directory against one database.
// Each migration runs inside a single transaction together with its
// tracking insert, so a failed migration leaves no trace and a rerun picks
// it up again.
type Runner struct {
	db  *quill.Database
	dir string
	log *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the runner's logger.
func WithLogger(log *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if log != nil {
			r.log = log
		}
	}
}

// NewRunner returns a runner over the migration files in dir.
func NewRunner(db *quill.Database, dir string, opts ...RunnerOption) *Runner {
	r := &Runner{db: db, dir: dir, log: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runner) ensureTracking(ctx context.Context) error {
	query := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL UNIQUE, applied_at TEXT NOT NULL)",
		trackingTable,
	)
	_, err := r.db.Execute(ctx, query)
	return err
}

// Applied returns the set of migration names already recorded.
func (r *Runner) Applied(ctx context.Context) (map[string]bool, error) {
	if err := r.ensureTracking(ctx); err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, fmt.Sprintf("SELECT name FROM %s", trackingTable))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		applied[name] = true
	}
	return applied, rows.Err()
}

// CreateMigration writes a new sequentially numbered migration file and
// returns its path. It does not apply anything.
func (r *Runner) CreateMigration(label string, ops []Operation) (string, error) {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("migrate: failed to create %s: %w", r.dir, err)
	}
	name, err := NextName(r.dir, label)
	if err != nil {
		return "", err
	}
	return Migration{Name: name, Operations: ops}.WriteFile(r.dir)
}

// Migrate applies every pending migration in name order and returns how
// many were applied. Already applied migrations are skipped, so calling
// Migrate repeatedly is safe.
func (r *Runner) Migrate(ctx context.Context) (int, error) {
	applied, err := r.Applied(ctx)
	if err != nil {
		return 0, err
	}

	migrations, err := Load(r.dir)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, m := range migrations {
		if applied[m.Name] {
			r.log.DebugContext(ctx, "migration already applied", slog.String("name", m.Name))
			continue
		}
		if err := r.apply(ctx, m); err != nil {
			return count, fmt.Errorf("migrate: %s: %w", m.Name, err)
		}
		r.log.InfoContext(ctx, "migration applied",
			slog.String("name", m.Name),
			slog.Int("operations", len(m.Operations)),
		)
		count++
	}
	return count, nil
}

// apply runs all operations and the tracking insert in one transaction.
func (r *Runner) apply(ctx context.Context, m Migration) error {
	return r.db.Transaction(ctx, func(tx *quill.Database) error {
		for i, op := range m.Operations {
			stmt, err := op.Statement()
			if err != nil {
				return fmt.Errorf("operation %d: %w", i, err)
			}
			if _, err := tx.Execute(ctx, stmt); err != nil {
				return fmt.Errorf("operation %d: %w", i, err)
			}
		}
		_, err := tx.Execute(ctx,
			fmt.Sprintf("INSERT INTO %s (name, applied_at) VALUES (?, ?)", trackingTable),
			m.Name, time.Now().UTC().Format(time.RFC3339),
		)
		return err
	})
}

// StatusEntry pairs one known migration with whether it has been applied.
type StatusEntry struct {
	Name    string
	Applied bool
}

// Status lists every migration on disk with its applied state, in apply
// order.
func (r *Runner) Status(ctx context.Context) ([]StatusEntry, error) {
	applied, err := r.Applied(ctx)
	if err != nil {
		return nil, err
	}
	migrations, err := Load(r.dir)
	if err != nil {
		return nil, err
	}

	out := make([]StatusEntry, len(migrations))
	for i, m := range migrations {
		out[i] = StatusEntry{Name: m.Name, Applied: applied[m.Name]}
	}
	return out, nil
}
