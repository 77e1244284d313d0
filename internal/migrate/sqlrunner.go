package migrate

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

type FileInfo struct {
	Name     string
	Checksum string
}

// SQLRunner applies the *.sql files in a directory in lexical order.
// Applied files are recorded in the migration_applied table together with
// their checksum, so a restart skips them and a rewritten file is refused
// instead of silently re-run.
type SQLRunner struct {
	dir string
	db  *sql.DB
	log *slog.Logger
}

func NewSQLRunner(ctx context.Context, dir string, db *sql.DB, log *slog.Logger) (*SQLRunner, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	if log == nil {
		log = slog.Default()
	}
	r := &SQLRunner{dir: dir, db: db, log: log}
	if err := r.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *SQLRunner) ensureSchema(ctx context.Context) error {
	const q = `
CREATE TABLE IF NOT EXISTS migration_applied (
	name TEXT PRIMARY KEY,
	checksum TEXT NOT NULL,
	applied_at TIMESTAMPTZ NOT NULL
)`
	if _, err := r.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("ensure migration_applied schema: %w", err)
	}
	return nil
}

// List returns the migration files in apply order.
func (r *SQLRunner) List() ([]FileInfo, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}

	out := make([]FileInfo, 0)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		full := filepath.Join(r.dir, e.Name())
		checksum, err := fileSHA256(full)
		if err != nil {
			return nil, fmt.Errorf("hash migration %s: %w", e.Name(), err)
		}
		out = append(out, FileInfo{Name: e.Name(), Checksum: checksum})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Run applies every pending migration. It is safe to call on every container
// start.
func (r *SQLRunner) Run(ctx context.Context) error {
	files, err := r.List()
	if err != nil {
		return err
	}

	applied, err := r.applied(ctx)
	if err != nil {
		return err
	}

	pending := 0
	for _, f := range files {
		if checksum, ok := applied[f.Name]; ok {
			if checksum != f.Checksum {
				return fmt.Errorf("migration %s changed after being applied", f.Name)
			}
			continue
		}
		if err := r.apply(ctx, f); err != nil {
			return err
		}
		pending++
	}

	r.log.Info("migrations up to date", "total", len(files), "applied_now", pending)
	return nil
}

func (r *SQLRunner) applied(ctx context.Context) (map[string]string, error) {
	const q = `SELECT name, checksum FROM migration_applied`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query applied migrations: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var name, checksum string
		if err := rows.Scan(&name, &checksum); err != nil {
			return nil, fmt.Errorf("scan applied migration: %w", err)
		}
		out[name] = checksum
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applied migrations: %w", err)
	}
	return out, nil
}

func (r *SQLRunner) apply(ctx context.Context, f FileInfo) error {
	body, err := os.ReadFile(filepath.Join(r.dir, f.Name))
	if err != nil {
		return fmt.Errorf("read migration %s: %w", f.Name, err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %s: %w", f.Name, err)
	}
	if _, err := tx.ExecContext(ctx, string(body)); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("apply migration %s: %w", f.Name, err)
	}
	const record = `INSERT INTO migration_applied (name, checksum, applied_at) VALUES ($1, $2, $3)`
	if _, err := tx.ExecContext(ctx, record, f.Name, f.Checksum, time.Now().UTC()); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("record migration %s: %w", f.Name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %s: %w", f.Name, err)
	}

	r.log.Info("migration applied", "name", f.Name)
	return nil
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
