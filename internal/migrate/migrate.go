// Package migrate brings the rounds schema up to date before the Postgres
// round store starts serving.
package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"example.com/fairplay/db"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// Source picks the migration files: dir on disk when set, otherwise the set
// embedded in the binary.
func Source(dir string) (fs.FS, error) {
	if dir != "" {
		return os.DirFS(dir), nil
	}
	sub, err := fs.Sub(db.Migrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("migrations: embedded files: %w", err)
	}
	return sub, nil
}

// Up applies pending rounds migrations and logs each applied version.
// Errors are returned; the caller decides whether startup fails.
func Up(ctx context.Context, dbURL string, migrations fs.FS, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}

	conn, err := sql.Open("pgx", dbURL)
	if err != nil {
		return fmt.Errorf("migrations: open db: %w", err)
	}

	p, err := goose.NewProvider(goose.DialectPostgres, conn, migrations)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("migrations: provider: %w", err)
	}
	defer func() {
		if err := p.Close(); err != nil {
			log.Error("migrations: close db", "err", err)
		}
	}()

	results, err := p.Up(ctx)
	for _, r := range results {
		log.Info("rounds migration applied",
			"version", r.Source.Version,
			"file", r.Source.Path,
			"took", r.Duration,
		)
	}
	if err != nil {
		return fmt.Errorf("migrations: up: %w", err)
	}

	version, err := p.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("migrations: db version: %w", err)
	}
	log.Info("rounds schema ready", "version", version, "applied", len(results))
	return nil
}
