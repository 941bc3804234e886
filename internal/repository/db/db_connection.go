package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"
	"time"

	"secrets_portal/internal/repository"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrations embed.FS

const (
	sqliteDriverName   = "sqlite"
	postgresDriverName = "pgx"

	migrateTimeout = 30 * time.Second
)

// DialectOf picks the backend for a connection URI. postgres:// and
// postgresql:// URLs go to PostgreSQL; anything else is a SQLite path or DSN.
func DialectOf(uri string) repository.Dialect {
	lower := strings.ToLower(uri)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return repository.DialectPostgres
	}
	return repository.DialectSQLite
}

// sqlitePath accepts "sqlite:///app.db", "sqlite://app.db", "file:app.db" or a plain path.
func sqlitePath(uri string) string {
	for _, prefix := range []string{"sqlite:///", "sqlite://", "sqlite:"} {
		if strings.HasPrefix(uri, prefix) {
			return strings.TrimPrefix(uri, prefix)
		}
	}
	return uri
}

// InitDB opens the database named by uri, applies migrations and verifies
// connectivity. log receives goose output; nil silences it.
func InitDB(uri string, log goose.Logger) (*sql.DB, repository.Dialect, error) {
	if strings.TrimSpace(uri) == "" {
		return nil, "", fmt.Errorf("empty database uri")
	}
	dialect := DialectOf(uri)

	var (
		db  *sql.DB
		err error
	)
	switch dialect {
	case repository.DialectPostgres:
		db, err = openPostgres(uri)
	default:
		db, err = openSQLite(sqlitePath(uri))
	}
	if err != nil {
		return nil, "", err
	}

	ctx, cancel := context.WithTimeout(context.Background(), migrateTimeout)
	defer cancel()

	// Fail fast if the DB cannot be reached
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, "", fmt.Errorf("ping %s: %w", dialect, err)
	}

	if err := migrate(ctx, db, dialect, log); err != nil {
		_ = db.Close()
		return nil, "", err
	}
	return db, dialect, nil
}

func openPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open(postgresDriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

// sqlitePragmas run on every connection the pool opens.
var sqlitePragmas = []string{
	"journal_mode(WAL)",
	"foreign_keys(1)",
	"busy_timeout(5000)",
}

// sqliteDSN appends the connection pragmas to path, keeping any query it already has.
func sqliteDSN(path string) string {
	var b strings.Builder
	b.WriteString(path)
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	for _, p := range sqlitePragmas {
		b.WriteString(sep)
		b.WriteString("_pragma=")
		b.WriteString(p)
		sep = "&"
	}
	return b.String()
}

func openSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open(sqliteDriverName, sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %q: %w", path, err)
	}

	// Conservative pool settings for SQLite
	db.SetMaxOpenConns(1) // SQLite is not great with many writers
	db.SetMaxIdleConns(1)
	return db, nil
}

func migrate(ctx context.Context, db *sql.DB, dialect repository.Dialect, log goose.Logger) error {
	gooseDialect, dir := "sqlite3", "migrations/sqlite"
	if dialect == repository.DialectPostgres {
		gooseDialect, dir = "postgres", "migrations/postgres"
	}
	if log == nil {
		log = goose.NopLogger()
	}

	goose.SetBaseFS(migrations)
	goose.SetLogger(log)
	if err := goose.SetDialect(gooseDialect); err != nil {
		return fmt.Errorf("set goose dialect %q: %w", gooseDialect, err)
	}
	if err := goose.UpContext(ctx, db, dir); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
