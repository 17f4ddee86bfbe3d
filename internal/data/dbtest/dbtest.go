// Package dbtest contains supporting code for running tests that hit the DB.
package dbtest

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime/debug"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rschio/sunbed/internal/data/dbschema"
	db "github.com/rschio/sunbed/internal/data/dbsql/sqlite"
)

// File is the database file created for a single test.
type File struct {
	Dir  string
	Path string
}

// NewUnit creates a test database file inside a temporary directory. It gives
// options to migrate and seed the database. It returns the database to use as
// well as a function to call at the end of the test.
func NewUnit(t *testing.T, options ...Option) (*slog.Logger, *sqlx.DB, func()) {
	t.Helper()

	dir := t.TempDir()
	f := File{
		Dir:  dir,
		Path: filepath.Join(dir, "sunbed.db"),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var buf bytes.Buffer
	logHandler := slog.NewTextHandler(&buf, nil)
	log := slog.New(logHandler)

	database, err := db.Open(db.Config{Path: f.Path, BusyTimeout: time.Second})
	if err != nil {
		t.Fatalf("Opening database connection: %v", err)
	}

	for _, option := range options {
		if err := option(ctx, t, database, f); err != nil {
			database.Close()
			t.Fatal(err)
		}
	}

	t.Log("Ready for testing...")

	// teardown is the function that should be invoked when the caller is done
	// with the database.
	teardown := func() {
		if r := recover(); r != nil {
			t.Log(r)
			t.Error(string(debug.Stack()))
		}

		t.Helper()
		database.Close()

		if t.Failed() {
			fmt.Println("******************** LOGS ********************")
			fmt.Print(buf.String())
			fmt.Println("******************** LOGS ********************")
		}
	}

	return log, database, teardown
}

type Option func(context.Context, *testing.T, *sqlx.DB, File) error

func WithMigrations() Option {
	return func(ctx context.Context, t *testing.T, database *sqlx.DB, _ File) error {
		t.Log("Migrating database...")

		if err := dbschema.Migrate(database.DB); err != nil {
			return fmt.Errorf("migrating error: %w", err)
		}

		return nil
	}
}

// WithFile reports the location of the database file to the caller, for
// tests that work on the file itself (backups).
func WithFile(dst *File) Option {
	return func(_ context.Context, _ *testing.T, _ *sqlx.DB, f File) error {
		*dst = f
		return nil
	}
}
