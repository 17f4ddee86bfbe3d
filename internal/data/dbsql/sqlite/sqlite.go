// Package db provides support to access the SQLite database file.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"github.com/rschio/sunbed/internal/logger"
	"github.com/rschio/sunbed/internal/web"
	"go.opentelemetry.io/otel/attribute"
)

// DriverName is the database/sql driver registered by go-sqlite3.
const DriverName = "sqlite3"

// Set of error variables for CRUD operations.
var (
	ErrDBNotFound   = sql.ErrNoRows
	ErrDBConstraint = errors.New("constraint violation")
	ErrDBForeignKey = errors.New("foreign key violation")
)

// Config is the required properties to use the database.
type Config struct {
	Path        string
	BusyTimeout time.Duration
}

// pathEscaper escapes the characters that end the path of a SQLite URI.
// SQLite decodes them back when opening the file.
var pathEscaper = strings.NewReplacer("%", "%25", "?", "%3F", "#", "%23")

// ConnString creates a go-sqlite3 connection string with config values.
// Foreign keys are always enforced and writers take the lock when the
// transaction begins.
func ConnString(cfg Config) string {
	q := make(url.Values)
	q.Set("_foreign_keys", "on")
	q.Set("_txlock", "immediate")
	q.Set("_journal_mode", "WAL")
	if cfg.BusyTimeout > 0 {
		q.Set("_busy_timeout", fmt.Sprint(cfg.BusyTimeout.Milliseconds()))
	}

	u := url.URL{
		Scheme:   "file",
		Opaque:   pathEscaper.Replace(cfg.Path),
		RawQuery: q.Encode(),
	}

	return u.String()
}

// Open knows how to open a database connection based on the configuration.
func Open(cfg Config) (*sqlx.DB, error) {
	return OpenConnString(ConnString(cfg))
}

// OpenConnString open a database connection using the connString. The pool
// is limited to a single connection, SQLite allows one writer anyway.
func OpenConnString(connString string) (*sqlx.DB, error) {
	db, err := sqlx.Open(DriverName, connString)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return db, nil
}

// StatusCheck returns nil if it can successfully talk to the database. It
// returns a non-nil error otherwise.
func StatusCheck(ctx context.Context, db *sqlx.DB) error {
	var pingError error
	for attempts := 1; ; attempts++ {
		pingError = db.PingContext(ctx)
		if pingError == nil {
			break
		}
		time.Sleep(time.Duration(attempts) * 100 * time.Millisecond)
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}

	// Run a simple query to determine connectivity.
	// Running this query forces a read of the database file.
	const q = `SELECT true`
	var tmp bool
	return db.QueryRowContext(ctx, q).Scan(&tmp)
}

// DB is an interface used to support both *sqlx.DB and *sqlx.Tx.
type DB interface {
	sqlx.ExtContext
}

// Beginner is implemented by handles that can start a transaction. A
// *sqlx.Tx does not implement it.
type Beginner interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// NamedExec is a helper function to execute a CUD operation with
// logging and tracing where field replacement is necessary.
func NamedExec(ctx context.Context, log *slog.Logger, db DB, query string, data any) error {
	return namedExec(ctx, log, db, query, data)
}

func namedExec(ctx context.Context, log *slog.Logger, db DB, query string, data any) error {
	ctx, span := web.AddSpan(ctx, "internal.data.dbsql.sqlite.namedExec")
	defer span.End()

	args, err := toNamedArgs(data)
	if err != nil {
		return fmt.Errorf("failed to parse arguments: %w", err)
	}

	q := queryString(query, args)
	logger.InfocCtx(ctx, log, 4, "db.namedExec", "query", q)
	span.SetAttributes(attribute.String("query", q))

	if _, err := sqlx.NamedExecContext(ctx, db, query, data); err != nil {
		return toDBError(err)
	}

	return nil
}

// NamedQuerySlice is a helper function for executing queries that return a
// collection of data to be unmarshalled into a slice where field replacement is
// necessary.
func NamedQuerySlice[T any](ctx context.Context, log *slog.Logger, db DB, query string, data any) ([]T, error) {
	ctx, span := web.AddSpan(ctx, "internal.data.dbsql.sqlite.NamedQuerySlice")
	defer span.End()

	args, err := toNamedArgs(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse arguments: %w", err)
	}

	q := queryString(query, args)
	logger.InfocCtx(ctx, log, 3, "db.NamedQuerySlice", "query", q)
	span.SetAttributes(attribute.String("query", q))

	rows, err := sqlx.NamedQueryContext(ctx, db, query, data)
	if err != nil {
		return nil, toDBError(err)
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		var v T
		if err := rows.StructScan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, toDBError(err)
	}

	return out, nil
}

// NamedQueryStruct is a helper function for executing queries that return a
// single value to be unmarshalled into a struct type where field replacement
// is necessary. It returns ErrDBNotFound when the query produced no rows.
func NamedQueryStruct[T any](ctx context.Context, log *slog.Logger, db DB, query string, data any) (T, error) {
	ctx, span := web.AddSpan(ctx, "internal.data.dbsql.sqlite.NamedQueryStruct")
	defer span.End()

	var zero T

	args, err := toNamedArgs(data)
	if err != nil {
		return zero, fmt.Errorf("failed to parse arguments: %w", err)
	}

	q := queryString(query, args)
	logger.InfocCtx(ctx, log, 3, "db.NamedQueryStruct", "query", q)
	span.SetAttributes(attribute.String("query", q))

	rows, err := sqlx.NamedQueryContext(ctx, db, query, data)
	if err != nil {
		return zero, toDBError(err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return zero, toDBError(err)
		}
		return zero, ErrDBNotFound
	}

	var out T
	if err := rows.StructScan(&out); err != nil {
		return zero, err
	}

	return out, nil
}

func toDBError(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch {
		case sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey:
			return ErrDBForeignKey
		case sqliteErr.Code == sqlite3.ErrConstraint:
			return fmt.Errorf("%w: %s", ErrDBConstraint, sqliteErr.Error())
		}
	}

	return err
}

func toNamedArgs(value any) (map[string]any, error) {
	if m, ok := value.(map[string]any); ok {
		return m, nil
	}

	s := reflect.ValueOf(value)
	if s.Kind() == reflect.Ptr {
		s = s.Elem()
	}
	if s.Kind() != reflect.Struct {
		return nil, fmt.Errorf("invalid struct")
	}
	typ := s.Type()

	args := make(map[string]any)

	for i := 0; i < s.NumField(); i++ {
		f := s.Field(i)
		structField := typ.Field(i)
		fieldTag := structField.Tag.Get("db")

		if !structField.IsExported() || fieldTag == "-" {
			continue
		}
		if fieldTag == "" {
			fieldTag = structField.Name
		}

		args[fieldTag] = f.Interface()
	}

	return args, nil
}

var reDBQueryArg = regexp.MustCompile(`:\w+`)

func queryString(query string, args map[string]any) string {
	query = reDBQueryArg.ReplaceAllStringFunc(query, func(s string) string {
		// skip ':'.
		key := s[1:]
		val, ok := args[key]
		if !ok {
			return s
		}
		switch v := val.(type) {
		case []byte, string:
			return fmt.Sprintf("'%s'", v)
		case sql.NullString:
			if !v.Valid {
				return "NULL"
			}
			return fmt.Sprintf("'%s'", v.String)
		default:
			return fmt.Sprintf("%v", v)
		}
	})
	query = strings.ReplaceAll(query, "\t", "")
	query = strings.ReplaceAll(query, "\n", " ")
	return strings.TrimSpace(query)
}
