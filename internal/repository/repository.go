package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned when a unique constraint fails.
	ErrDuplicate = errors.New("duplicate")

	// ErrReference is returned when a foreign key constraint fails.
	ErrReference = errors.New("foreign key violation")
)

// DBTX is the subset of *sql.DB and *sql.Tx used by the repositories.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Clock returns the current time. Tests replace it.
var Clock = func() time.Time { return time.Now().UTC() }

func stamp() string {
	return Clock().UTC().Format(time.RFC3339Nano)
}

// classify maps driver constraint errors onto the repository sentinels and
// wraps everything else with op.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return fmt.Errorf("%s: %w: %s", op, ErrDuplicate, constraintDetail(msg))
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return fmt.Errorf("%s: %w", op, ErrReference)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func constraintDetail(msg string) string {
	const marker = "constraint failed: "
	i := strings.LastIndex(msg, marker)
	if i < 0 {
		return msg
	}
	detail := msg[i+len(marker):]
	if j := strings.Index(detail, " ("); j >= 0 {
		detail = detail[:j]
	}
	return detail
}

func requireAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: read affected rows: %w", op, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type timeScanner struct {
	dst *time.Time
}

// scanTime reads an RFC 3339 text column into dst.
func scanTime(dst *time.Time) sql.Scanner {
	return timeScanner{dst: dst}
}

func (s timeScanner) Scan(src any) error {
	var text string
	switch v := src.(type) {
	case nil:
		*s.dst = time.Time{}
		return nil
	case time.Time:
		*s.dst = v
		return nil
	case string:
		text = v
	case []byte:
		text = string(v)
	default:
		return fmt.Errorf("scan timestamp: unsupported type %T", src)
	}
	t, err := time.Parse(time.RFC3339Nano, text)
	if err != nil {
		return fmt.Errorf("scan timestamp %q: %w", text, err)
	}
	*s.dst = t
	return nil
}

type nullTimeScanner struct {
	dst **time.Time
}

func scanNullTime(dst **time.Time) sql.Scanner {
	return nullTimeScanner{dst: dst}
}

func (s nullTimeScanner) Scan(src any) error {
	if src == nil {
		*s.dst = nil
		return nil
	}
	var t time.Time
	if err := scanTime(&t).Scan(src); err != nil {
		return err
	}
	*s.dst = &t
	return nil
}

func formatNullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// likePattern escapes q for a LIKE ... ESCAPE '\' clause.
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q) + "%"
}

// WithTx runs fn in a transaction, rolling back when fn fails.
func WithTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
