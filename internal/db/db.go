package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Open connects to the SQLite database at path and applies the pragmas
// every cinelog store relies on.
func Open(path string) (*sql.DB, error) {
	handle, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := handle.Exec(pragma); execErr != nil {
			_ = handle.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	// The driver returns SQLITE_BUSY on write-lock upgrades without
	// waiting out busy_timeout; one connection serializes writers so
	// concurrent upserts converge instead of erroring.
	handle.SetMaxOpenConns(1)

	return handle, nil
}

// NullableString converts an empty string to NULL for inserts.
func NullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

// NullableInt converts a nil pointer to NULL for inserts.
func NullableInt(value *int) any {
	if value == nil {
		return nil
	}
	return *value
}

// NullableFloat converts a nil pointer to NULL for inserts.
func NullableFloat(value *float64) any {
	if value == nil {
		return nil
	}
	return *value
}

// NullableTime formats a time pointer as RFC3339Nano or NULL.
func NullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

// FormatTime renders a timestamp the way every store persists them.
func FormatTime(value time.Time) string {
	return value.UTC().Format(time.RFC3339Nano)
}

// ParseTime accepts the store timestamp format plus the legacy
// space-separated form SQLite emits for datetime defaults.
func ParseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

// TimePtr parses an optional timestamp column.
func TimePtr(value sql.NullString) *time.Time {
	if !value.Valid {
		return nil
	}
	t, err := ParseTime(value.String)
	if err != nil {
		return nil
	}
	return &t
}

// IntPtr converts a nullable integer column.
func IntPtr(value sql.NullInt64) *int {
	if !value.Valid {
		return nil
	}
	v := int(value.Int64)
	return &v
}

// FloatPtr converts a nullable float column.
func FloatPtr(value sql.NullFloat64) *float64 {
	if !value.Valid {
		return nil
	}
	v := value.Float64
	return &v
}

// Placeholders returns a comma-separated list of n query placeholders.
func Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	out := make([]byte, 0, n*2)
	for i := 0; i < n; i++ {
		if i > 0 {
			out = append(out, ',')
		}
		out = append(out, '?')
	}
	return string(out)
}
