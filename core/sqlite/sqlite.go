// Package sqlite opens SQLite databases with either the pure Go driver
// (modernc.org/sqlite, the default) or the CGO driver (mattn/go-sqlite3,
// built with -tags cgo_sqlite). Callers use Open instead of sql.Open so the
// driver name and connection pragmas stay consistent.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// DriverName returns the database/sql driver name in use.
func DriverName() string { return driverName }

// DriverType returns "cgo" for mattn/go-sqlite3 and "purego" for
// modernc.org/sqlite.
func DriverType() string { return driverType }

// IsCGO reports whether the CGO implementation is compiled in.
func IsCGO() bool { return driverType == "cgo" }

// pragmas are applied to every database opened through this package.
var pragmas = []string{
	"PRAGMA foreign_keys = ON",
	"PRAGMA busy_timeout = 5000",
}

// Open opens the database at path and applies the connection pragmas. The
// pool holds a single connection, which keeps the pragmas and ":memory:"
// databases valid for every statement.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}
	return db, nil
}

// OpenMemory opens a private in-memory database.
func OpenMemory(ctx context.Context) (*sql.DB, error) {
	return Open(ctx, ":memory:")
}

// Info describes the compiled SQLite driver.
type Info struct {
	DriverName string `json:"driver_name"`
	DriverType string `json:"driver_type"`
	IsCGO      bool   `json:"is_cgo"`
	Package    string `json:"package"`
}

// GetInfo returns information about the compiled SQLite driver.
func GetInfo() Info {
	return Info{
		DriverName: driverName,
		DriverType: driverType,
		IsCGO:      IsCGO(),
		Package:    driverPackage,
	}
}
