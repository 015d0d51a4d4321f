// Package libsql provides a libSQL-backed archive driver for Turso and
// sqld servers.
package libsql

import (
	"database/sql"
	"fmt"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/crosstalkco/crosstalk/pkg/archive"
	"github.com/crosstalkco/crosstalk/pkg/archive/sqlite"
)

// Driver implements archive.Driver over a libSQL connection. libSQL
// speaks the SQLite dialect, so the schema and statements are shared
// with the sqlite driver.
type Driver struct {
	*sqlite.Driver
}

// NewDriver creates a new libSQL-backed archive. The dsn can be a local
// file ("file:archive.db") or a remote database URL
// ("libsql://name.turso.io?authToken=...").
func NewDriver(dsn string) (*Driver, error) {
	db, err := sql.Open("libsql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	inner, err := sqlite.NewDriverFromDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Driver{Driver: inner}, nil
}

// Ensure Driver implements archive.Driver
var _ archive.Driver = (*Driver)(nil)
