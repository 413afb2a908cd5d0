package sqlstore

import (
	"fmt"
	"strconv"
	"strings"

	// Registers the "pgx" database/sql driver.
	_ "github.com/jackc/pgx/v5/stdlib"
	// Registers the pure-Go "sqlite" database/sql driver.
	_ "modernc.org/sqlite"

	"github.com/jsamuelsen/quotebook/internal/platform/config"
)

// Dialect captures the differences between the supported SQL engines.
type Dialect struct {
	// Name is the store driver name used in configuration.
	Name string

	// DriverName is the database/sql driver to open.
	DriverName string

	// numbered placeholders ($1, $2) instead of '?'.
	numbered bool

	// resetStatement empties the quotes table.
	resetStatement string

	// singleWriter limits the pool to one connection.
	singleWriter bool
}

var (
	// Postgres talks to PostgreSQL through pgx.
	Postgres = Dialect{
		Name:           config.StoreDriverPostgres,
		DriverName:     "pgx",
		numbered:       true,
		resetStatement: "TRUNCATE TABLE quotes",
	}

	// SQLite uses the modernc pure-Go engine.
	SQLite = Dialect{
		Name:           config.StoreDriverSQLite,
		DriverName:     "sqlite",
		resetStatement: "DELETE FROM quotes",
		singleWriter:   true,
	}
)

// DialectFor returns the dialect for a configured store driver.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case config.StoreDriverPostgres:
		return Postgres, nil
	case config.StoreDriverSQLite:
		return SQLite, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported sql driver %q", driver)
	}
}

// Rebind rewrites '?' placeholders for the dialect.
func (d Dialect) Rebind(query string) string {
	if !d.numbered {
		return query
	}

	var (
		b strings.Builder
		n int
	)

	b.Grow(len(query) + 8)

	for i := 0; i < len(query); i++ {
		if query[i] != '?' {
			b.WriteByte(query[i])

			continue
		}

		n++
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(n))
	}

	return b.String()
}
