package db

import (
	"fmt"
	"strings"
)

// Driver identifies a supported relational backend.
type Driver string

const (
	// DriverPostgres selects PostgreSQL through pgx.
	DriverPostgres Driver = "pgsql"
	// DriverMySQL selects MySQL/MariaDB.
	DriverMySQL Driver = "mysql"
	// DriverSQLite selects SQLite with the regexp() function installed.
	DriverSQLite Driver = "sqlite"
)

// ParseDriver maps a configuration value onto a Driver.
func ParseDriver(name string) (Driver, error) {
	switch d := Driver(strings.ToLower(strings.TrimSpace(name))); d {
	case DriverPostgres, DriverMySQL, DriverSQLite:
		return d, nil
	case "postgres", "postgresql", "pgx":
		return DriverPostgres, nil
	case "sqlite3":
		return DriverSQLite, nil
	default:
		return "", fmt.Errorf("platform/db: unsupported driver %q", name)
	}
}

func (d Driver) sqlDriverName() (string, error) {
	switch d {
	case DriverPostgres:
		return "pgx", nil
	case DriverMySQL:
		return "mysql", nil
	case DriverSQLite:
		registerSQLiteDriver()
		return sqliteDriverName, nil
	default:
		return "", fmt.Errorf("platform/db: unsupported driver %q", string(d))
	}
}
