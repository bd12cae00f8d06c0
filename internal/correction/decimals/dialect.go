package decimals

import (
	"errors"
	"fmt"

	"github.com/odyssey-erp/ledgerfix/internal/platform/db"
)

// ErrWidenUnsupported is returned by dialects that cannot alter column types.
var ErrWidenUnsupported = errors.New("decimals: column widening not supported")

// Dialect renders the backend specific pieces of the precision queries.
type Dialect interface {
	Name() string
	// CastText converts a numeric column expression into its text form.
	CastText(expr string) string
	// DetectPrecisionViolation returns a predicate over the text expression
	// and the pattern it binds. The predicate matches when a non-zero digit
	// appears after the first scale fractional digits.
	DetectPrecisionViolation(expr string, scale int) (string, any)
	// WidenColumn returns the DDL forcing a column to DECIMAL(32,12).
	WidenColumn(table, field string) (string, error)
}

// DialectFor returns the dialect of a configured driver.
func DialectFor(driver db.Driver) (Dialect, bool) {
	switch driver {
	case db.DriverPostgres:
		return postgresDialect{}, true
	case db.DriverMySQL:
		return mysqlDialect{}, true
	case db.DriverSQLite:
		return sqliteDialect{}, true
	}
	return nil, false
}

type postgresDialect struct{}

func (postgresDialect) Name() string { return string(db.DriverPostgres) }

func (postgresDialect) CastText(expr string) string {
	return fmt.Sprintf("CAST(%s AS TEXT)", expr)
}

func (postgresDialect) DetectPrecisionViolation(expr string, scale int) (string, any) {
	return expr + " SIMILAR TO ?", fmt.Sprintf(`%%\.[0-9]{%d}[1-9]+%%`, scale)
}

func (postgresDialect) WidenColumn(table, field string) (string, error) {
	return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE DECIMAL(32,12)", table, field), nil
}

type mysqlDialect struct{}

func (mysqlDialect) Name() string { return string(db.DriverMySQL) }

func (mysqlDialect) CastText(expr string) string {
	return fmt.Sprintf("CAST(%s AS CHAR)", expr)
}

func (mysqlDialect) DetectPrecisionViolation(expr string, scale int) (string, any) {
	return expr + " REGEXP ?", regexPattern(scale)
}

func (mysqlDialect) WidenColumn(table, field string) (string, error) {
	return fmt.Sprintf("ALTER TABLE %s CHANGE COLUMN %s %s DECIMAL(32, 12)", table, field, field), nil
}

// sqliteDialect relies on the regexp() function the sqlite driver installs on
// every connection.
type sqliteDialect struct{}

func (sqliteDialect) Name() string { return string(db.DriverSQLite) }

func (sqliteDialect) CastText(expr string) string {
	return fmt.Sprintf("CAST(%s AS TEXT)", expr)
}

func (sqliteDialect) DetectPrecisionViolation(expr string, scale int) (string, any) {
	return expr + " REGEXP ?", regexPattern(scale)
}

func (sqliteDialect) WidenColumn(table, field string) (string, error) {
	return "", ErrWidenUnsupported
}

func regexPattern(scale int) string {
	return fmt.Sprintf(`\.[0-9]{%d}[1-9]+`, scale)
}
