package db

import (
	"database/sql"
	"fmt"
	"regexp"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
)

const sqliteDriverName = "sqlite3_ledgerfix"

var (
	sqliteOnce    sync.Once
	sqlitePattern sync.Map
)

// registerSQLiteDriver installs a sqlite3 driver whose connections know the
// regexp() function, which backs the REGEXP operator. sqlx is told the driver
// uses '?' bindvars since it cannot guess from the custom name.
func registerSQLiteDriver() {
	sqliteOnce.Do(func() {
		sqlx.BindDriver(sqliteDriverName, sqlx.QUESTION)
		sql.Register(sqliteDriverName, &sqlite3.SQLiteDriver{
			ConnectHook: func(conn *sqlite3.SQLiteConn) error {
				return conn.RegisterFunc("regexp", sqliteRegexp, true)
			},
		})
	})
}

func sqliteRegexp(pattern string, value any) (bool, error) {
	var subject string
	switch v := value.(type) {
	case nil:
		return false, nil
	case string:
		subject = v
	case []byte:
		subject = string(v)
	default:
		subject = fmt.Sprint(v)
	}
	if cached, ok := sqlitePattern.Load(pattern); ok {
		return cached.(*regexp.Regexp).MatchString(subject), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, fmt.Errorf("platform/db: regexp %q: %w", pattern, err)
	}
	sqlitePattern.Store(pattern, re)
	return re.MatchString(subject), nil
}
