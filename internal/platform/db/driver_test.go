package db

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func TestParseDriver(t *testing.T) {
	cases := map[string]Driver{
		"pgsql":    DriverPostgres,
		"postgres": DriverPostgres,
		" MySQL ":  DriverMySQL,
		"sqlite3":  DriverSQLite,
		"sqlite":   DriverSQLite,
	}
	for in, want := range cases {
		got, err := ParseDriver(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}
	_, err := ParseDriver("oracle")
	require.Error(t, err)
}

func TestRebindFollowsDriver(t *testing.T) {
	raw, err := sqlx.Open("pgx", "postgres://ledgerfix@localhost:5432/ledgerfix")
	require.NoError(t, err)
	defer raw.Close()
	pg := &DB{sql: raw, driver: DriverPostgres}
	require.Equal(t, "UPDATE t SET a = $1 WHERE id = $2", pg.Rebind("UPDATE t SET a = ? WHERE id = ?"))

	lite, err := Open(context.Background(), DriverSQLite, ":memory:")
	require.NoError(t, err)
	defer lite.Close()
	require.Equal(t, "SELECT * FROM t WHERE id = ?", lite.Rebind("SELECT * FROM t WHERE id = ?"))
}

func TestSelectAndGetRebind(t *testing.T) {
	ctx := context.Background()
	conn, err := Open(ctx, DriverSQLite, ":memory:")
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.ExecContext(ctx, `CREATE TABLE names (id INTEGER PRIMARY KEY, name TEXT)`)
	require.NoError(t, err)
	_, err = conn.ExecContext(ctx, `INSERT INTO names (name) VALUES (?), (?)`, "a", "b")
	require.NoError(t, err)

	type row struct {
		ID   int64  `db:"id"`
		Name string `db:"name"`
	}
	var rows []row
	require.NoError(t, conn.SelectContext(ctx, &rows, `SELECT id, name FROM names WHERE id > ? ORDER BY id`, 0))
	require.Equal(t, []row{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}}, rows)

	var name string
	require.NoError(t, conn.GetContext(ctx, &name, `SELECT name FROM names WHERE id = ?`, 2))
	require.Equal(t, "b", name)
}

func TestSQLiteRegexpOperator(t *testing.T) {
	ctx := context.Background()
	conn, err := Open(ctx, DriverSQLite, ":memory:")
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.ExecContext(ctx, `CREATE TABLE amounts (id INTEGER PRIMARY KEY, amount TEXT)`)
	require.NoError(t, err)
	_, err = conn.ExecContext(ctx, `INSERT INTO amounts (id, amount) VALUES (1, '12.345000000000002'), (2, '12.350000000000'), (3, NULL)`)
	require.NoError(t, err)

	rows, err := conn.QueryContext(ctx, `SELECT id FROM amounts WHERE CAST(amount AS TEXT) REGEXP ? ORDER BY id`, `\.[0-9]{2}[1-9]+`)
	require.NoError(t, err)
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		require.NoError(t, rows.Scan(&id))
		ids = append(ids, id)
	}
	require.NoError(t, rows.Err())
	require.Equal(t, []int64{1}, ids)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	conn, err := Open(ctx, DriverSQLite, ":memory:")
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.ExecContext(ctx, `CREATE TABLE names (id INTEGER PRIMARY KEY, name TEXT UNIQUE)`)
	require.NoError(t, err)

	err = WithTx(ctx, conn, func(q Querier) error {
		if _, err := q.ExecContext(ctx, `INSERT INTO names (name) VALUES (?)`, "a"); err != nil {
			return err
		}
		_, err := q.ExecContext(ctx, `INSERT INTO names (name) VALUES (?)`, "a")
		return err
	})
	require.Error(t, err)
	require.True(t, IsUniqueViolation(err))

	var count int
	require.NoError(t, conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM names`).Scan(&count))
	require.Zero(t, count)
}
