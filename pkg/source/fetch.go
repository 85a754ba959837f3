package source

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
)

var (
	ErrNoRow        = errors.New("no row at offset")
	ErrInvalidTable = errors.New("invalid table name")

	tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// Row is a single sampled row keyed by column name.
type Row map[string]any

// Querier is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Dialect renders the one-row-at-offset query for a driver.
type Dialect interface {
	OffsetQuery(table string) string
}

type mysqlDialect struct{}

func (mysqlDialect) OffsetQuery(table string) string {
	return fmt.Sprintf("SELECT * FROM %s LIMIT ?, 1", table)
}

type postgresDialect struct{}

func (postgresDialect) OffsetQuery(table string) string {
	return fmt.Sprintf("SELECT * FROM %s LIMIT 1 OFFSET $1", table)
}

// DialectFor returns the Dialect of the given driver name.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "", DriverMySQL:
		return mysqlDialect{}, nil
	case DriverPostgres:
		return postgresDialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}
}

// sqlDriverName maps a configured driver to its registered database/sql name.
func sqlDriverName(driver string) string {
	if driver == DriverPostgres {
		return "pgx"
	}
	return "mysql"
}

// Open opens and pings a new database handle. The caller owns the handle.
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	cfg = cfg.WithDefaults()
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(sqlDriverName(cfg.Driver), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", cfg.Driver, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", cfg.Driver, err)
	}
	return db, nil
}

// Fetch returns exactly one row of table at offset.
func Fetch(ctx context.Context, q Querier, d Dialect, table string, offset int) (Row, error) {
	if !tableNameRe.MatchString(table) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTable, table)
	}
	if offset < 0 {
		return nil, fmt.Errorf("negative offset %d", offset)
	}

	rows, err := q.QueryContext(ctx, d.OffsetQuery(table), offset)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns of %s: %w", table, err)
	}

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("read %s: %w", table, err)
		}
		return nil, fmt.Errorf("%w %d in %s", ErrNoRow, offset, table)
	}

	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, fmt.Errorf("scan %s: %w", table, err)
	}

	row := make(Row, len(cols))
	for i, col := range cols {
		switch v := values[i].(type) {
		case []byte:
			row[col] = string(v)
		default:
			row[col] = v
		}
	}
	return row, nil
}
