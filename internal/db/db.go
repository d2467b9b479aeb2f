// Package db writes generated rows into a MySQL-compatible database.
package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
)

// DB wraps a connection pool.
type DB struct {
	*sql.DB
	Database string
}

// Open connects to dsn and verifies the connection.
func Open(ctx context.Context, dsn string) (*DB, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, errors.Wrap(err, "parse dsn")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "create connector")
	}
	pool := sql.OpenDB(connector)
	pool.SetMaxOpenConns(4)
	pool.SetConnMaxIdleTime(time.Minute)
	if err := pool.PingContext(ctx); err != nil {
		_ = pool.Close()
		return nil, errors.Wrapf(err, "connect %s", cfg.Addr)
	}
	return &DB{DB: pool, Database: cfg.DBName}, nil
}

// IsDuplicateKey reports whether err is a unique key violation.
func IsDuplicateKey(err error) bool {
	code, ok := ErrorCode(err)
	return ok && code == 1062
}

// ErrorCode returns the MySQL error number carried by err.
func ErrorCode(err error) (uint16, bool) {
	if err == nil {
		return 0, false
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number, true
	}
	return 0, false
}
