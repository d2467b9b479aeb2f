package db

import (
	"context"

	"rowsynth/internal/config"
	"rowsynth/internal/output"
	"rowsynth/internal/util"

	"github.com/pkg/errors"
)

// EnsureDatabase creates the database if it does not exist.
func EnsureDatabase(ctx context.Context, dsn string, dbName string) error {
	if dbName == "" {
		return nil
	}
	exec, err := Open(ctx, config.AdminDSN(dsn))
	if err != nil {
		return err
	}
	defer util.CloseWithErr(exec, "db exec")
	if _, err := exec.ExecContext(ctx, "CREATE DATABASE IF NOT EXISTS "+output.QuoteIdent(dbName)); err != nil {
		return errors.Wrapf(err, "create database %s", dbName)
	}
	return nil
}
