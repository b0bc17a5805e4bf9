package migrations

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	chstore "token-risk-monitor/internal/storage/clickhouse"
)

// RunClickhouseMigrations creates the score history database named in dsn,
// applies the embedded schema and returns a connection to that database.
func RunClickhouseMigrations(ctx context.Context, dsn string) (*chstore.Conn, error) {
	dbName, err := databaseFromDSN(dsn)
	if err != nil {
		return nil, err
	}
	if err := ensureDatabase(ctx, dsn, dbName); err != nil {
		return nil, err
	}

	files, err := loadScripts(scripts, "clickhouse")
	if err != nil {
		return nil, err
	}

	conn, err := chstore.NewConnWithDatabase(ctx, dsn, dbName)
	if err != nil {
		return nil, fmt.Errorf("connect clickhouse db: %w", err)
	}
	for _, f := range files {
		if err := applyClickhouseScript(ctx, conn, f); err != nil {
			conn.Close()
			return nil, err
		}
	}
	return conn, nil
}

func ensureDatabase(ctx context.Context, dsn, dbName string) error {
	admin, err := chstore.NewConnWithDatabase(ctx, dsn, "")
	if err != nil {
		return fmt.Errorf("connect clickhouse admin: %w", err)
	}
	defer admin.Close()

	if err := admin.Exec(ctx, "CREATE DATABASE IF NOT EXISTS `"+dbName+"`"); err != nil {
		return fmt.Errorf("create database %s: %w", dbName, err)
	}
	return nil
}

// The ClickHouse driver runs one statement per Exec.
func applyClickhouseScript(ctx context.Context, conn *chstore.Conn, f script) error {
	stmts, err := splitStatements(f.sql)
	if err != nil {
		return fmt.Errorf("parse migration %s: %w", f.name, err)
	}
	for _, stmt := range stmts {
		if err := conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration %s: %w", f.name, err)
		}
	}
	return nil
}

var errUnterminatedString = errors.New("unterminated string literal")

// splitStatements splits a script on semicolons outside single-quoted strings
// and drops -- comments. Quotes escape as '' or \'.
func splitStatements(sql string) ([]string, error) {
	var (
		stmts    []string
		cur      strings.Builder
		inString bool
	)
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			stmts = append(stmts, s)
		}
		cur.Reset()
	}

	for i := 0; i < len(sql); i++ {
		c := sql[i]
		switch {
		case inString && c == '\\' && i+1 < len(sql):
			cur.WriteByte(c)
			i++
			cur.WriteByte(sql[i])
			continue
		case c == '\'':
			inString = !inString
		case !inString && c == '-' && strings.HasPrefix(sql[i:], "--"):
			for i < len(sql) && sql[i] != '\n' {
				i++
			}
			cur.WriteByte('\n')
			continue
		case !inString && c == ';':
			flush()
			continue
		}
		cur.WriteByte(c)
	}

	if inString {
		return nil, errUnterminatedString
	}
	flush()
	return stmts, nil
}

// databaseFromDSN returns the path component of a clickhouse:// DSN.
func databaseFromDSN(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse clickhouse dsn: %w", err)
	}
	db := strings.TrimPrefix(u.Path, "/")
	if db == "" {
		return "", errors.New("clickhouse dsn missing database")
	}
	if strings.ContainsAny(db, "`/") {
		return "", fmt.Errorf("invalid clickhouse database name %q", db)
	}
	return db, nil
}
