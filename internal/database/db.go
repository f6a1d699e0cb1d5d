// Package database opens the configured store and prepares its schema:
// MongoDB with its indexes, or MySQL with the embedded migrations.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Open connects to MySQL and pings it before returning.
//
// Every auth request does at most a few short primary-key or unique-index
// lookups, so a small pool with equal open and idle limits keeps warm
// connections without queueing bcrypt-bound requests behind the database.
func Open(user, pass, host, port, name string) (*sql.DB, error) {
	db, err := sql.Open("mysql", mysqlDSN(user, pass, host, port, name))
	if err != nil {
		return nil, fmt.Errorf("mysql open: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("mysql ping: %w", err)
	}
	return db, nil
}

// clientFoundRows makes UPDATE report matched rows, so saving an
// unchanged user is not mistaken for a missing one.
func mysqlDSN(user, pass, host, port, name string) string {
	creds := user
	if pass != "" {
		creds = fmt.Sprintf("%s:%s", user, pass)
	}
	return fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC&clientFoundRows=true",
		creds, host, port, name)
}
