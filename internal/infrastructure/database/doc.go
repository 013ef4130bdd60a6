// Package database manages the Hearthside SQLite store.
//
// It opens the database with WAL mode and a busy timeout, limits the pool
// to a single writer (SQLite's model), and applies embedded SQL migrations
// on startup. Migration files are named NNNN_description.up.sql and each
// runs in its own transaction.
package database
