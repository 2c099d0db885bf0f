// Package database provides connection pool management for PostgreSQL.
//
// The pool backs the shared credential store used when several clients
// (bots, CLI sessions on different hosts) act as the same account.
package database
