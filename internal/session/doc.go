// Package session persists the bearer credential used by the REST client and
// the realtime connection.
//
// A Store is a small cookie-jar style key/value store. The credential lives
// under a single fixed key (TokenKey) and goes through three transitions:
// written after a successful login, read before every request and realtime
// connection, erased on logout or when the backend rejects it.
//
// Backends:
//   - MemoryStore: process-local, used by tests and one-shot commands
//   - FileStore: signed (optionally encrypted) cookie file via gorilla/securecookie
//   - SQLiteStore: local database file via modernc.org/sqlite
//   - PostgresStore: shared table via pgx, for several clients acting as one account
package session
