// Package testdb provides utilities for PostgreSQL integration tests:
// locating the test database, applying the embedded migrations, and running
// each test inside a transaction that is always rolled back.
package testdb
