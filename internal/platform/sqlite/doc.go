// Package sqlite provides an embedded implementation of store.TaskStore on
// GORM and SQLite. It suits single-node deployments and fast relational
// tests. The schema is created with GORM's AutoMigrate and deletes are soft,
// using gorm.DeletedAt.
package sqlite
