// Package store provides the SQLite backend for exported relations.
//
// Each exported relation becomes one table holding the record's JSON
// payload. Re-running an export resets a relation's table rather than
// merging into it, matching the file-backed writer's overwrite semantics.
package store
