// Package model provides the shared record types for firelift.
//
// This package contains type definitions only. All other internal packages
// import model; model imports nothing internal. This keeps the record types
// the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - A FunctionRecord is a per-run, disposable computation - it is never
//     persisted or mutated after the scanner produces it
//   - All JSON tags use snake_case
//   - Report buckets (migrated, failed, skipped) are disjoint per function name
package model
