// Package database provides SQLite-based storage for sitewalker.
//
// This package implements the SiteDB, which stores:
//   - Sites and their ordered walker rules
//   - Pages discovered while walking, linked to the page they came from
//   - The per-site work queue, ordered by priority then insertion
//
// The whole crawl state lives in one SQLite file (modernc.org/sqlite).
//
// All access goes through one connection, so a step's reads and writes are
// naturally serialized. Multi-statement mutations (rule replacement, dequeue,
// clearing pages) run inside a transaction.
package database
