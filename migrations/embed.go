package migrations

import "embed"

// Files exposes embedded SQL migration files ordered lexicographically.
// The sqlite/ subtree carries the local-fallback schema and is skipped
// by the Postgres migration runner.
//
//go:embed *.sql sqlite/*.sql
var Files embed.FS
