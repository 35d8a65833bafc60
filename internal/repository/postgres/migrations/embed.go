package migrations

import "embed"

// FS holds the Postgres schema migrations, named NNN_description.sql and
// applied in version order.
//
//go:embed *.sql
var FS embed.FS
