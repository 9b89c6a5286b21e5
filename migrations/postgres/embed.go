// Package postgres embeds the SQL schema migrations.
package postgres

import "embed"

// SchemaFS contains the account schema migrations.
//
//go:embed schema/*.sql
var SchemaFS embed.FS

// SchemaDir is the directory within SchemaFS where migrations live.
const SchemaDir = "schema"
