// Package migrations holds the schema of the quiz service, applied with bun/migrate.
package migrations

import "github.com/uptrace/bun/migrate"

var Migrations = migrate.NewMigrations()
