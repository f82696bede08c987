package store

import "embed"

// Migrations holds the goose SQL migrations; pass it to pg.Migrate with
// MigrationsDir.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations.
const MigrationsDir = "migrations"
