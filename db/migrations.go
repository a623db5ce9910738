// Package db ships the SQL migrations for the rounds table inside the binary.
package db

import "embed"

//go:embed migrations/*.sql
var Migrations embed.FS
