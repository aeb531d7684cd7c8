// Package sql embeds the planner's read-model schemas.
package sql

import (
	"embed"
)

//go:embed postgres/*.sql
//go:embed clickhouse/*.sql
var Content embed.FS
