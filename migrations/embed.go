// Package migrations embeds SQL migration files into the binary so
// labstation can migrate its snapshot store without the SQL files
// present on disk.
package migrations

import (
	"embed"

	"github.com/ThorvaldLarsen/labstation/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "." // Files are at root of embedded FS
}
