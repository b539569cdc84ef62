// importer loads the platform-access workbook into Postgres.
package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/xela07ax/cintia-dashboard/internal/importer"
)

func main() {
	_ = godotenv.Load()
	os.Exit(importer.Execute())
}
