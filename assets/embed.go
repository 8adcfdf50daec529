// Package assets bundles static files compiled into the server binary:
// the default curated idiom corpus and the SQLite migrations.
package assets

import (
	"embed"
	"io/fs"
)

//go:embed idioms.json
var curated []byte

//go:embed sql/*.sql
var migrations embed.FS

// CuratedCorpus returns the embedded curated corpus (lib.json form).
func CuratedCorpus() []byte {
	return curated
}

// Migrations returns the SQL migration files rooted at the sql directory.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrations, "sql")
	if err != nil {
		// sql/ is embedded above, so Sub cannot fail.
		panic(err)
	}
	return sub
}
