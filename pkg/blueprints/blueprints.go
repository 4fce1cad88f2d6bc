// Package blueprints ships the built-in project blueprints. A blueprint is
// a directory containing an option schema (template.json), a renderable
// project tree under project/, and an optional Starlark post-generation hook
// under hooks/.
package blueprints

import (
	"embed"
	"fmt"
	"io/fs"
)

//go:embed all:datascience
var embedded embed.FS

// DefaultName is the name of the built-in data-science blueprint.
const DefaultName = "datascience"

// Default returns the built-in data-science blueprint filesystem, rooted at
// the blueprint directory.
func Default() fs.FS {
	sub, err := fs.Sub(embedded, DefaultName)
	if err != nil {
		// The embedded tree is fixed at compile time.
		panic(fmt.Sprintf("embedded blueprint missing: %v", err))
	}
	return sub
}
