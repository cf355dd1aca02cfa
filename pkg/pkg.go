//nolint:gochecknoglobals
package pkg

import (
	_ "embed"
	"strings"
)

// version is the semantic version of the zero module embedded at build time.
//
//go:embed VERSION
var version string

// Version returns the embedded version without surrounding whitespace. It is
// printed by the CLI when users pass the --version flag.
func Version() string { return strings.TrimSpace(version) }

const (
	// Name is the canonical command and module identifier used across the
	// project. For example, it appears in help text and default config paths.
	Name = "zero"
	// Description is a short, human-readable summary of the project used in
	// help output and documentation.
	Description = "Evaluate zero language modules"
	// Ext is the file extension of zero source modules.
	Ext = ".0"
)

// AuthorInfo represents an individual author's name and email address.
type AuthorInfo struct {
	// Name is the author's preferred name or handle.
	Name string
	// Email is the author's contact email address.
	Email string
}

// Author lists the primary author(s) of the project for display in metadata.
//
//nolint:gochecknoglobals
var Author = []AuthorInfo{
	{"ardnew", "andrew@ardnew.com"},
}
