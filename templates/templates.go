// Package templates embeds the mapping-template skeletons rendered by the
// built-in transformers.
package templates

import "embed"

//go:embed vtl/*.vtl
var FS embed.FS
