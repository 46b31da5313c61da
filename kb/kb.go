// Package kb embeds the default knowledge-base files shipped with the
// server. Operators can point KB_DIR at a directory to override them.
package kb

import "embed"

//go:embed *.json
var Files embed.FS
