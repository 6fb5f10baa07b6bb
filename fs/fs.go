package appfs

import "embed"

// FS embeds the database migrations so binaries can migrate
// without shipping the source tree.
//go:embed migrations
var FS embed.FS
