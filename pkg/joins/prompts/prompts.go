// Package prompts embeds the join analyzer prompt files.
package prompts

import "embed"

//go:embed *.md
var PromptsFS embed.FS
