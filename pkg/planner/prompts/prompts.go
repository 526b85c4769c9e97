// Package prompts embeds the planner prompt files.
package prompts

import "embed"

//go:embed *.md
var PromptsFS embed.FS
