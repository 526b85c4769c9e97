// Package prompts embeds the validator prompt files.
package prompts

import "embed"

//go:embed *.md
var PromptsFS embed.FS
