// Package prompts embeds the synthesis prompt files.
package prompts

import "embed"

//go:embed *.md
var PromptsFS embed.FS
