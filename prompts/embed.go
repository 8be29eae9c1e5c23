// Package prompts ships the default prompt templates. A PROMPTS_DIR on disk
// overrides them file by file.
package prompts

import "embed"

//go:embed *.tmpl
var FS embed.FS
