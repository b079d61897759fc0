package prompts

import (
	_ "embed"
)

//go:embed system.txt
var SystemPromptTemplate string

// mrklToolsSection is appended to the system prompt for text-based agents,
// which learn about tools only through the prompt.
const mrklToolsSection = `

You have access to the following tools:

{{.tool_descriptions}}`
