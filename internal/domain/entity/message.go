package entity

type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleTool      MessageRole = "tool"
)

type ContentType string

const (
	ContentTypeText     ContentType = "text"
	ContentTypeThinking ContentType = "thinking"
	ContentTypeToolUse  ContentType = "tool_use"
)

// ContentBlock is one typed piece of an assistant message. Only text blocks
// are surfaced to the normalizer as agent output.
type ContentBlock struct {
	Type     ContentType `json:"type"`
	Text     string      `json:"text,omitempty"`
	Thinking string      `json:"thinking,omitempty"`
	ToolUse  *ToolCall   `json:"tool_use,omitempty"`
}

type Message struct {
	Role          MessageRole
	Content       string
	ContentBlocks []ContentBlock
	ToolCalls     []ToolCall
	ToolCallID    string
	Name          string
}

type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
}
