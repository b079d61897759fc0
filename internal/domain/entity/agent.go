package entity

import (
	"encoding/json"
	"fmt"
)

type AgentBackend string

const (
	AgentBackendOpenAI AgentBackend = "openai"
	AgentBackendOllama AgentBackend = "ollama"
)

// AgentStep records a single tool invocation made by the agent.
type AgentStep struct {
	Tool        string `json:"tool"`
	ToolInput   string `json:"tool_input"`
	Observation string `json:"observation"`
}

// AgentResult is what an agent run hands back. Output is deliberately
// untyped: a string, a list of content blocks, or nil.
type AgentResult struct {
	Output            any         `json:"output"`
	IntermediateSteps []AgentStep `json:"intermediate_steps,omitempty"`
}

func (r *AgentResult) String() string {
	if r == nil {
		return "<nil>"
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Sprintf("%+v", *r)
	}
	return string(data)
}
