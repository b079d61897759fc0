package service

import (
	"research-agent/internal/application/port/output"
	"research-agent/internal/domain/entity"
)

var _ output.ToolRegistry = (*ToolRegistryImpl)(nil)

// ToolRegistryImpl keeps tools in registration order so the prompt and the
// tool definitions sent to the model are stable between runs.
type ToolRegistryImpl struct {
	tools map[string]output.ToolPort
	order []string
}

func NewToolRegistry() *ToolRegistryImpl {
	return &ToolRegistryImpl{
		tools: make(map[string]output.ToolPort),
	}
}

func (r *ToolRegistryImpl) Register(tool output.ToolPort) {
	name := tool.Name()
	if _, exists := r.tools[name]; !exists {
		r.order = append(r.order, name)
	}
	r.tools[name] = tool
}

func (r *ToolRegistryImpl) Get(name string) (output.ToolPort, bool) {
	tool, ok := r.tools[name]
	return tool, ok
}

func (r *ToolRegistryImpl) All() []output.ToolPort {
	result := make([]output.ToolPort, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.tools[name])
	}
	return result
}

func (r *ToolRegistryImpl) Definitions() []entity.ToolDefinition {
	result := make([]entity.ToolDefinition, 0, len(r.order))
	for _, tool := range r.All() {
		result = append(result, entity.ToolDefinition{
			Name:        tool.Name(),
			Description: tool.Description(),
			Parameters:  tool.Parameters(),
		})
	}
	return result
}
