package entity

type ToolName string

const (
	ToolSearch     ToolName = "search"
	ToolWikipedia  ToolName = "wikipedia"
	ToolSaveToFile ToolName = "save_text_to_file"
	ToolFetchURL   ToolName = "fetch_url"
)

func (t ToolName) String() string {
	return string(t)
}
