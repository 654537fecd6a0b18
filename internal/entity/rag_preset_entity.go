package entity

// RagPreset is a named, reusable chunking/embedding configuration. Its
// identity is independent of any knowledge base.
type RagPreset struct {
	Id          string                 `json:"id"`
	Name        string                 `json:"name"`
	Description *string                `json:"description"`
	Config      map[string]interface{} `json:"config"`
	CreatedAt   string                 `json:"created_at"`
}
