package dto

type KnowledgeBaseCreateRequest struct {
	Name        string                 `json:"name" validate:"required"`
	Description *string                `json:"description,omitempty"`
	Config      map[string]interface{} `json:"config,omitempty"`
	PresetId    string                 `json:"preset_id,omitempty"`
}

type KnowledgeBaseUpdateRequest struct {
	Name        *string                `json:"name,omitempty"`
	Description *string                `json:"description,omitempty"`
	Config      map[string]interface{} `json:"config,omitempty"`
	PresetId    string                 `json:"preset_id,omitempty"`
}

type DocumentUpdateRequest struct {
	Name     *string                `json:"name,omitempty"`
	Config   map[string]interface{} `json:"config,omitempty"`
	PresetId string                 `json:"preset_id,omitempty"`
}
