package dto

type DeploymentCreateRequest struct {
	Name             string  `json:"name" validate:"required"`
	ModelId          string  `json:"model_id" validate:"required"`
	KnowledgeBaseId  *string `json:"knowledge_base_id,omitempty"`
	PromptTemplateId *string `json:"prompt_template_id,omitempty"`
	MemoryTurns      string  `json:"memory_turns,omitempty"`
}
