package entity

// Deployment pairs a model with an optional knowledge base and prompt
// template. Chat sessions are always created against a deployment.
type Deployment struct {
	Id               string  `json:"id"`
	Name             string  `json:"name"`
	ModelId          string  `json:"model_id"`
	KnowledgeBaseId  *string `json:"knowledge_base_id"`
	PromptTemplateId *string `json:"prompt_template_id"`
	MemoryTurns      string  `json:"memory_turns"`
	Version          string  `json:"version"`
	CreatedAt        string  `json:"created_at"`
}
