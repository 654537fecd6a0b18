package entity

// Model is one registry entry: a base or fine-tuned model reachable through
// a provider endpoint. Deployments reference models by id.
type Model struct {
	Id          string                 `json:"id"`
	Name        string                 `json:"name"`
	ModelType   string                 `json:"model_type"`
	Provider    string                 `json:"provider"`
	EndpointUrl *string                `json:"endpoint_url"`
	ModelId     string                 `json:"model_id"`
	Version     *string                `json:"version"`
	Config      map[string]interface{} `json:"config"`
	CreatedAt   string                 `json:"created_at"`
}
