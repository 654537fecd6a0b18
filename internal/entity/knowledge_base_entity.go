package entity

type KnowledgeBase struct {
	Id             string                 `json:"id"`
	Name           string                 `json:"name"`
	Description    *string                `json:"description"`
	CollectionName string                 `json:"qdrant_collection_name"`
	Config         map[string]interface{} `json:"config"`
	CreatedAt      string                 `json:"created_at"`
}
