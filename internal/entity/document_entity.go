package entity

type DocumentStatus string

const (
	DocumentStatusPending    DocumentStatus = "pending"
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusCompleted  DocumentStatus = "completed"
	DocumentStatusFailed     DocumentStatus = "failed"
)

// Active reports whether the backend is still working on the document.
// completed and failed are terminal absent an explicit re-ingest.
func (s DocumentStatus) Active() bool {
	return s == DocumentStatusPending || s == DocumentStatusProcessing
}

type Document struct {
	Id              string                 `json:"id"`
	KnowledgeBaseId string                 `json:"knowledge_base_id"`
	Name            string                 `json:"name"`
	SourceType      string                 `json:"source_type"`
	Status          DocumentStatus         `json:"status"`
	ErrorMessage    *string                `json:"error_message"`
	Config          map[string]interface{} `json:"config"`
	CreatedAt       string                 `json:"created_at"`
}
