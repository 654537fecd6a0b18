package entity

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type ChatSession struct {
	Id           string `json:"id"`
	DeploymentId string `json:"deployment_id"`
	Title        string `json:"title"`
	UpdatedAt    string `json:"updated_at"`
}

type Citation struct {
	Text   string  `json:"text"`
	Source string  `json:"source"`
	Score  float64 `json:"score"`
}

// ChatMessage is one turn in a session log. Messages synthesized locally
// (the echoed user turn and the assistant turn of the round that produced
// it) carry Local=true and a client-generated id until the next refetch
// replaces them with server state.
type ChatMessage struct {
	Id        string     `json:"id"`
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	Citations []Citation `json:"citations"`
	CreatedAt string     `json:"created_at"`
	Local     bool       `json:"-"`
}
