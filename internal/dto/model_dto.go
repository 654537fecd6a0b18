package dto

type ModelTestRequest struct {
	Prompt string `json:"prompt" validate:"required"`
}

type ModelTestResponse struct {
	Response string `json:"response"`
}
