package dto

import "llm-builder-console/internal/entity"

type SessionCreateRequest struct {
	DeploymentId string `json:"deployment_id" validate:"required"`
	Title        string `json:"title,omitempty"`
}

type SessionCreateResponse struct {
	Id           string `json:"id"`
	DeploymentId string `json:"deployment_id"`
	Title        string `json:"title"`
}

type SessionUpdateRequest struct {
	Title string `json:"title" validate:"required"`
}

type SendMessageRequest struct {
	Content string `json:"content" validate:"required"`
}

type SendMessageResponse struct {
	Response  string            `json:"response"`
	Citations []entity.Citation `json:"citations"`
	MessageId string            `json:"message_id"`
}
