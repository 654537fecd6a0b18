package service

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"llm-builder-console/internal/dto"
	"llm-builder-console/internal/entity"
	"llm-builder-console/internal/pkg/logger"
	"llm-builder-console/pkg/apiclient"
)

var ErrEmptyPrompt = errors.New("test prompt is empty")

type IModelService interface {
	List(ctx context.Context) ([]entity.Model, error)
	// Test sends one prompt through the model and returns its completion. A
	// backend failure is reported inline as "Error: ..." rather than as an
	// error, the same way a failed chat round lands in the assistant slot.
	Test(ctx context.Context, modelID, prompt string) (string, error)
}

type modelService struct {
	gateway apiclient.IGateway
	log     logger.ILogger
}

func NewModelService(gateway apiclient.IGateway, log logger.ILogger) IModelService {
	return &modelService{gateway: gateway, log: log}
}

func (s *modelService) List(ctx context.Context) ([]entity.Model, error) {
	var models []entity.Model
	if err := s.gateway.Do(ctx, http.MethodGet, apiclient.BasePath+"/models", nil, &models); err != nil {
		return nil, err
	}
	return models, nil
}

func (s *modelService) Test(ctx context.Context, modelID, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", ErrEmptyPrompt
	}

	var resp dto.ModelTestResponse
	err := s.gateway.Do(ctx, http.MethodPost, apiclient.BasePath+"/models/"+modelID+"/test", dto.ModelTestRequest{Prompt: prompt}, &resp)
	if err != nil {
		s.log.Warn("model", "test run failed", map[string]interface{}{"model": modelID, "error": err.Error()})
		return "Error: " + err.Error(), nil
	}
	return resp.Response, nil
}
