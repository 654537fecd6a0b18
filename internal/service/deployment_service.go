package service

import (
	"context"
	"net/http"

	"llm-builder-console/internal/dto"
	"llm-builder-console/internal/entity"
	"llm-builder-console/pkg/apiclient"
)

type IDeploymentService interface {
	List(ctx context.Context) ([]entity.Deployment, error)
	Create(ctx context.Context, req dto.DeploymentCreateRequest) (*entity.Deployment, error)
	Delete(ctx context.Context, deploymentID string) error
}

type deploymentService struct {
	gateway apiclient.IGateway
}

func NewDeploymentService(gateway apiclient.IGateway) IDeploymentService {
	return &deploymentService{gateway: gateway}
}

func (s *deploymentService) List(ctx context.Context) ([]entity.Deployment, error) {
	var deployments []entity.Deployment
	if err := s.gateway.Do(ctx, http.MethodGet, apiclient.BasePath+"/deployments", nil, &deployments); err != nil {
		return nil, err
	}
	return deployments, nil
}

func (s *deploymentService) Create(ctx context.Context, req dto.DeploymentCreateRequest) (*entity.Deployment, error) {
	var deployment entity.Deployment
	if err := s.gateway.Do(ctx, http.MethodPost, apiclient.BasePath+"/deployments", req, &deployment); err != nil {
		return nil, err
	}
	return &deployment, nil
}

func (s *deploymentService) Delete(ctx context.Context, deploymentID string) error {
	return s.gateway.Do(ctx, http.MethodDelete, apiclient.BasePath+"/deployments/"+deploymentID, nil, nil)
}
