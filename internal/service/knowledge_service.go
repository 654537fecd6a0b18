package service

import (
	"context"
	"net/http"

	"llm-builder-console/internal/dto"
	"llm-builder-console/internal/entity"
	"llm-builder-console/internal/pkg/logger"
	"llm-builder-console/pkg/apiclient"
	"llm-builder-console/pkg/ragconfig"
)

type IKnowledgeService interface {
	ListBases(ctx context.Context) ([]entity.KnowledgeBase, error)
	GetBase(ctx context.Context, kbID string) (*entity.KnowledgeBase, error)
	CreateBase(ctx context.Context, name string, description *string, cfg *ragconfig.Config, presetID string) (*entity.KnowledgeBase, error)
	UpdateBase(ctx context.Context, kbID string, req dto.KnowledgeBaseUpdateRequest) (*entity.KnowledgeBase, error)
	DeleteBase(ctx context.Context, kbID string) error
	ListDocuments(ctx context.Context, kbID string) ([]entity.Document, error)
	UpdateDocument(ctx context.Context, kbID, docID string, req dto.DocumentUpdateRequest) (*entity.Document, error)
	DeleteDocument(ctx context.Context, kbID, docID string) error
	// Reingest asks the backend to reset a document to pending and run the
	// pipeline again. This is the only way a failed document leaves its
	// terminal state.
	Reingest(ctx context.Context, kbID, docID string) (*entity.Document, error)
}

type knowledgeService struct {
	gateway apiclient.IGateway
	log     logger.ILogger
}

func NewKnowledgeService(gateway apiclient.IGateway, log logger.ILogger) IKnowledgeService {
	return &knowledgeService{gateway: gateway, log: log}
}

func (s *knowledgeService) ListBases(ctx context.Context) ([]entity.KnowledgeBase, error) {
	var bases []entity.KnowledgeBase
	if err := s.gateway.Do(ctx, http.MethodGet, apiclient.BasePath+"/knowledge-bases", nil, &bases); err != nil {
		return nil, err
	}
	return bases, nil
}

func (s *knowledgeService) GetBase(ctx context.Context, kbID string) (*entity.KnowledgeBase, error) {
	var kb entity.KnowledgeBase
	if err := s.gateway.Do(ctx, http.MethodGet, apiclient.BasePath+"/knowledge-bases/"+kbID, nil, &kb); err != nil {
		return nil, err
	}
	return &kb, nil
}

func (s *knowledgeService) CreateBase(ctx context.Context, name string, description *string, cfg *ragconfig.Config, presetID string) (*entity.KnowledgeBase, error) {
	req := dto.KnowledgeBaseCreateRequest{
		Name:        name,
		Description: description,
		PresetId:    presetID,
	}
	if cfg != nil {
		if err := ragconfig.Validate(*cfg); err != nil {
			return nil, err
		}
		req.Config = cfg.ToMap()
	}

	var kb entity.KnowledgeBase
	if err := s.gateway.Do(ctx, http.MethodPost, apiclient.BasePath+"/knowledge-bases", req, &kb); err != nil {
		return nil, err
	}
	s.log.Info("knowledge", "knowledge base created", map[string]interface{}{"id": kb.Id, "name": kb.Name})
	return &kb, nil
}

func (s *knowledgeService) UpdateBase(ctx context.Context, kbID string, req dto.KnowledgeBaseUpdateRequest) (*entity.KnowledgeBase, error) {
	var kb entity.KnowledgeBase
	if err := s.gateway.Do(ctx, http.MethodPatch, apiclient.BasePath+"/knowledge-bases/"+kbID, req, &kb); err != nil {
		return nil, err
	}
	return &kb, nil
}

func (s *knowledgeService) DeleteBase(ctx context.Context, kbID string) error {
	return s.gateway.Do(ctx, http.MethodDelete, apiclient.BasePath+"/knowledge-bases/"+kbID, nil, nil)
}

func (s *knowledgeService) ListDocuments(ctx context.Context, kbID string) ([]entity.Document, error) {
	var docs []entity.Document
	if err := s.gateway.Do(ctx, http.MethodGet, apiclient.BasePath+"/knowledge-bases/"+kbID+"/documents", nil, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (s *knowledgeService) UpdateDocument(ctx context.Context, kbID, docID string, req dto.DocumentUpdateRequest) (*entity.Document, error) {
	var doc entity.Document
	if err := s.gateway.Do(ctx, http.MethodPatch, apiclient.BasePath+"/knowledge-bases/"+kbID+"/documents/"+docID, req, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (s *knowledgeService) DeleteDocument(ctx context.Context, kbID, docID string) error {
	return s.gateway.Do(ctx, http.MethodDelete, apiclient.BasePath+"/knowledge-bases/"+kbID+"/documents/"+docID, nil, nil)
}

func (s *knowledgeService) Reingest(ctx context.Context, kbID, docID string) (*entity.Document, error) {
	var doc entity.Document
	if err := s.gateway.Do(ctx, http.MethodPost, apiclient.BasePath+"/knowledge-bases/"+kbID+"/documents/"+docID+"/ingest", nil, &doc); err != nil {
		return nil, err
	}
	s.log.Info("knowledge", "re-ingest requested", map[string]interface{}{"kb": kbID, "doc": docID})
	return &doc, nil
}
