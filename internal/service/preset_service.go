package service

import (
	"context"
	"net/http"
	"time"

	"llm-builder-console/internal/dto"
	"llm-builder-console/internal/entity"
	"llm-builder-console/internal/pkg/logger"
	"llm-builder-console/pkg/apiclient"
	"llm-builder-console/pkg/ragconfig"

	gocache "github.com/patrickmn/go-cache"
)

const presetCacheKey = "presets"

type IPresetService interface {
	List(ctx context.Context) ([]entity.RagPreset, error)
	Create(ctx context.Context, req dto.PresetCreateRequest) (*entity.RagPreset, error)
	Update(ctx context.Context, presetID string, req dto.PresetUpdateRequest) (*entity.RagPreset, error)
	Delete(ctx context.Context, presetID string) error
	// Lookup returns a pure snapshot-backed resolver input for ragconfig.
	Lookup(ctx context.Context) (ragconfig.PresetLookup, error)
}

// presetService caches the preset list for a short TTL: the resolver runs
// on every form keystroke in the original UI, and the list changes rarely.
// Any mutation invalidates the cache.
type presetService struct {
	gateway apiclient.IGateway
	log     logger.ILogger
	cache   *gocache.Cache
}

func NewPresetService(gateway apiclient.IGateway, log logger.ILogger, ttl time.Duration) IPresetService {
	return &presetService{
		gateway: gateway,
		log:     log,
		cache:   gocache.New(ttl, 2*ttl),
	}
}

func (s *presetService) List(ctx context.Context) ([]entity.RagPreset, error) {
	if cached, ok := s.cache.Get(presetCacheKey); ok {
		return cached.([]entity.RagPreset), nil
	}

	var presets []entity.RagPreset
	if err := s.gateway.Do(ctx, http.MethodGet, apiclient.BasePath+"/rag-configs", nil, &presets); err != nil {
		return nil, err
	}
	s.cache.SetDefault(presetCacheKey, presets)
	return presets, nil
}

func (s *presetService) Create(ctx context.Context, req dto.PresetCreateRequest) (*entity.RagPreset, error) {
	var preset entity.RagPreset
	if err := s.gateway.Do(ctx, http.MethodPost, apiclient.BasePath+"/rag-configs", req, &preset); err != nil {
		return nil, err
	}
	s.cache.Delete(presetCacheKey)
	return &preset, nil
}

func (s *presetService) Update(ctx context.Context, presetID string, req dto.PresetUpdateRequest) (*entity.RagPreset, error) {
	var preset entity.RagPreset
	if err := s.gateway.Do(ctx, http.MethodPatch, apiclient.BasePath+"/rag-configs/"+presetID, req, &preset); err != nil {
		return nil, err
	}
	s.cache.Delete(presetCacheKey)
	return &preset, nil
}

func (s *presetService) Delete(ctx context.Context, presetID string) error {
	if err := s.gateway.Do(ctx, http.MethodDelete, apiclient.BasePath+"/rag-configs/"+presetID, nil, nil); err != nil {
		return err
	}
	s.cache.Delete(presetCacheKey)
	return nil
}

func (s *presetService) Lookup(ctx context.Context) (ragconfig.PresetLookup, error) {
	presets, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]map[string]interface{}, len(presets))
	for _, p := range presets {
		byID[p.Id] = p.Config
	}
	return func(presetID string) (map[string]interface{}, bool) {
		cfg, ok := byID[presetID]
		return cfg, ok
	}, nil
}
