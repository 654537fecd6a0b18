package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"llm-builder-console/internal/dto"
	"llm-builder-console/internal/entity"
	"llm-builder-console/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresetListIsCached(t *testing.T) {
	gw := &stubGateway{}
	gw.do = func(method, path string, body interface{}) (interface{}, error) {
		return []entity.RagPreset{{Id: "p-1", Name: "bge-small"}}, nil
	}
	svc := NewPresetService(gw, logger.NopLogger{}, time.Minute)

	first, err := svc.List(context.Background())
	require.NoError(t, err)
	second, err := svc.List(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, gw.callCount(), "second List must come from the cache")
}

func TestPresetMutationInvalidatesCache(t *testing.T) {
	gw := &stubGateway{}
	gw.do = func(method, path string, body interface{}) (interface{}, error) {
		if method == http.MethodPost {
			return entity.RagPreset{Id: "p-2", Name: "fresh"}, nil
		}
		return []entity.RagPreset{{Id: "p-1"}}, nil
	}
	svc := NewPresetService(gw, logger.NopLogger{}, time.Minute)

	_, err := svc.List(context.Background())
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), dto.PresetCreateRequest{Name: "fresh"})
	require.NoError(t, err)
	_, err = svc.List(context.Background())
	require.NoError(t, err)

	// list, create, list again (cache was dropped by the create).
	assert.Equal(t, 3, gw.callCount())
}

func TestPresetLookupSnapshot(t *testing.T) {
	gw := &stubGateway{}
	gw.do = func(method, path string, body interface{}) (interface{}, error) {
		return []entity.RagPreset{
			{Id: "p-1", Config: map[string]interface{}{"chunk_size": float64(256)}},
		}, nil
	}
	svc := NewPresetService(gw, logger.NopLogger{}, time.Minute)

	lookup, err := svc.Lookup(context.Background())
	require.NoError(t, err)

	cfg, ok := lookup("p-1")
	require.True(t, ok)
	assert.Equal(t, float64(256), cfg["chunk_size"])

	_, ok = lookup("missing")
	assert.False(t, ok)
}
