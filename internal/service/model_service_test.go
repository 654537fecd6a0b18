package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"llm-builder-console/internal/dto"
	"llm-builder-console/internal/entity"
	"llm-builder-console/internal/pkg/logger"
	"llm-builder-console/pkg/apiclient"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelList(t *testing.T) {
	gw := &stubGateway{}
	gw.do = func(method, path string, body interface{}) (interface{}, error) {
		assert.Equal(t, http.MethodGet, method)
		assert.Equal(t, apiclient.BasePath+"/models", path)
		return []entity.Model{{Id: "m-1", Name: "llama3", Provider: "ollama", ModelId: "llama3:8b"}}, nil
	}

	svc := NewModelService(gw, logger.NopLogger{})
	models, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, "llama3", models[0].Name)
}

func TestModelTestReturnsCompletion(t *testing.T) {
	gw := &stubGateway{}
	gw.do = func(method, path string, body interface{}) (interface{}, error) {
		assert.Equal(t, http.MethodPost, method)
		assert.Equal(t, apiclient.BasePath+"/models/m-1/test", path)
		req, ok := body.(dto.ModelTestRequest)
		require.True(t, ok)
		assert.Equal(t, "say hi", req.Prompt)
		return dto.ModelTestResponse{Response: "hi there"}, nil
	}

	svc := NewModelService(gw, logger.NopLogger{})
	result, err := svc.Test(context.Background(), "m-1", "  say hi  ")
	require.NoError(t, err)
	assert.Equal(t, "hi there", result)
}

func TestModelTestFailureLandsInline(t *testing.T) {
	gw := &stubGateway{}
	gw.do = func(method, path string, body interface{}) (interface{}, error) {
		return nil, errors.New("provider unreachable")
	}

	svc := NewModelService(gw, logger.NopLogger{})
	result, err := svc.Test(context.Background(), "m-1", "say hi")
	require.NoError(t, err, "a backend failure is reported inline, not as an error")
	assert.True(t, strings.HasPrefix(result, "Error: "), "result = %q", result)
	assert.Contains(t, result, "provider unreachable")
}

func TestModelTestRejectsEmptyPrompt(t *testing.T) {
	gw := &stubGateway{}
	svc := NewModelService(gw, logger.NopLogger{})

	for _, prompt := range []string{"", "   ", "\n"} {
		_, err := svc.Test(context.Background(), "m-1", prompt)
		assert.ErrorIs(t, err, ErrEmptyPrompt)
	}
	assert.Zero(t, gw.callCount(), "no request should be issued")
}
