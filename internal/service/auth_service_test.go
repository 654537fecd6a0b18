package service

import (
	"context"
	"net/http"
	"testing"

	"llm-builder-console/internal/dto"
	"llm-builder-console/internal/entity"
	"llm-builder-console/internal/pkg/logger"
	"llm-builder-console/pkg/apiclient"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthLoginStoresTokensThenFetchesUser(t *testing.T) {
	gw := &stubGateway{}
	tokens := &apiclient.MemoryTokenStore{}
	gw.do = func(method, path string, body interface{}) (interface{}, error) {
		switch path {
		case apiclient.LoginPath:
			req := body.(dto.LoginRequest)
			assert.Equal(t, "dev@example.com", req.Email)
			return dto.TokenResponse{AccessToken: "acc", RefreshToken: "ref", TokenType: "bearer"}, nil
		case apiclient.BasePath + "/auth/me":
			// The profile fetch runs with the stored pair already in place.
			pair, ok := tokens.Get()
			require.True(t, ok)
			assert.Equal(t, "acc", pair.Access)
			return entity.User{Id: "u-1", Email: "dev@example.com", Role: "user", IsActive: true}, nil
		}
		t.Fatalf("unexpected call %s %s", method, path)
		return nil, nil
	}

	svc := NewAuthService(gw, tokens, logger.NopLogger{})
	user, err := svc.Login(context.Background(), "dev@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "dev@example.com", user.Email)
	assert.True(t, svc.LoggedIn())
}

func TestAuthLoginValidatesInput(t *testing.T) {
	gw := &stubGateway{}
	svc := NewAuthService(gw, &apiclient.MemoryTokenStore{}, logger.NopLogger{})

	_, err := svc.Login(context.Background(), "not-an-email", "hunter22")
	assert.Error(t, err)
	assert.Zero(t, gw.callCount(), "invalid input must not reach the backend")

	_, err = svc.Login(context.Background(), "dev@example.com", "")
	assert.Error(t, err)
	assert.Zero(t, gw.callCount())
}

func TestAuthRegisterLogsInAfterward(t *testing.T) {
	gw := &stubGateway{}
	tokens := &apiclient.MemoryTokenStore{}
	gw.do = func(method, path string, body interface{}) (interface{}, error) {
		switch path {
		case apiclient.RegisterPath:
			assert.Equal(t, http.MethodPost, method)
			return entity.User{Id: "u-1", Email: "new@example.com"}, nil
		case apiclient.LoginPath:
			return dto.TokenResponse{AccessToken: "acc", RefreshToken: "ref"}, nil
		case apiclient.BasePath + "/auth/me":
			return entity.User{Id: "u-1", Email: "new@example.com", IsActive: true}, nil
		}
		t.Fatalf("unexpected call %s %s", method, path)
		return nil, nil
	}

	svc := NewAuthService(gw, tokens, logger.NopLogger{})
	user, err := svc.Register(context.Background(), "new@example.com", "hunter22", nil)
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", user.Email)
	assert.True(t, svc.LoggedIn())
	assert.Equal(t, 3, gw.callCount(), "register, then login, then profile")
}

func TestAuthLogoutClearsTokens(t *testing.T) {
	tokens := &apiclient.MemoryTokenStore{}
	_ = tokens.Set(entity.TokenPair{Access: "acc", Refresh: "ref"})

	svc := NewAuthService(&stubGateway{}, tokens, logger.NopLogger{})
	require.True(t, svc.LoggedIn())
	require.NoError(t, svc.Logout())
	assert.False(t, svc.LoggedIn())
}
