package service

import (
	"context"
	"net/http"

	"llm-builder-console/internal/dto"
	"llm-builder-console/internal/entity"
	"llm-builder-console/internal/pkg/logger"
	"llm-builder-console/pkg/apiclient"

	"github.com/go-playground/validator/v10"
)

type IAuthService interface {
	Login(ctx context.Context, email, password string) (*entity.User, error)
	Register(ctx context.Context, email, password string, fullName *string) (*entity.User, error)
	Me(ctx context.Context) (*entity.User, error)
	Logout() error
	LoggedIn() bool
}

type authService struct {
	gateway  apiclient.IGateway
	tokens   apiclient.ITokenStore
	log      logger.ILogger
	validate *validator.Validate
}

func NewAuthService(gateway apiclient.IGateway, tokens apiclient.ITokenStore, log logger.ILogger) IAuthService {
	return &authService{
		gateway:  gateway,
		tokens:   tokens,
		log:      log,
		validate: validator.New(),
	}
}

func (s *authService) Login(ctx context.Context, email, password string) (*entity.User, error) {
	req := dto.LoginRequest{Email: email, Password: password}
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}

	// 1. Exchange credentials for a token pair.
	var tokens dto.TokenResponse
	if err := s.gateway.Do(ctx, http.MethodPost, apiclient.LoginPath, req, &tokens); err != nil {
		return nil, err
	}
	if err := s.tokens.Set(entity.TokenPair{Access: tokens.AccessToken, Refresh: tokens.RefreshToken}); err != nil {
		return nil, err
	}

	// 2. Fetch the user record with the fresh session.
	user, err := s.Me(ctx)
	if err != nil {
		return nil, err
	}
	s.log.Info("auth", "logged in", map[string]interface{}{"email": user.Email})
	return user, nil
}

func (s *authService) Register(ctx context.Context, email, password string, fullName *string) (*entity.User, error) {
	req := dto.RegisterRequest{Email: email, Password: password, FullName: fullName}
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}

	var user entity.User
	if err := s.gateway.Do(ctx, http.MethodPost, apiclient.RegisterPath, req, &user); err != nil {
		return nil, err
	}
	// Registration does not return tokens; log in with the same credentials.
	return s.Login(ctx, email, password)
}

func (s *authService) Me(ctx context.Context) (*entity.User, error) {
	var user entity.User
	if err := s.gateway.Do(ctx, http.MethodGet, apiclient.BasePath+"/auth/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Logout erases the stored pair. The backend keeps no session state beyond
// the tokens themselves.
func (s *authService) Logout() error {
	s.log.Info("auth", "logged out", nil)
	return s.tokens.Clear()
}

func (s *authService) LoggedIn() bool {
	_, ok := s.tokens.Get()
	return ok
}
