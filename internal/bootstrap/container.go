package bootstrap

import (
	"fmt"
	"net/http"

	"llm-builder-console/internal/config"
	"llm-builder-console/internal/pkg/logger"
	"llm-builder-console/internal/service"
	"llm-builder-console/internal/tracer"
	"llm-builder-console/pkg/apiclient"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Container struct {
	Logger logger.ILogger
	Tokens apiclient.ITokenStore

	AuthService       service.IAuthService
	KnowledgeService  service.IKnowledgeService
	PresetService     service.IPresetService
	ModelService      service.IModelService
	DeploymentService service.IDeploymentService
	UploadCoordinator service.IUploadCoordinator
	IngestTracker     *service.IngestTracker
	ChatStore         service.IChatStore
}

func NewContainer(cfg *config.Config) (*Container, error) {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, false)

	tokens, err := apiclient.NewFileTokenStore(cfg.API.TokenFilePath)
	if err != nil {
		return nil, fmt.Errorf("open token store: %w", err)
	}

	// 2. Gateway
	opts := []apiclient.Option{
		apiclient.WithTimeout(cfg.API.RequestTimeout),
		apiclient.WithRefreshSkew(cfg.API.RefreshSkew),
	}
	if tracer.Enabled() {
		opts = append(opts, apiclient.WithTransport(otelhttp.NewTransport(http.DefaultTransport)))
	}
	gateway := apiclient.NewClient(cfg.API.BaseURL, tokens, sysLogger, opts...)

	// 3. Services
	knowledgeService := service.NewKnowledgeService(gateway, sysLogger)

	return &Container{
		Logger:            sysLogger,
		Tokens:            tokens,
		AuthService:       service.NewAuthService(gateway, tokens, sysLogger),
		KnowledgeService:  knowledgeService,
		PresetService:     service.NewPresetService(gateway, sysLogger, cfg.Ingest.PresetCacheTTL),
		ModelService:      service.NewModelService(gateway, sysLogger),
		DeploymentService: service.NewDeploymentService(gateway),
		UploadCoordinator: service.NewUploadCoordinator(gateway, sysLogger, cfg.API.UploadTimeout),
		IngestTracker:     service.NewIngestTracker(knowledgeService.ListDocuments, cfg.Ingest.PollInterval, sysLogger),
		ChatStore:         service.NewChatStore(gateway, sysLogger),
	}, nil
}
