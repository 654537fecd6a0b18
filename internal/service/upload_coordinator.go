package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"llm-builder-console/internal/entity"
	"llm-builder-console/internal/pkg/logger"
	"llm-builder-console/pkg/apiclient"
	"llm-builder-console/pkg/ragconfig"
)

// Only types the ingest worker can parse.
var allowedUploadExtensions = map[string]bool{
	".txt": true, ".pdf": true, ".docx": true, ".doc": true, ".html": true, ".htm": true,
}

type UploadResult struct {
	Path     string
	Document *entity.Document
	Err      error
}

type IUploadCoordinator interface {
	Upload(ctx context.Context, kbID string, paths []string, cfg *ragconfig.Config, presetID string) []UploadResult
}

// uploadCoordinator sends files one at a time: sequencing bounds backend
// load and keeps per-file error attribution unambiguous. The batch is
// best-effort, not transactional; a failure on one file does not stop the
// rest.
type uploadCoordinator struct {
	gateway apiclient.IGateway
	log     logger.ILogger
	timeout time.Duration
}

func NewUploadCoordinator(gateway apiclient.IGateway, log logger.ILogger, perFileTimeout time.Duration) IUploadCoordinator {
	return &uploadCoordinator{gateway: gateway, log: log, timeout: perFileTimeout}
}

func (c *uploadCoordinator) Upload(ctx context.Context, kbID string, paths []string, cfg *ragconfig.Config, presetID string) []UploadResult {
	fields := map[string]string{}
	if presetID != "" {
		fields["preset_id"] = presetID
	}
	if cfg != nil {
		// The resolved config rides along as a JSON-encoded form field next
		// to the binary payload.
		encoded, err := json.Marshal(cfg.ToMap())
		if err == nil {
			fields["config"] = string(encoded)
		}
	}

	results := make([]UploadResult, 0, len(paths))
	for _, path := range paths {
		doc, err := c.uploadOne(ctx, kbID, path, fields)
		if err != nil {
			c.log.Warn("upload", "file upload failed", map[string]interface{}{"path": path, "error": err.Error()})
		}
		results = append(results, UploadResult{Path: path, Document: doc, Err: err})
		if ctx.Err() != nil {
			break
		}
	}
	return results
}

func (c *uploadCoordinator) uploadOne(ctx context.Context, kbID, path string, fields map[string]string) (*entity.Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !allowedUploadExtensions[ext] {
		return nil, fmt.Errorf("unsupported file type %q", ext)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	uploadCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		uploadCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var doc entity.Document
	file := apiclient.UploadFile{FileName: filepath.Base(path), Content: content}
	if err := c.gateway.Upload(uploadCtx, apiclient.BasePath+"/knowledge-bases/"+kbID+"/upload", file, fields, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}
