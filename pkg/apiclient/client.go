package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"llm-builder-console/internal/dto"
	"llm-builder-console/internal/entity"
	"llm-builder-console/internal/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"
)

const (
	BasePath     = "/api/v1"
	LoginPath    = BasePath + "/auth/login"
	RegisterPath = BasePath + "/auth/register"
	RefreshPath  = BasePath + "/auth/refresh"
)

// IGateway is the single choke point for backend HTTP. It attaches bearer
// auth, refreshes tokens transparently and normalizes every failure into
// *APIError.
type IGateway interface {
	Do(ctx context.Context, method, path string, body, out interface{}) error
	Upload(ctx context.Context, path string, file UploadFile, fields map[string]string, out interface{}) error
}

// UploadFile is one multipart file payload.
type UploadFile struct {
	FieldName string // defaults to "file"
	FileName  string
	Content   []byte
}

type Client struct {
	baseURL     string
	httpClient  *http.Client
	tokens      ITokenStore
	log         logger.ILogger
	timeout     time.Duration
	refreshSkew time.Duration

	// refreshGroup coalesces concurrent refreshes: when several requests
	// observe a 401 at once only one refresh call is issued and all callers
	// share its outcome.
	refreshGroup singleflight.Group
}

var _ IGateway = &Client{}

type Option func(*Client)

// WithTransport replaces the underlying RoundTripper (e.g. an otelhttp
// wrapper, or a recording transport in tests).
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.httpClient.Transport = rt }
}

// WithTimeout caps requests whose context carries no deadline of its own.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithRefreshSkew sets how close to expiry the access token may get before
// a request triggers a proactive refresh. Zero disables the pre-flight
// check; the 401 path still works.
func WithRefreshSkew(d time.Duration) Option {
	return func(c *Client) { c.refreshSkew = d }
}

func NewClient(baseURL string, tokens ITokenStore, log logger.ILogger, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{},
		tokens:     tokens,
		log:        log,
		timeout:    30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do performs one logical JSON request. body is marshalled when non-nil;
// out is decoded into when non-nil. A 204 resolves to nil with out left
// untouched.
func (c *Client) Do(ctx context.Context, method, path string, body, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}
	makeBody := func() (io.Reader, string) {
		if payload == nil {
			return nil, ""
		}
		return bytes.NewReader(payload), "application/json"
	}
	return c.send(ctx, method, path, makeBody, out)
}

// Upload posts a multipart form: the file plus side-channel fields (the
// JSON-encoded chunking config, preset id). The body builder runs per
// attempt so the 401 retry re-encodes a fresh form.
func (c *Client) Upload(ctx context.Context, path string, file UploadFile, fields map[string]string, out interface{}) error {
	field := file.FieldName
	if field == "" {
		field = "file"
	}
	makeBody := func() (io.Reader, string) {
		buf := &bytes.Buffer{}
		w := multipart.NewWriter(buf)
		for k, v := range fields {
			_ = w.WriteField(k, v)
		}
		fw, err := w.CreateFormFile(field, file.FileName)
		if err == nil {
			_, _ = fw.Write(file.Content)
		}
		_ = w.Close()
		return buf, w.FormDataContentType()
	}
	return c.send(ctx, http.MethodPost, path, makeBody, out)
}

func (c *Client) send(ctx context.Context, method, path string, makeBody func() (io.Reader, string), out interface{}) error {
	if _, ok := ctx.Deadline(); !ok && c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	exempt := isAuthEndpoint(path)

	// 1. Pre-flight: refresh an access token that is about to lapse so the
	// request does not burn a round trip on a predictable 401.
	if !exempt {
		if pair, ok := c.tokens.Get(); ok && c.accessExpiring(pair) {
			if err := c.refresh(ctx); err != nil {
				c.log.Debug("apiclient", "pre-flight refresh failed", map[string]interface{}{"error": err.Error()})
			}
		}
	}

	// 2. Issue the request.
	status, data, err := c.doOnce(ctx, method, path, makeBody, exempt)
	if err != nil {
		return err
	}

	// 3. On 401 (outside the auth endpoints): refresh once, single-flight,
	// and re-issue exactly once with the new token. A failed refresh lets
	// the original 401 propagate unchanged.
	if status == http.StatusUnauthorized && !exempt {
		if refreshErr := c.refresh(ctx); refreshErr == nil {
			status, data, err = c.doOnce(ctx, method, path, makeBody, exempt)
			if err != nil {
				return err
			}
		} else {
			c.log.Warn("apiclient", "token refresh failed", map[string]interface{}{"path": path, "error": refreshErr.Error()})
		}
	}

	// 4. Normalize failures.
	if status < 200 || status > 299 {
		apiErr := newHTTPError(status, parseDetail(data))
		if exempt && apiErr.Kind == KindAuthExpired {
			// A 401 from login/refresh is bad credentials, not an expired
			// session.
			apiErr.Kind = KindValidation
		}
		return apiErr
	}

	// 5. Decode. 204 and empty bodies resolve to an explicit empty result.
	if status == http.StatusNoContent || out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// doOnce performs a single HTTP exchange and reads the full body. Transport
// failures come back as KindTransient; HTTP status handling is the caller's.
func (c *Client) doOnce(ctx context.Context, method, path string, makeBody func() (io.Reader, string), exempt bool) (int, []byte, error) {
	reader, contentType := makeBody()
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if !exempt {
		if pair, ok := c.tokens.Get(); ok {
			req.Header.Set("Authorization", "Bearer "+pair.Access)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, newTransportError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, newTransportError(err)
	}
	return resp.StatusCode, data, nil
}

// refresh exchanges the refresh token for a new pair and stores it.
// Concurrent callers share one in-flight exchange.
func (c *Client) refresh(ctx context.Context) error {
	_, err, _ := c.refreshGroup.Do("refresh", func() (interface{}, error) {
		pair, ok := c.tokens.Get()
		if !ok || pair.Refresh == "" {
			return nil, errors.New("no refresh token")
		}

		payload, err := json.Marshal(dto.RefreshRequest{RefreshToken: pair.Refresh})
		if err != nil {
			return nil, fmt.Errorf("marshal refresh request: %w", err)
		}
		makeBody := func() (io.Reader, string) {
			return bytes.NewReader(payload), "application/json"
		}
		status, data, err := c.doOnce(ctx, http.MethodPost, RefreshPath, makeBody, true)
		if err != nil {
			return nil, err
		}
		if status != http.StatusOK {
			return nil, newHTTPError(status, parseDetail(data))
		}

		var tokens dto.TokenResponse
		if err := json.Unmarshal(data, &tokens); err != nil {
			return nil, fmt.Errorf("decode refresh response: %w", err)
		}
		if err := c.tokens.Set(entity.TokenPair{Access: tokens.AccessToken, Refresh: tokens.RefreshToken}); err != nil {
			return nil, err
		}
		c.log.Info("apiclient", "access token refreshed", nil)
		return nil, nil
	})
	return err
}

// accessExpiring inspects the access token's exp claim without verifying
// the signature (the backend owns verification). Any parse problem defers
// to the 401 path.
func (c *Client) accessExpiring(pair entity.TokenPair) bool {
	if c.refreshSkew <= 0 || pair.Access == "" || pair.Refresh == "" {
		return false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(pair.Access, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return time.Until(exp.Time) < c.refreshSkew
}

func isAuthEndpoint(path string) bool {
	return path == LoginPath || path == RegisterPath || path == RefreshPath
}

// parseDetail extracts the backend's {"detail": ...} error envelope. A body
// that is not parseable falls back to the HTTP status text upstream.
func parseDetail(data []byte) string {
	var envelope struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return ""
	}
	return envelope.Detail
}
