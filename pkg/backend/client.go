// Package backend is the REST client for the community backend that owns
// communities, connected platforms and modules.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"

	appctx "github.com/Ramsey-B/clover/pkg/context"
	"github.com/Ramsey-B/clover/pkg/httpclient"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Query filters list endpoints
type Query struct {
	Name      string
	Community string
}

func (q Query) values() url.Values {
	v := url.Values{}
	if q.Name != "" {
		v.Set("name", q.Name)
	}
	if q.Community != "" {
		v.Set("community", q.Community)
	}
	return v
}

type Client struct {
	baseURL  string
	http     *httpclient.Client
	validate *validator.Validate
	logger   ectologger.Logger
}

func NewClient(baseURL string, client *httpclient.Client, logger ectologger.Logger) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     client,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

// ListPlatforms calls GET /platforms?name=&community=
func (c *Client) ListPlatforms(ctx context.Context, query Query) (*models.PlatformList, error) {
	ctx, span := tracing.StartSpan(ctx, "Backend.ListPlatforms")
	defer span.End()

	var out models.PlatformList
	if err := c.get(ctx, "/platforms", query.values(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListModules calls GET /modules?name=&community=
func (c *Client) ListModules(ctx context.Context, query Query) (*models.ModuleList, error) {
	ctx, span := tracing.StartSpan(ctx, "Backend.ListModules")
	defer span.End()

	var out models.ModuleList
	if err := c.get(ctx, "/modules", query.values(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateModule calls POST /modules
func (c *Client) CreateModule(ctx context.Context, req models.CreateModuleRequest) (*models.Module, error) {
	ctx, span := tracing.StartSpan(ctx, "Backend.CreateModule")
	defer span.End()

	if err := c.validate.Struct(req); err != nil {
		return nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid module: %s", err.Error())
	}

	var out models.Module
	if err := c.send(ctx, http.MethodPost, "/modules", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PatchModule calls PATCH /modules/{id}
func (c *Client) PatchModule(ctx context.Context, moduleID string, payload models.PatchPayload) (*models.Module, error) {
	ctx, span := tracing.StartSpan(ctx, "Backend.PatchModule")
	defer span.End()

	if moduleID == "" {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "module id is required")
	}

	var out models.Module
	if err := c.send(ctx, http.MethodPatch, "/modules/"+url.PathEscape(moduleID), payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetCommunity calls GET /communities/{id}
func (c *Client) GetCommunity(ctx context.Context, communityID string) (*models.Community, error) {
	ctx, span := tracing.StartSpan(ctx, "Backend.GetCommunity")
	defer span.End()

	var out models.Community
	if err := c.get(ctx, "/communities/"+url.PathEscape(communityID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PatchCommunity calls PATCH /communities/{id}
func (c *Client) PatchCommunity(ctx context.Context, communityID string, req models.PatchCommunityRequest) (*models.Community, error) {
	ctx, span := tracing.StartSpan(ctx, "Backend.PatchCommunity")
	defer span.End()

	var out models.Community
	if err := c.send(ctx, http.MethodPatch, "/communities/"+url.PathEscape(communityID), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteCommunity calls DELETE /communities/{id}
func (c *Client) DeleteCommunity(ctx context.Context, communityID string) error {
	ctx, span := tracing.StartSpan(ctx, "Backend.DeleteCommunity")
	defer span.End()

	return c.send(ctx, http.MethodDelete, "/communities/"+url.PathEscape(communityID), nil, nil)
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	resp, err := c.http.DoWithRetry(ctx, func(ctx context.Context) (*http.Request, error) {
		return c.newRequest(ctx, http.MethodGet, target, nil)
	})
	if err != nil {
		return c.transportError(ctx, err)
	}
	return decode(resp, out)
}

func (c *Client) send(ctx context.Context, method string, path string, body any, out any) error {
	var data []byte
	if body != nil {
		var err error
		if data, err = json.Marshal(body); err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	req, err := c.newRequest(ctx, method, c.baseURL+path, data)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return c.transportError(ctx, err)
	}
	return decode(resp, out)
}

func (c *Client) newRequest(ctx context.Context, method string, target string, body []byte) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := appctx.GetAuthToken(ctx); token != "" {
		req.Header.Set("Authorization", token)
	}
	if requestID := appctx.GetRequestID(ctx); requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}
	if traceparent := tracing.GetTraceParent(ctx); traceparent != "" {
		req.Header.Set("traceparent", traceparent)
	}

	return req, nil
}

func (c *Client) transportError(ctx context.Context, err error) error {
	c.logger.WithContext(ctx).WithError(err).Warn("backend request did not complete")
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, httpclient.ErrCircuitOpen) {
		return httperror.NewHTTPError(http.StatusServiceUnavailable, "backend is unavailable")
	}
	return httperror.NewHTTPErrorf(http.StatusBadGateway, "backend request failed: %s", err.Error())
}

type errorBody struct {
	Message string `json:"message"`
}

func decode(resp *httpclient.Response, out any) error {
	if !httpclient.IsSuccessStatus(resp.StatusCode) {
		message := http.StatusText(resp.StatusCode)
		var body errorBody
		if json.Unmarshal(resp.Body, &body) == nil && body.Message != "" {
			message = body.Message
		}

		status := resp.StatusCode
		if status >= http.StatusInternalServerError {
			status = http.StatusBadGateway
		}
		return httperror.NewHTTPErrorf(status, "backend returned %d: %s", resp.StatusCode, message)
	}

	if out == nil || len(resp.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("failed to decode backend response: %w", err)
	}
	return nil
}
