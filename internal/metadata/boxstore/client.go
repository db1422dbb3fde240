package boxstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/clearstone/finportal/internal/common"
	"github.com/clearstone/finportal/internal/metadata"
)

// Config holds connection settings for the Box metadata API.
type Config struct {
	BaseURL string
	Token   string
	// Scope is the metadata namespace, normally "enterprise".
	Scope   string
	Timeout time.Duration
}

func (c Config) validate() error {
	if c.BaseURL == "" {
		return errors.New("boxstore: base URL is required")
	}
	if c.Token == "" {
		return errors.New("boxstore: token is required")
	}
	if c.Scope == "" {
		return errors.New("boxstore: scope is required")
	}
	return nil
}

// Client implements metadata.ObjectStore against the Box files API.
// Safe for concurrent use.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

var _ metadata.ObjectStore = (*Client)(nil)

// NewClient creates a Box metadata store client.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: timeout},
		logger: logger,
	}, nil
}

// GetObjectInfo fetches the object descriptor, primarily for its filename.
func (c *Client) GetObjectInfo(ctx context.Context, objectID string) (metadata.ObjectInfo, error) {
	url := fmt.Sprintf("%s/files/%s?fields=id,name", c.cfg.BaseURL, objectID)
	data, status, err := c.do(ctx, http.MethodGet, url, nil, "")
	if err != nil {
		return metadata.ObjectInfo{}, err
	}
	switch {
	case status == http.StatusNotFound:
		return metadata.ObjectInfo{}, fmt.Errorf("object %s: %w", objectID, common.ErrNotFound)
	case status < 200 || status >= 300:
		return metadata.ObjectInfo{}, fmt.Errorf("object info returned status %d", status)
	}
	var info struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &info); err != nil {
		return metadata.ObjectInfo{}, fmt.Errorf("decode object info: %w", err)
	}
	return metadata.ObjectInfo{ID: info.ID, Name: info.Name}, nil
}

// CreateMetadata creates a new metadata record on the object. A 409 from the
// store wraps common.ErrConflict so callers can fall through to a patch.
func (c *Client) CreateMetadata(ctx context.Context, objectID, templateKey string, fields map[string]any) error {
	url := c.metadataURL(objectID, templateKey)
	body, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	_, status, err := c.do(ctx, http.MethodPost, url, body, "application/json")
	if err != nil {
		return err
	}
	switch {
	case status == http.StatusConflict:
		return fmt.Errorf("template %s on object %s: %w", templateKey, objectID, common.ErrConflict)
	case status == http.StatusNotFound:
		return fmt.Errorf("object %s: %w", objectID, common.ErrNotFound)
	case status < 200 || status >= 300:
		return fmt.Errorf("create metadata returned status %d", status)
	}
	return nil
}

// PatchMetadata updates an existing record with JSON-Patch operations.
func (c *Client) PatchMetadata(ctx context.Context, objectID, templateKey string, ops []metadata.PatchOp) error {
	url := c.metadataURL(objectID, templateKey)
	body, err := json.Marshal(ops)
	if err != nil {
		return fmt.Errorf("marshal patch ops: %w", err)
	}
	_, status, err := c.do(ctx, http.MethodPut, url, body, "application/json-patch+json")
	if err != nil {
		return err
	}
	switch {
	case status == http.StatusNotFound:
		return fmt.Errorf("template %s on object %s: %w", templateKey, objectID, common.ErrNotFound)
	case status < 200 || status >= 300:
		return fmt.Errorf("patch metadata returned status %d", status)
	}
	return nil
}

// GetMetadata reads the current record for a template, dropping the store's
// $-prefixed bookkeeping keys.
func (c *Client) GetMetadata(ctx context.Context, objectID, templateKey string) (map[string]any, error) {
	url := c.metadataURL(objectID, templateKey)
	data, status, err := c.do(ctx, http.MethodGet, url, nil, "")
	if err != nil {
		return nil, err
	}
	switch {
	case status == http.StatusNotFound:
		return nil, fmt.Errorf("template %s on object %s: %w", templateKey, objectID, common.ErrNotFound)
	case status < 200 || status >= 300:
		return nil, fmt.Errorf("get metadata returned status %d", status)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	fields := make(map[string]any, len(raw))
	for k, v := range raw {
		if len(k) > 0 && k[0] == '$' {
			continue
		}
		fields[k] = v
	}
	return fields, nil
}

func (c *Client) metadataURL(objectID, templateKey string) string {
	return fmt.Sprintf("%s/files/%s/metadata/%s/%s", c.cfg.BaseURL, objectID, c.cfg.Scope, templateKey)
}

func (c *Client) do(ctx context.Context, method, url string, body []byte, contentType string) ([]byte, int, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	c.logger.Debug("boxstore.request",
		"method", method,
		"status", resp.StatusCode,
		"elapsed_ms", time.Since(start).Milliseconds())
	return data, resp.StatusCode, nil
}
