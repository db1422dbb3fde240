package boxai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/clearstone/finportal/constants"
	"github.com/clearstone/finportal/internal/extraction"
)

// Client calls the Box AI structured-extraction endpoint. Safe for
// concurrent use.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

var _ extraction.Provider = (*Client)(nil)

// NewClient creates a Box AI extraction client.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.timeout()},
		logger: logger,
	}, nil
}

type extractItem struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

type metadataTemplate struct {
	TemplateKey string `json:"template_key"`
	Scope       string `json:"scope"`
	Type        string `json:"type"`
}

type fieldSpec struct {
	Key         string   `json:"key"`
	DisplayName string   `json:"displayName,omitempty"`
	Prompt      string   `json:"prompt,omitempty"`
	Type        string   `json:"type"`
	Options     []option `json:"options,omitempty"`
}

type option struct {
	Key string `json:"key"`
}

type agentModel struct {
	Model string `json:"model"`
}

type aiAgent struct {
	Type      string     `json:"type"`
	BasicText agentModel `json:"basic_text"`
	LongText  agentModel `json:"long_text"`
}

type extractBody struct {
	Items            []extractItem     `json:"items"`
	MetadataTemplate *metadataTemplate `json:"metadata_template,omitempty"`
	Fields           []fieldSpec       `json:"fields,omitempty"`
	AIAgent          *aiAgent          `json:"ai_agent,omitempty"`
}

// ExtractStructured posts one document to /ai/extract_structured and returns
// the raw response object without interpreting its shape.
func (c *Client) ExtractStructured(ctx context.Context, req extraction.ExtractRequest) (map[string]any, error) {
	body := extractBody{
		Items: []extractItem{{ID: req.ObjectID, Type: "file"}},
	}
	switch {
	case req.TemplateKey != "":
		body.MetadataTemplate = &metadataTemplate{
			TemplateKey: req.TemplateKey,
			Scope:       constants.MetadataScope,
			Type:        "metadata_template",
		}
	case len(req.Fields) > 0:
		for _, f := range req.Fields {
			spec := fieldSpec{
				Key:         f.Key,
				DisplayName: f.DisplayName,
				Prompt:      f.Description,
				Type:        string(f.Type),
			}
			for _, opt := range f.Options {
				spec.Options = append(spec.Options, option{Key: opt})
			}
			body.Fields = append(body.Fields, spec)
		}
	default:
		return nil, fmt.Errorf("boxai: request needs a template key or field list")
	}
	if c.cfg.Model != "" {
		body.AIAgent = &aiAgent{
			Type:      "ai_agent_extract_structured",
			BasicText: agentModel{Model: c.cfg.Model},
			LongText:  agentModel{Model: c.cfg.Model},
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal extract request: %w", err)
	}

	reqID := uuid.NewString()
	url := c.cfg.BaseURL + "/ai/extract_structured"
	start := time.Now()
	c.logger.Debug("boxai.extract.start",
		"req_id", reqID,
		"object_id", req.ObjectID,
		"template_key", req.TemplateKey)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build extract request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("extract request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read extract response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("boxai.extract.http_error",
			"req_id", reqID,
			"status", resp.StatusCode,
			"elapsed_ms", time.Since(start).Milliseconds())
		return nil, fmt.Errorf("extract returned status %d: %s", resp.StatusCode, truncate(string(data), 200))
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode extract response: %w", err)
	}

	c.logger.Debug("boxai.extract.done",
		"req_id", reqID,
		"object_id", req.ObjectID,
		"elapsed_ms", time.Since(start).Milliseconds())
	return raw, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
