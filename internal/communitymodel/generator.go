// Package communitymodel calls the external community text-generation
// service. The service is best effort by contract: every failure surfaces as
// an error the caller absorbs, never as a crash.
package communitymodel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

const (
	// DefaultBaseURL points to a local Ollama instance.
	DefaultBaseURL = "http://127.0.0.1:11434"

	defaultRequestTimeout = 90 * time.Second
)

// DefaultModels are tried in order when no explicit candidates are configured.
var DefaultModels = []string{
	"qwen2.5:4b-instruct",
	"gemma2:2b-instruct",
	"llama3.2:3b-instruct",
	"smollm2:1.7b-instruct",
	"phi3:mini",
}

// Generator produces structured JSON from a free-form prompt.
type Generator interface {
	GenerateStructuredText(ctx context.Context, prompt, schemaHint string) (json.RawMessage, error)
}

// Client is an Ollama-backed Generator that walks a list of model candidates.
type Client struct {
	baseURL string
	models  []string
	client  *http.Client
	logger  zerolog.Logger
}

// NewClient builds a community-model client. Empty arguments fall back to the
// local defaults.
func NewClient(baseURL string, models []string, logger zerolog.Logger) *Client {
	trimmed := strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		trimmed = DefaultBaseURL
	}
	if len(models) == 0 {
		models = DefaultModels
	}
	return &Client{
		baseURL: trimmed,
		models:  models,
		client:  &http.Client{Timeout: defaultRequestTimeout},
		logger:  logger,
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Format string `json:"format,omitempty"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// GenerateStructuredText asks each model candidate for a JSON value matching
// the schema hint and returns the first response that parses as JSON.
func (c *Client) GenerateStructuredText(ctx context.Context, prompt, schemaHint string) (json.RawMessage, error) {
	if c == nil {
		return nil, fmt.Errorf("community model client is nil")
	}

	instruction := prompt + "\nReturn a single valid JSON value."
	if strings.TrimSpace(schemaHint) != "" {
		instruction = fmt.Sprintf("%s\nReturn a single valid JSON object matching this shape: %s.", prompt, schemaHint)
	}

	var lastErr error
	for _, model := range c.models {
		raw, err := c.generate(ctx, model, instruction)
		if err != nil {
			c.logger.Warn().Err(err).Str("model", model).Msg("community model call failed")
			lastErr = err
			continue
		}
		if !json.Valid(raw) {
			c.logger.Warn().Str("model", model).Msg("community model returned invalid JSON")
			lastErr = fmt.Errorf("model %s returned invalid JSON", model)
			continue
		}
		return raw, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no community model candidates configured")
	}
	return nil, lastErr
}

func (c *Client) generate(ctx context.Context, model, prompt string) (json.RawMessage, error) {
	body, err := json.Marshal(generateRequest{
		Model:  model,
		Prompt: prompt,
		Format: "json",
		Stream: false,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send generate request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("generate endpoint status %d", resp.StatusCode)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read generate response: %w", err)
	}

	var parsed generateResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, fmt.Errorf("decode generate response: %w", err)
	}

	text := strings.TrimSpace(parsed.Response)
	if text == "" {
		return nil, fmt.Errorf("generate response was empty")
	}
	return json.RawMessage(text), nil
}

// ValidateAgainstSchema checks a raw JSON payload against a JSON schema
// document. Callers use it to reject malformed community-model output before
// trusting any field.
func ValidateAgainstSchema(raw json.RawMessage, schemaJSON string) error {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource("payload.schema.json", strings.NewReader(schemaJSON)); err != nil {
		return fmt.Errorf("add schema resource: %w", err)
	}
	schema, err := compiler.Compile("payload.schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return fmt.Errorf("decode payload JSON: %w", err)
	}
	if err := schema.Validate(value); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}
