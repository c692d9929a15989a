package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Embedder produces a vector representation of a piece of text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type embedRequestPart struct {
	Text string `json:"text"`
}

type embedRequestContent struct {
	Parts []embedRequestPart `json:"parts"`
}

type embedRequest struct {
	Model    string              `json:"model"`
	Content  embedRequestContent `json:"content"`
	TaskType string              `json:"task_type,omitempty"`
}

type embedResponse struct {
	Embedding struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
}

// GeminiEmbedder calls the Google Generative Language embedContent endpoint.
type GeminiEmbedder struct {
	apiKey string
	model  string
	client *http.Client
}

// NewGeminiEmbedder builds an embedder for the given model identifier.
func NewGeminiEmbedder(apiKey, model string) *GeminiEmbedder {
	return &GeminiEmbedder{
		apiKey: apiKey,
		model:  model,
		client: &http.Client{},
	}
}

// Embed requests an embedding for the supplied text.
func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	payload := embedRequest{
		Model: e.model,
		Content: embedRequestContent{
			Parts: []embedRequestPart{{Text: text}},
		},
		TaskType: "RETRIEVAL_QUERY",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf(
		"https://generativelanguage.googleapis.com/v1/models/%s:embedContent",
		e.model,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-goog-api-key", e.apiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call embedding service: %w", err)
	}
	defer res.Body.Close()

	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding service returned %d: %s", res.StatusCode, string(resBody))
	}

	var parsed embedResponse
	if err := json.Unmarshal(resBody, &parsed); err != nil {
		return nil, err
	}

	if len(parsed.Embedding.Values) == 0 {
		return nil, fmt.Errorf("embedding service returned an empty vector")
	}
	return parsed.Embedding.Values, nil
}
