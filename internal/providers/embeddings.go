package providers

import (
	"context"
	"encoding/json"
	"fmt"
)

// OpenAIEmbedder implements Embedder on the OpenAI embeddings endpoint.
type OpenAIEmbedder struct {
	provider *OpenAIProvider
	model    string
}

func NewOpenAIEmbedder(apiKey, apiBase, model string) *OpenAIEmbedder {
	if model == "" {
		model = "text-embedding-3-small"
	}
	return &OpenAIEmbedder{
		provider: NewOpenAIProvider(apiKey, apiBase, ""),
		model:    model,
	}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	body := map[string]interface{}{
		"model": e.model,
		"input": texts,
	}

	return RetryDo(ctx, e.provider.retryConfig, func() ([][]float32, error) {
		respBody, err := e.provider.doRequest(ctx, "/embeddings", body)
		if err != nil {
			return nil, err
		}
		defer respBody.Close()

		var resp struct {
			Data []struct {
				Index     int       `json:"index"`
				Embedding []float32 `json:"embedding"`
			} `json:"data"`
		}
		if err := json.NewDecoder(respBody).Decode(&resp); err != nil {
			return nil, fmt.Errorf("openai: decode embeddings: %w", err)
		}
		if len(resp.Data) != len(texts) {
			return nil, fmt.Errorf("openai: got %d embeddings for %d inputs", len(resp.Data), len(texts))
		}

		out := make([][]float32, len(texts))
		for _, d := range resp.Data {
			if d.Index < 0 || d.Index >= len(out) {
				return nil, fmt.Errorf("openai: embedding index %d out of range", d.Index)
			}
			out[d.Index] = d.Embedding
		}
		return out, nil
	})
}
