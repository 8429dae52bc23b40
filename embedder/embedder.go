package embedder

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// Client generates article embeddings through the Gemini embedding endpoint.
type Client struct {
	client    *genai.Client
	modelName string
}

func New(client *genai.Client, modelName string) *Client {
	return &Client{client: client, modelName: modelName}
}

// ModelName reports which model this client produces vectors with. Stored
// next to every vector so stale-model embeddings can be filtered out.
func (c *Client) ModelName() string { return c.modelName }

// BuildInput is the fixed embedding input recipe. Changing this
// concatenation is a breaking change that requires re-embedding the corpus.
func BuildInput(title, summary, category string) string {
	return strings.TrimSpace(title) + "\n" + strings.TrimSpace(summary) + "\n" + category
}

// Embed generates an embedding vector for a single input string.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("embed: input text is empty")
	}

	resp, err := c.client.Models.EmbedContent(ctx, c.modelName, genai.Text(text), nil)
	if err != nil {
		return nil, fmt.Errorf("embed content: %w", err)
	}
	if resp == nil || len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("embed content: no embedding returned")
	}

	return resp.Embeddings[0].Values, nil
}
