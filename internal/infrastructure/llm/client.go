package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ArxivDigest/internal/config"
	"ArxivDigest/internal/domain"
	"ArxivDigest/internal/ports"
)

const batchMarker = "===PAPER"

// Client implements the summarizer port against OpenAI-compatible chat
// completion APIs (OpenAI, DeepSeek, and friends).
type Client struct {
	endpoint   string
	model      string
	apiKey     string
	language   string
	httpClient *http.Client
}

var _ ports.Summarizer = (*Client)(nil)

// NewClient builds a client from configuration.
func NewClient(cfg config.LLMConfig) *Client {
	return &Client{
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
		apiKey:   cfg.APIKey,
		language: cfg.Language,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// SummarizeBatch sends one prompt covering the whole batch and splits the
// response back into one summary per paper, in batch order.
func (c *Client) SummarizeBatch(ctx context.Context, papers []domain.Paper) ([]string, error) {
	if len(papers) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	for i, paper := range papers {
		fmt.Fprintf(&sb, "\n---\n## Paper %d\n**Title**: %s\n**Abstract**: %s\n---\n",
			i+1, paper.Title, paper.Abstract)
	}

	system := fmt.Sprintf(
		"You are a senior AI/ML researcher who explains academic papers in clear, accessible %s. Be concise, precise, and substantive.",
		c.languageOrDefault())
	user := fmt.Sprintf(`Write a short interpretation of each of the following %d arXiv papers.

%s
For each paper cover, in two paragraphs: (1) the problem and why it matters, (2) the proposed method and its results.

Output format: separate papers with "%s N===" (N is the paper number starting at 1). No headings inside, just the two paragraphs.`,
		len(papers), sb.String(), batchMarker)

	content, err := c.complete(ctx, system, user, min(1200*len(papers), 4000))
	if err != nil {
		return nil, err
	}

	summaries := splitBatchResponse(content, len(papers))
	if len(summaries) != len(papers) {
		return nil, fmt.Errorf("expected %d summaries, parsed %d", len(papers), len(summaries))
	}
	return summaries, nil
}

// Overview asks for a cross-paper trends paragraph over the day's
// selection.
func (c *Client) Overview(ctx context.Context, papers []domain.ScoredPaper) (string, error) {
	if len(papers) == 0 {
		return "", nil
	}

	var sb strings.Builder
	limit := min(len(papers), 10)
	for i, paper := range papers[:limit] {
		fmt.Fprintf(&sb, "%d. %s (matched: %s)\n",
			i+1, paper.Paper.Title, strings.Join(paper.Details.Matched, ", "))
	}

	system := fmt.Sprintf(
		"You are a research analyst who distills trends from daily paper selections. Answer in %s.",
		c.languageOrDefault())
	user := fmt.Sprintf(`Today's selection contains %d relevant papers:

%s
In 150-250 words, summarize the main research directions represented today and anything notable for a reader following these topics. Output the summary directly, no preamble.`,
		len(papers), sb.String())

	return c.complete(ctx, system, user, 800)
}

func (c *Client) complete(ctx context.Context, system, user string, maxTokens int) (string, error) {
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return "", fmt.Errorf("llm client misconfigured")
	}

	body, err := json.Marshal(map[string]any{
		"model":       c.model,
		"temperature": 0.3,
		"max_tokens":  maxTokens,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal llm payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("llm error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode llm response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("llm returned no choices")
	}

	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

func (c *Client) languageOrDefault() string {
	if c.language == "" {
		return "English"
	}
	return c.language
}

// splitBatchResponse cuts the model output on the batch markers. When the
// model ignored the format, the text is split evenly by lines as a last
// resort so the caller still gets one chunk per paper.
func splitBatchResponse(content string, count int) []string {
	parts := strings.Split(content, batchMarker)

	summaries := make([]string, 0, count)
	for _, part := range parts[1:] {
		chunk := strings.TrimSpace(part)
		// Drop the "N===" prefix left by the split.
		if idx := strings.Index(chunk, "==="); idx >= 0 {
			chunk = strings.TrimSpace(chunk[idx+3:])
		}
		if chunk != "" {
			summaries = append(summaries, chunk)
		}
	}
	if strings.Contains(content, batchMarker) {
		// The model used the format; a wrong count is a real failure the
		// caller should retry, not something to paper over.
		return summaries
	}

	lines := strings.Split(content, "\n")
	if count <= 0 || len(lines) < count {
		return summaries
	}
	chunkSize := len(lines) / count
	even := make([]string, 0, count)
	for i := range count {
		start := i * chunkSize
		end := start + chunkSize
		if i == count-1 {
			end = len(lines)
		}
		even = append(even, strings.TrimSpace(strings.Join(lines[start:end], "\n")))
	}
	return even
}
