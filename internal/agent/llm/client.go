package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"github.com/plantpulse/plantpulse-backend/config"
)

// Client talks to an Ollama runtime. Generate calls share a rate limiter so a
// burst of chat traffic cannot starve the GPU.
type Client struct {
	baseURL string
	model   string
	numCtx  int
	numPred int
	limiter *rate.Limiter
	http    *http.Client
}

func New(cfg config.OllamaConfig) *Client {
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 2
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 4
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		model:   cfg.Model,
		numCtx:  cfg.NumCtx,
		numPred: cfg.NumPredict,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.Burst),
		// Streamed generations run until done; per-request deadlines come
		// from the caller's context.
		http: &http.Client{Timeout: 0},
	}
}

const systemPrompt = `You are a manufacturing analytics assistant for a plant floor team.
Answer questions about OEE, downtime, production quality and equipment health.
Be concise and practical. If the question is unrelated to manufacturing, say so.`

type generateRequest struct {
	Model   string         `json:"model"`
	System  string         `json:"system"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options"`
}

// Chunk is one NDJSON frame from a streamed generation.
type Chunk struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func (c *Client) request(ctx context.Context, prompt string, stream bool) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	payload := generateRequest{
		Model:  c.model,
		System: systemPrompt,
		Prompt: prompt,
		Stream: stream,
		Options: map[string]any{
			"temperature": 0.2,
			"num_ctx":     c.numCtx,
			"num_predict": c.numPred,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("ollama: unexpected status %d", resp.StatusCode)
	}
	return resp, nil
}

// Generate runs a non-streamed generation and returns the full answer.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.request(ctx, prompt, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out Chunk
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("ollama: decode: %w", err)
	}
	return out.Response, nil
}

// Stream runs a streamed generation, invoking onChunk for every NDJSON frame
// until done or the context is cancelled. Returns the accumulated answer.
func (c *Client) Stream(ctx context.Context, prompt string, onChunk func(Chunk)) (string, error) {
	resp, err := c.request(ctx, prompt, true)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var full strings.Builder
	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), 2*1024*1024)

	for sc.Scan() {
		select {
		case <-ctx.Done():
			return full.String(), ctx.Err()
		default:
		}

		var ch Chunk
		if json.Unmarshal(sc.Bytes(), &ch) != nil {
			continue
		}
		if ch.Response != "" {
			full.WriteString(ch.Response)
		}
		onChunk(ch)
		if ch.Done {
			break
		}
	}
	if err := sc.Err(); err != nil {
		return full.String(), fmt.Errorf("ollama: stream: %w", err)
	}
	return full.String(), nil
}
