package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PhishGuardAI/phishguard/pkg/httputil"
	"github.com/PhishGuardAI/phishguard/pkg/logger"
)

// Provider defines the backend service type.
type Provider string

const (
	ProviderGemini Provider = "gemini" // Google generateContent REST API
	ProviderOpenAI Provider = "openai" // OpenAI-compatible chat/completions
	ProviderOllama Provider = "ollama" // Local Ollama, OpenAI-compatible, no key
)

// maxOracleResponse caps the response body read from the provider. External
// model APIs are untrusted; 2MB is generous for any legitimate reply.
const maxOracleResponse = 2 * 1024 * 1024

const classifyPrompt = `You are an email security analyst. Decide whether the following message is a phishing attempt.

Respond with JSON only, no prose, in exactly this shape:
{"is_phishing": true, "confidence": 0.0, "risk_factors": ["short factual observations"]}

confidence is your certainty in the verdict, between 0.0 and 1.0.

Message:
%s`

// Client is a network-backed Oracle. One attempt per Consult; on any failure
// it answers with the deterministic Fallback instead of an error.
type Client struct {
	provider Provider
	baseURL  string
	apiKey   string
	model    string
	timeout  time.Duration
	http     *http.Client
	log      *logger.Logger
}

// ClientConfig holds the settings for a network oracle.
type ClientConfig struct {
	Provider Provider
	APIKey   string // optional for Ollama
	Model    string
	BaseURL  string        // optional override for self-hosted endpoints
	Timeout  time.Duration // defaults to 30s
}

// NewClient creates a network oracle for the given provider.
func NewClient(cfg ClientConfig, log *logger.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}

	baseURL := cfg.BaseURL
	model := cfg.Model
	switch cfg.Provider {
	case ProviderOllama:
		if baseURL == "" {
			baseURL = "http://localhost:11434/v1"
		}
		if model == "" {
			model = "qwen2.5:7b"
		}
	case ProviderOpenAI:
		if baseURL == "" {
			baseURL = "https://api.openai.com/v1"
		}
		if model == "" {
			model = "gpt-4o-mini"
		}
	case ProviderGemini:
		fallthrough
	default:
		if baseURL == "" {
			baseURL = "https://generativelanguage.googleapis.com/v1beta"
		}
		if model == "" {
			model = "gemini-2.5-flash"
		}
	}

	return &Client{
		provider: cfg.Provider,
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   cfg.APIKey,
		model:    model,
		timeout:  cfg.Timeout,
		http:     httputil.Client(cfg.Timeout),
		log:      log.WithComponent("oracle"),
	}
}

// verdict is the JSON shape the model is instructed to answer with.
type verdict struct {
	IsPhishing  bool     `json:"is_phishing"`
	Confidence  float64  `json:"confidence"`
	RiskFactors []string `json:"risk_factors"`
}

// Consult queries the model once. Any failure degrades to Fallback.
func (c *Client) Consult(ctx context.Context, text string) Opinion {
	if tooShort(text) {
		return shortOpinion(string(c.provider))
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	content, err := c.query(ctx, fmt.Sprintf(classifyPrompt, text))
	if err != nil {
		c.log.Warn().Err(err).Str("provider", string(c.provider)).
			Msg("oracle query failed, using deterministic fallback")
		return Fallback(text)
	}

	var v verdict
	if err := json.Unmarshal([]byte(extractJSON(content)), &v); err != nil {
		c.log.Warn().Err(err).Str("provider", string(c.provider)).
			Msg("unparseable oracle reply, using deterministic fallback")
		return Fallback(text)
	}

	if v.Confidence < 0 {
		v.Confidence = 0
	}
	if v.Confidence > 1 {
		v.Confidence = 1
	}
	if len(v.RiskFactors) > MaxRiskFactors {
		v.RiskFactors = v.RiskFactors[:MaxRiskFactors]
	}

	return Opinion{
		IsPhishing:  v.IsPhishing,
		Confidence:  v.Confidence,
		RiskFactors: v.RiskFactors,
		Source:      string(c.provider),
	}
}

func (c *Client) query(ctx context.Context, prompt string) (string, error) {
	if c.provider == ProviderGemini {
		return c.queryGemini(ctx, prompt)
	}
	return c.queryChat(ctx, prompt)
}

// --- Gemini generateContent ---

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (c *Client) queryGemini(ctx context.Context, prompt string) (string, error) {
	reqBody := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	body, err := c.post(ctx, endpoint, reqBody, map[string]string{"x-goog-api-key": c.apiKey})
	if err != nil {
		return "", err
	}

	var resp geminiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("unmarshal error: %w", err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no candidates returned")
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}

// --- OpenAI-compatible chat/completions ---

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *Client) queryChat(ctx context.Context, prompt string) (string, error) {
	reqBody := chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: 0.1,
	}

	headers := map[string]string{}
	if c.apiKey != "" {
		headers["Authorization"] = "Bearer " + c.apiKey
	}

	body, err := c.post(ctx, c.baseURL+"/chat/completions", reqBody, headers)
	if err != nil {
		return "", err
	}

	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("unmarshal error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *Client) post(ctx context.Context, endpoint string, reqBody any, headers map[string]string) ([]byte, error) {
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		if v != "" {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer httputil.DrainAndClose(resp.Body)

	body, err := httputil.ReadResponseBody(resp.Body, maxOracleResponse)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

// extractJSON pulls a JSON object out of a reply that may be wrapped in
// markdown fences or surrounded by prose.
func extractJSON(content string) string {
	clean := strings.TrimSpace(content)
	if strings.HasPrefix(clean, "```") {
		clean = strings.TrimPrefix(clean, "```json")
		clean = strings.TrimPrefix(clean, "```")
		if end := strings.LastIndex(clean, "```"); end != -1 {
			clean = clean[:end]
		}
	}
	if start := strings.Index(clean, "{"); start != -1 {
		clean = clean[start:]
	}
	if end := strings.LastIndex(clean, "}"); end != -1 {
		clean = clean[:end+1]
	}
	return strings.TrimSpace(clean)
}
