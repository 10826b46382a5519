package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"time"
)

// ErrGeneration means the model response could not be produced or parsed.
// It is not retried; the caller decides how to surface it.
var ErrGeneration = errors.New("summary generation failed")

// Result is the parsed model output. The persisted message is Summary and
// Feedback joined with a single space.
type Result struct {
	Summary  string `json:"summary"`
	Feedback string `json:"feedback"`
}

// Generator produces a summary/feedback pair from a usage digest. It is
// constructor-injected so tests can fake it.
type Generator interface {
	Generate(ctx context.Context, digest string) (Result, error)
}

const promptTemplate = `You are an expert at analyzing smartphone usage habits.

Below is one day of a user's smartphone usage. Each line has the app name,
how long it was used, and optionally a short memo the user wrote.

1. Summarize the day's overall usage habits in two or three sentences,
   focusing on tendencies and patterns rather than listing every entry.
2. Then give one or two sentences of gentle, encouraging feedback the user
   can act on tomorrow. Phrase it as advice, not nagging.
3. Output ONLY a JSON object in this exact shape, with no other text:

{"summary": "...", "feedback": "..."}

Usage log:
%s`

// GeminiClient calls the Gemini generateContent REST endpoint.
type GeminiClient struct {
	apiKey     string
	modelName  string
	baseURL    string
	httpClient *http.Client
}

type GeminiOption func(*GeminiClient)

func WithBaseURL(url string) GeminiOption {
	return func(c *GeminiClient) {
		c.baseURL = url
	}
}

func WithHTTPClient(hc *http.Client) GeminiOption {
	return func(c *GeminiClient) {
		c.httpClient = hc
	}
}

func NewGeminiClient(apiKey string, opts ...GeminiOption) *GeminiClient {
	c := &GeminiClient{
		apiKey:     apiKey,
		modelName:  "gemini-2.5-flash",
		baseURL:    "https://generativelanguage.googleapis.com",
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if the API key is set.
func (c *GeminiClient) Configured() bool {
	return c.apiKey != ""
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Generate submits the digest and parses the {"summary","feedback"} object
// out of the response text.
func (c *GeminiClient) Generate(ctx context.Context, digest string) (Result, error) {
	if !c.Configured() {
		return Result{}, fmt.Errorf("%w: missing API key", ErrGeneration)
	}

	payload := generateRequest{
		Contents: []content{{Parts: []part{{Text: fmt.Sprintf(promptTemplate, digest)}}}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.modelName)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("%w: API status %d", ErrGeneration, resp.StatusCode)
	}

	var gr generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return Result{}, fmt.Errorf("%w: decode response: %v", ErrGeneration, err)
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return Result{}, fmt.Errorf("%w: empty response", ErrGeneration)
	}

	return extractResult(gr.Candidates[0].Content.Parts[0].Text)
}

var fencedJSONRegexp = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// extractResult parses the JSON object out of the model's text, tolerating
// the object being wrapped in a fenced code block.
func extractResult(text string) (Result, error) {
	jsonText := text
	if m := fencedJSONRegexp.FindStringSubmatch(text); m != nil {
		jsonText = m[1]
	}

	var res Result
	if err := json.Unmarshal([]byte(jsonText), &res); err != nil {
		return Result{}, fmt.Errorf("%w: parse model output: %v", ErrGeneration, err)
	}
	if res.Summary == "" && res.Feedback == "" {
		return Result{}, fmt.Errorf("%w: model output missing summary and feedback", ErrGeneration)
	}
	return res, nil
}
