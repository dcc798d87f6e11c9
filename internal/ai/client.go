// Package ai wraps the Gemini generateContent endpoint. The client makes a
// single attempt per document and never lets a failure escape its boundary:
// every call returns a usable Analysis.
package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"doxradar/internal/logger"
)

const (
	geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	// MaxFileSize is the largest payload sent for analysis. Bigger inputs
	// are skipped rather than risking a model error.
	MaxFileSize = 500 * 1024
)

const analysisPrompt = `Analyze this document briefly. Return JSON only (no markdown):
{"summary":"2 sentence summary","expiryDate":"YYYY-MM-DD or null","renewalDate":"YYYY-MM-DD or null","risks":["risk1"],"tags":["tag1"],"suggestedCategory":"Subscription|Invoice|Legal|Personal|Scam|General","isSubscription":false,"isScam":false,"scamReason":"","severityLevel":"Low|Medium|High|Critical","requiresAction":false,"actionRecommendation":"","subscriptionDetails":{"name":"","price":0,"currency":"USD","period":"Monthly"}}`

// Client calls the Gemini generative endpoint.
type Client struct {
	apiKey     string
	model      string
	httpClient *http.Client
	baseURL    string // overridable for tests
}

// NewClient creates a Gemini client. An empty model falls back to
// gemini-2.0-flash.
func NewClient(apiKey, model string, httpClient *http.Client) *Client {
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &Client{
		apiKey:     apiKey,
		model:      model,
		httpClient: httpClient,
		baseURL:    geminiBaseURL,
	}
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Analyze submits the document and returns a fixed-shape analysis record.
// On any failure the record carries a Failed (or Skipped/QuotaExceeded)
// status and a human-readable summary; Analyze never returns an error.
func (c *Client) Analyze(ctx context.Context, data []byte, mimeType string) *Analysis {
	log := logger.Get()

	if len(data) > MaxFileSize {
		log.Infow("file too large for AI analysis", "size", len(data))
		return &Analysis{
			Status:  StatusSkipped,
			Summary: "File too large for AI analysis. Upload a smaller file (under 500KB) for AI insights.",
			Risks:   []string{},
			Tags:    []string{},
		}
	}

	if c.apiKey == "" {
		log.Error("AI API key not configured")
		return failed("AI not configured.")
	}

	analysis, err := c.generate(ctx, data, mimeType)
	if err != nil {
		if errors.Is(err, errQuotaExceeded) {
			log.Warn("AI quota exceeded")
			return &Analysis{
				Status:  StatusQuotaExceeded,
				Summary: "AI quota exceeded. Please try again in a minute.",
				Risks:   []string{},
				Tags:    []string{},
			}
		}
		log.Errorw("AI analysis failed", "error", err)
		return failed(fmt.Sprintf("AI analysis failed: %v", err))
	}

	analysis.Status = StatusCompleted
	if analysis.Risks == nil {
		analysis.Risks = []string{}
	}
	if analysis.Tags == nil {
		analysis.Tags = []string{}
	}
	return analysis
}

func (c *Client) generate(ctx context.Context, data []byte, mimeType string) (*Analysis, error) {
	reqBody := generateRequest{
		Contents: []content{{
			Parts: []part{
				{Text: analysisPrompt},
				{InlineData: &inlineData{
					MimeType: mimeType,
					Data:     base64.StdEncoding.EncodeToString(data),
				}},
			},
		}},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling model: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, errQuotaExceeded
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no text in model response")
	}

	text := stripFences(genResp.Candidates[0].Content.Parts[0].Text)

	var analysis Analysis
	if err := json.Unmarshal([]byte(text), &analysis); err != nil {
		return nil, fmt.Errorf("parsing model output: %w", err)
	}
	return &analysis, nil
}

var errQuotaExceeded = errors.New("quota exceeded")

func failed(summary string) *Analysis {
	return &Analysis{
		Status:  StatusFailed,
		Summary: summary,
		Risks:   []string{},
		Tags:    []string{},
	}
}

// stripFences removes markdown code fences the model sometimes wraps its
// JSON output in.
func stripFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}
