package coach

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// --- Gemini API Configuration ---
const (
	requestTimeout  = 60 * time.Second
	maxOutputTokens = 1024
	temperature     = 0.7
	maxErrorBody    = 2048
)

// Generator produces the raw model reply for one turn. It makes exactly one
// attempt; any failure is reported wrapped in ErrGenerationFailed.
type Generator interface {
	Generate(ctx context.Context, log *zerolog.Logger, req GenerateRequest) (string, error)
}

// GenerateRequest is everything the model sees for one turn.
type GenerateRequest struct {
	SystemInstruction string
	History           []Turn
	Parts             []Part
}

// --- Structs for Gemini API Request/Response ---

type geminiPayload struct {
	Contents          []geminiContent   `json:"contents"`
	SystemInstruction *geminiContent    `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     []byte `json:"data"` // base64 on the wire
}

type generationConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens"`
	Temperature     float64 `json:"temperature"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// GeminiClient calls the generateContent REST endpoint.
type GeminiClient struct {
	apiKey  string
	model   string
	baseURL string
	http    *http.Client
}

func NewGeminiClient(apiKey, model, baseURL string) *GeminiClient {
	return &GeminiClient{
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: requestTimeout},
	}
}

func buildPayload(req GenerateRequest) geminiPayload {
	contents := make([]geminiContent, 0, len(req.History)+1)
	for _, t := range req.History {
		role := "user"
		if t.Role == RoleAssistant {
			role = "model"
		}
		contents = append(contents, geminiContent{Role: role, Parts: []geminiPart{{Text: t.Text}}})
	}

	turn := geminiContent{Role: "user", Parts: make([]geminiPart, 0, len(req.Parts))}
	for _, p := range req.Parts {
		if p.Image != nil {
			turn.Parts = append(turn.Parts, geminiPart{InlineData: &geminiInlineData{MimeType: p.Image.MIMEType, Data: p.Image.Data}})
			continue
		}
		turn.Parts = append(turn.Parts, geminiPart{Text: p.Text})
	}
	contents = append(contents, turn)

	return geminiPayload{
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: req.SystemInstruction}}},
		Contents:          contents,
		GenerationConfig:  &generationConfig{MaxOutputTokens: maxOutputTokens, Temperature: temperature},
	}
}

// Generate implements Generator.
func (c *GeminiClient) Generate(ctx context.Context, log *zerolog.Logger, req GenerateRequest) (string, error) {
	if c.apiKey == "" {
		log.Error().Msg("GEMINI_API_KEY is not set")
		return "", fmt.Errorf("%w: model provider is not configured", ErrGenerationFailed)
	}

	payloadBytes, err := json.Marshal(buildPayload(req))
	if err != nil {
		return "", fmt.Errorf("%w: failed to marshal payload: %v", ErrGenerationFailed, err)
	}

	// The key goes in a header; the URL shows up in transport errors.
	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, url.PathEscape(c.model))

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, endpoint, bytes.NewReader(payloadBytes))
	if err != nil {
		return "", fmt.Errorf("%w: failed to create request: %v", ErrGenerationFailed, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: request failed: %v", ErrGenerationFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", fmt.Errorf("%w: API returned non-200 status: %s, Body: %s", ErrGenerationFailed, resp.Status, string(body))
	}

	var geminiResp geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&geminiResp); err != nil {
		return "", fmt.Errorf("%w: failed to decode response: %v", ErrGenerationFailed, err)
	}

	if geminiResp.PromptFeedback != nil && geminiResp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("%w: prompt blocked: %s", ErrGenerationFailed, geminiResp.PromptFeedback.BlockReason)
	}
	if len(geminiResp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates in Gemini response", ErrGenerationFailed)
	}

	var sb strings.Builder
	for _, p := range geminiResp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	text := sb.String()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: empty reply (finish reason %s)", ErrGenerationFailed, geminiResp.Candidates[0].FinishReason)
	}

	log.Debug().
		Str("model", c.model).
		Dur("latency", time.Since(start)).
		Int("history_turns", len(req.History)).
		Msg("Gemini reply received")
	return text, nil
}
