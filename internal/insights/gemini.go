// Package insights asks a generative text model for caregiver facing advice.
package insights

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/cjdreamy/M-kumbusha/internal/apperrors"
	"github.com/cjdreamy/M-kumbusha/internal/logger"
)

const defaultTone = "warm and comforting"

type Client struct {
	httpClient *http.Client
	apiKey     string
	model      string
	baseURL    string
}

func NewClient(httpClient *http.Client, apiKey, model, baseURL string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		httpClient: httpClient,
		apiKey:     apiKey,
		model:      model,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// VoiceScriptRequest describes the spoken reminder to draft
type VoiceScriptRequest struct {
	ElderlyName    string `json:"elderlyName"`
	MedicationName string `json:"medicationName"`
	Instructions   string `json:"instructions"`
	Tone           string `json:"tone"`
}

// CareInsights analyses adherence data and dashboard stats
func (c *Client) CareInsights(ctx context.Context, data string) (string, error) {
	if strings.TrimSpace(data) == "" {
		return "", apperrors.InvalidRequest("context is required")
	}
	prompt := fmt.Sprintf(`As a senior healthcare data analyst for "M-Kumbusha", analyze the following 7-day adherence data and dashboard stats.

Identify patterns, risks, and provide 3-4 actionable insights for the caregiver.
Use Markdown for presentation:
- Use **bold** for emphasis
- Use bullet points for insights
- Use a "### Recommendations" header
- ALWAYS include a horizontal rule and a medical disclaimer at the bottom.

Data:
%s`, data)
	return c.Generate(ctx, prompt)
}

// VoiceScript drafts a short script for a voice reminder
func (c *Client) VoiceScript(ctx context.Context, req VoiceScriptRequest) (string, error) {
	if strings.TrimSpace(req.ElderlyName) == "" || strings.TrimSpace(req.MedicationName) == "" {
		return "", apperrors.InvalidRequest("elderlyName and medicationName are required")
	}
	tone := req.Tone
	if strings.TrimSpace(tone) == "" {
		tone = defaultTone
	}
	prompt := fmt.Sprintf(`Generate a short, %s voice reminder script for %s to take their %s.
Instructions: %s.
The script should be clear, easy to understand for an elderly person, and friendly.
Keep it under 40 words.
Return ONLY the script text.`, tone, req.ElderlyName, req.MedicationName, req.Instructions)
	return c.Generate(ctx, prompt)
}

// AssistantAdvice answers a caregiver question
func (c *Client) AssistantAdvice(ctx context.Context, question, profileInfo string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", apperrors.InvalidRequest("question is required")
	}
	prompt := fmt.Sprintf(`You are the M-Kumbusha AI Care Assistant. Answer the following caregiver question accurately and empathetically.

Caregiver Context: %s
Question: %s

Use Markdown formatting:
- Use headers for structure
- Use bold text for key terms
- Add a "Safety Tip" section if applicable
- ALWAYS add a medical disclaimer.`, profileInfo, question)
	return c.Generate(ctx, prompt)
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
		Content content `json:"content"`
	} `json:"candidates"`
}

// Generate sends prompt to the model's generateContent endpoint and returns the first candidate's text
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("%w: GEMINI_API_KEY is not set", apperrors.ErrNotConfigured)
	}

	payload, err := json.Marshal(generateRequest{Contents: []content{{Parts: []part{{Text: prompt}}}}})
	if err != nil {
		return "", fmt.Errorf("marshal prompt: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", apperrors.Provider(fmt.Errorf("gemini request failed: %w", err))
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			logger.Log.Warnf("Error closing gemini response body: %v", cerr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", apperrors.Provider(fmt.Errorf("gemini returned status %d: %s", resp.StatusCode, string(body)))
	}

	var result generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", apperrors.Provider(fmt.Errorf("decode gemini response: %w", err))
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", apperrors.Provider(fmt.Errorf("empty gemini response"))
	}

	var text strings.Builder
	for _, p := range result.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}
	return strings.TrimSpace(text.String()), nil
}
