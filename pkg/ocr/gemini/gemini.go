// Package gemini transcribes receipt images with a Gemini vision model.
package gemini

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const transcribePrompt = `Transcribe this Brazilian NFC-e receipt exactly as printed.
Keep one printed line per output line, in order, and keep numbers, commas and
currency symbols unchanged. Do not summarise, translate or add anything.
Output plain text only, no markdown.`

const maxAttempts = 3

// Recognizer sends images to Gemini and returns the transcription.
type Recognizer struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// New opens a Gemini client for model.
func New(ctx context.Context, apiKey, model string) (*Recognizer, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY is empty")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	m := client.GenerativeModel(strings.TrimSpace(model))
	m.SetTemperature(0)
	return &Recognizer{client: client, model: m}, nil
}

// Recognize transcribes img, retrying transient failures.
func (r *Recognizer) Recognize(ctx context.Context, img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode png: %w", err)
	}
	parts := []genai.Part{
		genai.ImageData("png", buf.Bytes()),
		genai.Text(transcribePrompt),
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		resp, err := r.model.GenerateContent(ctx, parts...)
		if err != nil {
			lastErr = err
			time.Sleep(time.Duration(attempt) * 300 * time.Millisecond)
			continue
		}
		return stripFences(responseText(resp)), nil
	}
	return "", fmt.Errorf("gemini: %w", lastErr)
}

// Close closes the client.
func (r *Recognizer) Close() error {
	return r.client.Close()
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return sb.String()
}

// stripFences drops a surrounding ``` block the model sometimes adds anyway.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
