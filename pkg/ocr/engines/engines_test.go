package engines

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartreceipts/pkg/config"
)

func TestNewUnknownEngine(t *testing.T) {
	_, err := New(context.Background(), config.OCR{Engine: "abbyy"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown OCR engine "abbyy"`)
}

func TestNewGeminiWithoutKey(t *testing.T) {
	_, err := NewScanner(context.Background(), config.OCR{Engine: " Gemini "})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GEMINI_API_KEY")
}
