package gemini

import (
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
)

func TestStripFences(t *testing.T) {
	assert.Equal(t, "TOTAL R$ 1,00", stripFences("```text\nTOTAL R$ 1,00\n```"))
	assert.Equal(t, "TOTAL R$ 1,00", stripFences("```\nTOTAL R$ 1,00```"))
	assert.Equal(t, "plain", stripFences("  plain \n"))
}

func TestResponseText(t *testing.T) {
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []genai.Part{genai.Text("LINHA 1\n"), genai.Text("LINHA 2")}},
	}}}
	assert.Equal(t, "LINHA 1\nLINHA 2", responseText(resp))
	assert.Equal(t, "", responseText(nil))
	assert.Equal(t, "", responseText(&genai.GenerateContentResponse{}))
}

func TestNewRequiresKey(t *testing.T) {
	_, err := New(context.Background(), "  ", "gemini-2.5-flash")
	assert.Error(t, err)
}
