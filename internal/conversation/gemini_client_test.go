package conversation

import (
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeminiTurns(t *testing.T) {
	history, last, err := geminiTurns([]ChatMessage{
		{Role: ChatRoleSystem, Content: "ignored here"},
		{Role: ChatRoleAssistant, Content: "¿Qué reforma necesitas?"},
		{Role: ChatRoleUser, Content: "  cuina a Girona  "},
		{Role: ChatRoleAssistant, Content: ""},
		{Role: ChatRoleAssistant, Content: "¿Cuántos metros?"},
		{Role: ChatRoleUser, Content: "12 m2"},
	})
	require.NoError(t, err)

	assert.Equal(t, "12 m2", last)
	require.Len(t, history, 3)
	assert.Equal(t, "model", history[0].Role)
	assert.Equal(t, "user", history[1].Role)
	assert.Equal(t, genai.Text("cuina a Girona"), history[1].Parts[0])
	assert.Equal(t, "model", history[2].Role)
}

func TestGeminiTurns_Errors(t *testing.T) {
	_, _, err := geminiTurns([]ChatMessage{{Role: ChatRoleSystem, Content: "prompt"}})
	assert.ErrorContains(t, err, "at least one message")

	_, _, err = geminiTurns([]ChatMessage{{Role: ChatRoleUser, Content: "hola"}, {Role: ChatRoleAssistant, Content: "hola!"}})
	assert.ErrorContains(t, err, "end with a user message")
}

func TestConfigureGemini(t *testing.T) {
	model := &genai.GenerativeModel{}
	configureGemini(model, LLMRequest{
		System:      []string{"base prompt"},
		Messages:    []ChatMessage{{Role: ChatRoleSystem, Content: "repair"}, {Role: ChatRoleUser, Content: "x"}},
		Temperature: 0,
		MaxTokens:   256,
	})

	assert.Equal(t, "application/json", model.ResponseMIMEType)
	require.NotNil(t, model.Temperature)
	assert.Equal(t, float32(0), *model.Temperature)
	require.NotNil(t, model.MaxOutputTokens)
	assert.Equal(t, int32(256), *model.MaxOutputTokens)
	assert.Nil(t, model.TopP)
	require.NotNil(t, model.SystemInstruction)
	assert.Equal(t, genai.Text("base prompt\n\nrepair"), model.SystemInstruction.Parts[0])
}

func TestGeminiResponse(t *testing.T) {
	resp, err := geminiResponse(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content:      &genai.Content{Parts: []genai.Part{genai.Text(`{"displayText":`), genai.Text(`"Hola"}`)}},
			FinishReason: genai.FinishReasonStop,
		}},
		UsageMetadata: &genai.UsageMetadata{PromptTokenCount: 40, CandidatesTokenCount: 8, TotalTokenCount: 48},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"displayText":"Hola"}`, resp.Text)
	assert.Equal(t, genai.FinishReasonStop.String(), resp.StopReason)
	assert.Equal(t, TokenUsage{InputTokens: 40, OutputTokens: 8, TotalTokens: 48}, resp.Usage)

	_, err = geminiResponse(&genai.GenerateContentResponse{})
	assert.ErrorContains(t, err, "no candidates")

	_, err = geminiResponse(&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: &genai.Content{}}}})
	assert.ErrorContains(t, err, "empty content")
}
