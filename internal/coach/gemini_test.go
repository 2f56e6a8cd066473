package coach

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeminiGenerateSendsRequestAndJoinsParts(t *testing.T) {
	var (
		gotPath string
		gotKey  string
		payload geminiPayload
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		assert.Empty(t, r.URL.RawQuery)
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &payload))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"Hola "},{"text":"Camila"}]},"finishReason":"STOP"}]}`)
	}))
	defer srv.Close()

	client := NewGeminiClient("test-key", "gemini-test", srv.URL+"/")
	log := zerolog.Nop()

	img := &Image{MIMEType: "image/png", Data: pngBytes}
	text, err := client.Generate(context.Background(), &log, GenerateRequest{
		SystemInstruction: "be nice",
		History:           []Turn{{Role: RoleUser, Text: "hola"}, {Role: RoleAssistant, Text: "¿qué comiste?"}},
		Parts:             []Part{{Text: DefaultImagePrompt}, {Image: img}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hola Camila", text)

	assert.Equal(t, "/models/gemini-test:generateContent", gotPath)
	assert.Equal(t, "test-key", gotKey)

	require.NotNil(t, payload.SystemInstruction)
	assert.Equal(t, "be nice", payload.SystemInstruction.Parts[0].Text)
	require.Len(t, payload.Contents, 3)
	assert.Equal(t, "user", payload.Contents[0].Role)
	assert.Equal(t, "model", payload.Contents[1].Role)

	last := payload.Contents[2]
	assert.Equal(t, "user", last.Role)
	require.Len(t, last.Parts, 2)
	assert.Equal(t, DefaultImagePrompt, last.Parts[0].Text)
	require.NotNil(t, last.Parts[1].InlineData)
	assert.Equal(t, "image/png", last.Parts[1].InlineData.MimeType)
	assert.Equal(t, pngBytes, last.Parts[1].InlineData.Data)
	assert.Equal(t, maxOutputTokens, payload.GenerationConfig.MaxOutputTokens)
}

func TestGeminiGenerateFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"error":{"message":"boom"}}`},
		{"rate limited", http.StatusTooManyRequests, `{}`},
		{"no candidates", http.StatusOK, `{"candidates":[]}`},
		{"blocked", http.StatusOK, `{"promptFeedback":{"blockReason":"SAFETY"}}`},
		{"empty text", http.StatusOK, `{"candidates":[{"content":{"parts":[]},"finishReason":"MAX_TOKENS"}]}`},
		{"garbage", http.StatusOK, `not json`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls++
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			log := zerolog.Nop()
			_, err := NewGeminiClient("k", "m", srv.URL).Generate(context.Background(), &log, GenerateRequest{Parts: []Part{{Text: "hola"}}})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrGenerationFailed))
			assert.Equal(t, 1, calls, "no automatic retry")
		})
	}
}

func TestGeminiGenerateWithoutKey(t *testing.T) {
	log := zerolog.Nop()
	_, err := NewGeminiClient("", "m", "http://127.0.0.1:0").Generate(context.Background(), &log, GenerateRequest{})
	assert.True(t, errors.Is(err, ErrGenerationFailed))
}

func TestGeminiGenerateTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	log := zerolog.Nop()
	_, err := NewGeminiClient("SUPER-SECRET-KEY", "m", url).Generate(context.Background(), &log, GenerateRequest{Parts: []Part{{Text: "x"}}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrGenerationFailed))
	assert.NotContains(t, err.Error(), "SUPER-SECRET-KEY")
}
