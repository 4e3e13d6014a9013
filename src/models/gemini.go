package models

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// ---------------------------- Google Gemini ----------------------------------

type GeminiLLM struct {
	Client       *genai.Client
	Model        string
	PromptPrefix string
}

func NewGeminiLLM(ctx context.Context, model, promptPrefix string) (*GeminiLLM, error) {
	apiKey := os.Getenv("GOOGLE_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, errors.New("missing GOOGLE_API_KEY or GEMINI_API_KEY")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini init: %w", err)
	}
	return &GeminiLLM{Client: client, Model: model, PromptPrefix: promptPrefix}, nil
}

func (g *GeminiLLM) Generate(ctx context.Context, prompt string) (string, error) {
	return g.generate(ctx, genai.Text(g.fullPrompt(prompt)))
}

func (g *GeminiLLM) GenerateWithFiles(ctx context.Context, prompt string, files []File) (string, error) {
	fullPrompt := g.fullPrompt(prompt)

	var textFiles []File
	var parts []genai.Part
	for _, f := range files {
		mt := normalizeMIME(f.Name, f.MIME)
		if mime := geminiImageMIME(mt); mime != "" {
			parts = append(parts, genai.Blob{MIMEType: mime, Data: f.Data})
		} else if isTextMIME(mt) {
			textFiles = append(textFiles, f)
		}
	}
	if len(textFiles) > 0 {
		fullPrompt = combinePromptWithFiles(fullPrompt, textFiles)
	}
	parts = append(parts, genai.Text(fullPrompt))

	return g.generate(ctx, parts...)
}

func (g *GeminiLLM) generate(ctx context.Context, parts ...genai.Part) (string, error) {
	model := g.Client.GenerativeModel(g.Model)
	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("gemini: empty response")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String(), nil
}

func (g *GeminiLLM) fullPrompt(prompt string) string {
	prefix := strings.TrimSpace(g.PromptPrefix)
	if prefix == "" {
		return prompt
	}
	return fmt.Sprintf("%s %s", prefix, prompt)
}

// geminiImageMIME filters to the image formats Gemini accepts.
func geminiImageMIME(mt string) string {
	switch strings.ToLower(strings.TrimSpace(mt)) {
	case "image/png":
		return "image/png"
	case "image/jpeg", "image/jpg":
		return "image/jpeg"
	case "image/webp":
		return "image/webp"
	case "image/gif":
		return "image/gif"
	default:
		return ""
	}
}

var _ Agent = (*GeminiLLM)(nil)
