package models

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	ollama "github.com/ollama/ollama/api"
)

// ---------------------------- Ollama -----------------------------------------

type OllamaLLM struct {
	Client       *ollama.Client
	Model        string
	PromptPrefix string
}

// NewOllamaLLM connects to OLLAMA_HOST, defaulting to the local daemon.
func NewOllamaLLM(model, promptPrefix string) (*OllamaLLM, error) {
	host := os.Getenv("OLLAMA_HOST")
	if host == "" {
		host = "http://localhost:11434"
	}

	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid OLLAMA_HOST %q: %w", host, err)
	}

	httpClient := &http.Client{
		Timeout: 120 * time.Second,
	}

	return &OllamaLLM{
		Client:       ollama.NewClient(u, httpClient),
		Model:        model,
		PromptPrefix: promptPrefix,
	}, nil
}

func (o *OllamaLLM) Generate(ctx context.Context, prompt string) (string, error) {
	return o.generate(ctx, o.fullPrompt(prompt), nil)
}

func (o *OllamaLLM) GenerateWithFiles(ctx context.Context, prompt string, files []File) (string, error) {
	fullPrompt := o.fullPrompt(prompt)

	var textFiles []File
	var images []ollama.ImageData
	for _, f := range files {
		mt := normalizeMIME(f.Name, f.MIME)
		if isImageMIME(mt) {
			encoded := base64.StdEncoding.EncodeToString(f.Data)
			images = append(images, ollama.ImageData(encoded))
		} else if isTextMIME(mt) {
			textFiles = append(textFiles, f)
		}
	}
	if len(textFiles) > 0 {
		fullPrompt = combinePromptWithFiles(fullPrompt, textFiles)
	}

	return o.generate(ctx, fullPrompt, images)
}

// generate accumulates the streamed response into a single string.
func (o *OllamaLLM) generate(ctx context.Context, prompt string, images []ollama.ImageData) (string, error) {
	req := &ollama.GenerateRequest{
		Model:  o.Model,
		Prompt: prompt,
		Images: images,
	}

	var text strings.Builder
	if err := o.Client.Generate(ctx, req, func(gr ollama.GenerateResponse) error {
		if gr.Response != "" {
			text.WriteString(gr.Response)
		}
		return nil
	}); err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}
	return text.String(), nil
}

func (o *OllamaLLM) fullPrompt(prompt string) string {
	if o.PromptPrefix == "" {
		return prompt
	}
	return fmt.Sprintf("%s\n\n%s", o.PromptPrefix, prompt)
}

var _ Agent = (*OllamaLLM)(nil)
