package models

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicLLM implements Agent using Anthropic's Messages API.
type AnthropicLLM struct {
	Client       *anthropic.Client
	Model        string
	MaxTokens    int
	PromptPrefix string
}

// NewAnthropicLLM constructs a client. It reads ANTHROPIC_API_KEY from the env.
func NewAnthropicLLM(model, promptPrefix string) *AnthropicLLM {
	key := os.Getenv("ANTHROPIC_API_KEY")
	cl := anthropic.NewClient(
		anthropicopt.WithAPIKey(key),
	)
	return &AnthropicLLM{
		Client:       &cl,
		Model:        model,
		MaxTokens:    1024,
		PromptPrefix: promptPrefix,
	}
}

func (a *AnthropicLLM) Generate(ctx context.Context, prompt string) (string, error) {
	fullPrompt := prompt
	if a.PromptPrefix != "" {
		fullPrompt = fmt.Sprintf("%s\n\n%s", a.PromptPrefix, prompt)
	}
	return a.send(ctx, []anthropic.ContentBlockParamUnion{
		anthropic.NewTextBlock(fullPrompt),
	})
}

func (a *AnthropicLLM) GenerateWithFiles(ctx context.Context, prompt string, files []File) (string, error) {
	fullPrompt := prompt
	if a.PromptPrefix != "" {
		fullPrompt = fmt.Sprintf("%s\n\n%s", a.PromptPrefix, prompt)
	}

	var textFiles []File
	var blocks []anthropic.ContentBlockParamUnion
	for _, f := range files {
		mt := normalizeMIME(f.Name, f.MIME)
		if isImageMIME(mt) {
			encoded := base64.StdEncoding.EncodeToString(f.Data)
			blocks = append(blocks, anthropic.NewImageBlockBase64(mt, encoded))
		} else if isTextMIME(mt) {
			textFiles = append(textFiles, f)
		}
	}
	if len(textFiles) > 0 {
		fullPrompt = combinePromptWithFiles(fullPrompt, textFiles)
	}
	blocks = append(blocks, anthropic.NewTextBlock(fullPrompt))

	return a.send(ctx, blocks)
}

func (a *AnthropicLLM) send(ctx context.Context, blocks []anthropic.ContentBlockParamUnion) (string, error) {
	msg, err := a.Client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.Model),
		MaxTokens: int64(a.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(blocks...),
		},
	})
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, cb := range msg.Content {
		if tb, ok := cb.AsAny().(anthropic.TextBlock); ok {
			b.WriteString(tb.Text)
		}
	}
	return b.String(), nil
}

var _ Agent = (*AnthropicLLM)(nil)
