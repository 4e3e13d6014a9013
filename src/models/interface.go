// Package models provides the language-model clients the assistant can run
// against: Ollama, OpenAI, Gemini, Anthropic, plus a dummy for tests and an
// optional caching wrapper.
package models

import "context"

// File is a lightweight in-memory attachment.
// Name is used for display; MIME should be best-effort (e.g., "text/markdown").
type File struct {
	Name string
	MIME string
	Data []byte
}

// Agent is the model contract the assistant depends on. Generate returns the
// full response text for a prompt; GenerateWithFiles additionally attaches
// files, inlining text files into the prompt and passing media through to
// providers that accept it.
type Agent interface {
	Generate(ctx context.Context, prompt string) (string, error)
	GenerateWithFiles(ctx context.Context, prompt string, files []File) (string, error)
}
