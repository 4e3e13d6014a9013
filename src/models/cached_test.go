package models

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

type countingAgent struct {
	calls int
	reply string
	err   error
}

func (c *countingAgent) Generate(_ context.Context, _ string) (string, error) {
	c.calls++
	return c.reply, c.err
}

func (c *countingAgent) GenerateWithFiles(_ context.Context, _ string, _ []File) (string, error) {
	c.calls++
	return c.reply, c.err
}

func TestCachedLLMAvoidsRepeatCalls(t *testing.T) {
	inner := &countingAgent{reply: "answer"}
	c := NewCachedLLM(inner, 4, time.Minute, "")

	for i := 0; i < 3; i++ {
		out, err := c.Generate(context.Background(), "same prompt")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out != "answer" {
			t.Fatalf("unexpected output: %q", out)
		}
	}
	if inner.calls != 1 {
		t.Fatalf("expected 1 upstream call, got %d", inner.calls)
	}
}

func TestCachedLLMDoesNotCacheErrors(t *testing.T) {
	inner := &countingAgent{err: errors.New("boom")}
	c := NewCachedLLM(inner, 4, time.Minute, "")

	for i := 0; i < 2; i++ {
		if _, err := c.Generate(context.Background(), "p"); err == nil {
			t.Fatal("expected error")
		}
	}
	if inner.calls != 2 {
		t.Fatalf("errors must not be cached, got %d calls", inner.calls)
	}
}

func TestCachedLLMFileKeyIncludesContent(t *testing.T) {
	inner := &countingAgent{reply: "r"}
	c := NewCachedLLM(inner, 4, time.Minute, "")

	fileA := []File{{Name: "a", Data: []byte("one")}}
	fileB := []File{{Name: "a", Data: []byte("two")}}

	c.GenerateWithFiles(context.Background(), "p", fileA)
	c.GenerateWithFiles(context.Background(), "p", fileB)
	c.GenerateWithFiles(context.Background(), "p", fileA)

	if inner.calls != 2 {
		t.Fatalf("distinct file contents must miss, same contents must hit; got %d calls", inner.calls)
	}
}

func TestCachedLLMPersistsAcrossRestarts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")

	inner := &countingAgent{reply: "persisted"}
	first := NewCachedLLM(inner, 4, time.Minute, path)
	if _, err := first.Generate(context.Background(), "p"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fresh := &countingAgent{reply: "should not be called"}
	second := NewCachedLLM(fresh, 4, time.Minute, path)
	out, err := second.Generate(context.Background(), "p")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "persisted" {
		t.Fatalf("expected reloaded cache hit, got %q", out)
	}
	if fresh.calls != 0 {
		t.Fatalf("reloaded cache should satisfy the call, got %d upstream calls", fresh.calls)
	}
}

func TestTryCreateCachedLLMDisabledWithoutEnv(t *testing.T) {
	t.Setenv("MNEMOS_LLM_CACHE_SIZE", "")
	agent := NewDummyLLM("")
	if got := TryCreateCachedLLM(agent); got != Agent(agent) {
		t.Fatal("without MNEMOS_LLM_CACHE_SIZE the agent must be returned unwrapped")
	}
}

func TestTryCreateCachedLLMEnabled(t *testing.T) {
	t.Setenv("MNEMOS_LLM_CACHE_SIZE", "16")
	t.Setenv("MNEMOS_LLM_CACHE_PATH", filepath.Join(t.TempDir(), "c.json"))
	got := TryCreateCachedLLM(NewDummyLLM(""))
	if _, ok := got.(*CachedLLM); !ok {
		t.Fatalf("expected *CachedLLM, got %T", got)
	}
}
