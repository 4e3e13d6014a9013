package extract

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestFileReadsPlainText(t *testing.T) {
	path := writeTemp(t, "notes.txt", "hello world")
	out, err := File(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "hello world" {
		t.Fatalf("unexpected content: %q", out)
	}
}

func TestFileReadsMarkdownAndJSON(t *testing.T) {
	for _, name := range []string{"doc.md", "data.json", "conf.yaml"} {
		path := writeTemp(t, name, "content of "+name)
		out, err := File(path)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", name, err)
		}
		if !strings.Contains(out, name) {
			t.Fatalf("%s: unexpected content: %q", name, out)
		}
	}
}

func TestFileMissing(t *testing.T) {
	if _, err := File(filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Fatal("missing file must error")
	}
}

func TestFileUnsupportedExtension(t *testing.T) {
	path := writeTemp(t, "binary.exe", "MZ")
	_, err := File(path)
	if err == nil {
		t.Fatal("unsupported extension must error")
	}
	if !strings.Contains(err.Error(), "unsupported file type") {
		t.Fatalf("unexpected error: %v", err)
	}
}
