// Package extract pulls plain text out of uploaded documents so their
// content can be inlined into a prompt.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
)

// File extracts the textual content of the file at path. Plain-text formats
// are read verbatim; PDFs are extracted page by page. Unsupported extensions
// return an error.
func File(path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("file not found: %s", path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".log", ".md", ".json", ".yaml", ".yml", ".xml", ".csv":
		return readText(path)
	case ".pdf":
		return readPDF(path)
	default:
		return "", fmt.Errorf("unsupported file type: %s", filepath.Ext(path))
	}
}

func readText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

// readPDF concatenates the plain text of every page, labeling each with its
// page number. Image-only or broken pages are skipped.
func readPDF(path string) (string, error) {
	f, rdr, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer f.Close()

	n := rdr.NumPage()
	pages := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		pg := rdr.Page(i)
		txt, err := pg.GetPlainText(nil)
		if err != nil {
			continue
		}
		s := strings.TrimSpace(txt)
		if s == "" {
			continue
		}
		pages = append(pages, "Page "+strconv.Itoa(i)+":\n"+s)
	}
	return strings.Join(pages, "\n\n"), nil
}
