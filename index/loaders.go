package index

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// SourceUnit is one loadable slice of a document: a whole text file, or a
// single PDF page carrying its page number.
type SourceUnit struct {
	SourceName string
	Page       *int
	Text       string
}

// LoadDocument reads a file into source units. Unsupported extensions return
// (nil, nil) so the caller can skip them silently.
func LoadDocument(path string) ([]SourceUnit, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return loadPDF(path)
	case ".txt", ".md", ".markdown":
		return loadText(path)
	default:
		return nil, nil
	}
}

func loadText(path string) ([]SourceUnit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	content := normalizeNewlines(string(data))
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}
	return []SourceUnit{{SourceName: filepath.Base(path), Text: content}}, nil
}

func loadPDF(path string) ([]SourceUnit, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	name := filepath.Base(path)
	units := make([]SourceUnit, 0, reader.NumPage())
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract pdf page %d: %w", pageNum, err)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		p := pageNum
		units = append(units, SourceUnit{SourceName: name, Page: &p, Text: normalizeNewlines(text)})
	}
	return units, nil
}

func normalizeNewlines(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	return strings.ReplaceAll(content, "\r", "\n")
}
