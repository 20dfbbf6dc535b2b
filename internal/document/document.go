// Package document reduces résumés and job postings in common file formats
// to plain text.
package document

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// MaxSize bounds files and downloads accepted for extraction.
const MaxSize = 10 << 20

// ErrUnsupported is returned for binary content that no extractor handles.
var ErrUnsupported = errors.New("unsupported document type")

// ExtractFile reads path and extracts its text by extension.
func ExtractFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.Size() > MaxSize {
		return "", fmt.Errorf("%s: file larger than %d bytes", path, MaxSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return Extract(filepath.Base(path), data)
}

// Extract converts data to text, choosing the format from name's extension:
// .pdf, .docx, .html/.htm, anything else is read as UTF-8 text.
func Extract(name string, data []byte) (string, error) {
	var (
		text string
		err  error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		text, err = pdfText(data)
	case ".docx":
		text, err = docxText(data)
	case ".html", ".htm":
		text, err = HTMLToText(bytes.NewReader(data))
	default:
		if !utf8.Valid(data) {
			return "", fmt.Errorf("%s: %w", name, ErrUnsupported)
		}
		text = string(data)
	}
	if err != nil {
		return "", fmt.Errorf("extracting %s: %w", name, err)
	}
	return strings.TrimSpace(text), nil
}
