// Package extract provides text extraction from uploaded document formats.
package extract

import (
	"path/filepath"
	"strings"

	"github.com/corpusworks/corpusd/internal/domain"
)

// Extractor extracts plain text from uploaded files, keyed by extension.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Supports reports whether the filename's extension maps to a known format.
func (e *Extractor) Supports(filename string) bool {
	_, ok := fileTypeFor(filename)
	return ok
}

// Extract returns the text content of data together with the normalized file
// type recorded on citations ("pdf", "docx", "xlsx", "csv", "md", "txt").
// Unknown extensions are rejected rather than guessed at; uploads are
// explicit enough that silently treating binary junk as text helps nobody.
func (e *Extractor) Extract(filename string, data []byte) (string, string, error) {
	fileType, ok := fileTypeFor(filename)
	if !ok {
		return "", "", domain.ErrUnsupportedFileType
	}

	var (
		text string
		err  error
	)
	switch fileType {
	case "pdf":
		text, err = extractPDF(data)
	case "docx":
		text, err = extractDOCX(data)
	case "xlsx":
		text, err = extractExcel(data)
	case "csv":
		text, err = extractCSV(data)
	default:
		text, err = extractPlain(data)
	}
	if err != nil {
		return "", "", err
	}
	return text, fileType, nil
}

func fileTypeFor(filename string) (string, bool) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "pdf", true
	case ".docx":
		return "docx", true
	case ".xlsx":
		return "xlsx", true
	case ".csv":
		return "csv", true
	case ".md", ".markdown":
		return "md", true
	case ".txt", ".text", ".rst":
		return "txt", true
	default:
		return "", false
	}
}
