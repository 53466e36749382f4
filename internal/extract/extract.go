// Package extract turns uploaded documents into raw text lines for the pipeline.
//
// Only plain text is handled in-process. Image and PDF extraction live behind the Extractor
// interface and are wrapped with Guarded, which bounds each call by a timeout and a circuit
// breaker.
package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedContent is returned for content types an extractor cannot read.
var ErrUnsupportedContent = errors.New("unsupported content type")

// Content types understood by TextExtractor.
const (
	ContentTypeText = "text/plain"
)

// Confidence reported by TextExtractor.
const (
	TextConfidence      = 0.95
	EmptyTextConfidence = 0.5
)

// Document is an uploaded report.
type Document struct {
	Name        string
	ContentType string
	Data        []byte
}

// Extraction is the extractor output: ordered lines and an overall legibility estimate.
type Extraction struct {
	Lines      []string `json:"lines"`
	Confidence float64  `json:"confidence"`
}

// Extractor turns a document into text lines.
type Extractor interface {
	Extract(ctx context.Context, doc Document) (Extraction, error)
}

// TextExtractor reads plain text documents.
type TextExtractor struct{}

// NewTextExtractor creates a plain text extractor.
func NewTextExtractor() *TextExtractor {
	return &TextExtractor{}
}

// Extract splits the document into non-blank, trimmed lines.
func (e *TextExtractor) Extract(ctx context.Context, doc Document) (Extraction, error) {
	if err := ctx.Err(); err != nil {
		return Extraction{}, err
	}
	if !isText(doc.ContentType) {
		return Extraction{}, fmt.Errorf("extracting %q: %w: %s", doc.Name, ErrUnsupportedContent, doc.ContentType)
	}
	return FromText(string(doc.Data)), nil
}

// FromText splits text into non-blank, trimmed lines.
func FromText(text string) Extraction {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return Extraction{Lines: []string{}, Confidence: EmptyTextConfidence}
	}
	return Extraction{Lines: lines, Confidence: TextConfidence}
}

func isText(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, _ := strings.Cut(contentType, ";")
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	return mediaType == ContentTypeText || mediaType == "text/markdown" || mediaType == "text/csv"
}
