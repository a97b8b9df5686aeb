package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/corpusworks/corpusd/internal/domain"
	"github.com/corpusworks/corpusd/internal/telemetry"
)

const formatSystemPrompt = "You are a helpful assistant"

// ChatClient defines the interface for LLM completions.
type ChatClient interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// FormatOptions selects the response shape for formatted search results.
type FormatOptions struct {
	TextOnly  bool
	LLMFormat bool
}

// FormattedResult is a search result with an optional LLM-rewritten text.
type FormattedResult struct {
	*domain.SearchResult
	FormattedText string `json:"formatted_text,omitempty"`
}

// FormatOutput is the formatted view of a result set. Exactly one of the
// Results / TextContent / FormattedContent shapes is populated depending on
// the options used.
type FormatOutput struct {
	Results           []*FormattedResult `json:"results,omitempty"`
	TextContent       string             `json:"text_content,omitempty"`
	FormattedContent  string             `json:"formatted_content,omitempty"`
	OriginalText      string             `json:"original_text,omitempty"`
	TotalResults      int                `json:"total_results"`
	FormattingApplied bool               `json:"formatting_applied"`
}

// FormatService renders search results for presentation, optionally routing
// them through an LLM. A nil chat client disables LLM formatting entirely and
// every call degrades to passthrough.
type FormatService struct {
	chat ChatClient
}

// NewFormatService creates a new FormatService instance
func NewFormatService(chat ChatClient) *FormatService {
	return &FormatService{chat: chat}
}

// FormatResults formats a result set according to opts.
//
// FormattingApplied reports whether LLM output actually made it into the
// response: it stays false when formatting was not requested, the chat client
// is absent, or every completion attempt failed and the original text was
// passed through.
func (s *FormatService) FormatResults(ctx context.Context, query string, results []*domain.SearchResult, opts FormatOptions) *FormatOutput {
	ctx, span := telemetry.StartSpan(ctx, "FormatService.FormatResults", telemetry.SpanAttributes{
		Operation: "format_results",
	})
	defer span.End()

	if opts.TextOnly {
		text := ExtractTextOnly(results)

		if opts.LLMFormat && s.chat != nil {
			formatted, applied := s.formatContent(ctx, text, query)
			if applied {
				return &FormatOutput{
					FormattedContent:  formatted,
					OriginalText:      text,
					TotalResults:      len(results),
					FormattingApplied: true,
				}
			}
		}

		return &FormatOutput{
			TextContent:  text,
			TotalResults: len(results),
		}
	}

	formatted := make([]*FormattedResult, 0, len(results))
	applied := false

	if opts.LLMFormat && s.chat != nil {
		for i, result := range results {
			fr := &FormattedResult{SearchResult: result}
			if result.Text != "" {
				withCitation := fmt.Sprintf("%s\n\nSource: %s", result.Text, formatCitation(result.Citation, i+1))
				if text, ok := s.formatContent(ctx, withCitation, query); ok {
					fr.FormattedText = text
					applied = true
				}
			}
			formatted = append(formatted, fr)
		}
	} else {
		for _, result := range results {
			formatted = append(formatted, &FormattedResult{SearchResult: result})
		}
	}

	return &FormatOutput{
		Results:           formatted,
		TotalResults:      len(formatted),
		FormattingApplied: applied,
	}
}

// formatContent asks the LLM to rewrite content guided by the query. The
// second return reports success; on failure the original content comes back
// unchanged so callers always have something to serve.
func (s *FormatService) formatContent(ctx context.Context, content, query string) (string, bool) {
	userPrompt := fmt.Sprintf("%s\n\n\n%s", query, content)

	formatted, err := s.chat.Complete(ctx, formatSystemPrompt, userPrompt)
	if err != nil {
		log.Printf("llm formatting failed, returning original content: %v", err)
		telemetry.CaptureError(ctx, err)
		return content, false
	}
	return formatted, true
}

// ExtractTextOnly concatenates result texts with their citation lines.
// Results with empty text are skipped; the remaining ones are numbered from 1
// in result order.
func ExtractTextOnly(results []*domain.SearchResult) string {
	parts := make([]string, 0, len(results))
	index := 0
	for _, result := range results {
		text := strings.TrimSpace(result.Text)
		if text == "" {
			continue
		}
		index++
		parts = append(parts, fmt.Sprintf("%s\n\nSource: %s", text, formatCitation(result.Citation, index)))
	}
	return strings.Join(parts, "\n\n")
}

// formatCitation renders "[i] filename, Page N", dropping the pieces that are
// absent from the citation.
func formatCitation(citation domain.Citation, index int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%d]", index)
	if citation.Filename != "" {
		b.WriteString(" " + citation.Filename)
	}
	if citation.PageNumber > 0 {
		fmt.Fprintf(&b, ", Page %d", citation.PageNumber)
	}
	return b.String()
}
